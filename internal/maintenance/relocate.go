package maintenance

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// RelocatePlant follows a rename of p from oldName: the plant folder is
// renamed and every stored path of the plant pointing into the old folder is
// rewritten. p.ProfilePhoto is updated in place.
func (j *Jobs) RelocatePlant(ctx context.Context, userID int64, p *types.Plant, oldName string) error {
	if photos.PlantDir(userID, oldName) == photos.PlantDir(userID, p.Name) {
		return nil
	}
	if _, err := j.store.RenamePlantFolder(userID, oldName, p.Name); err != nil {
		return err
	}

	list, err := j.diary.Photos().ListByPlant(ctx, userID, p.ID)
	if err != nil {
		return err
	}
	for _, ph := range list {
		next := photos.RelocatePath(userID, ph.PhotoPath, oldName, p.Name)
		if next == ph.PhotoPath {
			continue
		}
		if err := j.diary.Photos().UpdatePath(ctx, ph.ID, next); err != nil {
			return fmt.Errorf("relocating photo %d: %w", ph.ID, err)
		}
	}

	if p.ProfilePhoto != nil {
		next := photos.RelocatePath(userID, *p.ProfilePhoto, oldName, p.Name)
		if next != *p.ProfilePhoto {
			if err := j.diary.Plants().SetProfilePhoto(ctx, p.ID, next); err != nil {
				return fmt.Errorf("relocating profile photo: %w", err)
			}
			p.ProfilePhoto = &next
		}
	}
	j.logger.Debug("relocated plant folder", "plant_id", p.ID, "from", oldName, "to", p.Name)
	return nil
}
