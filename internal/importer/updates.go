package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// updatesSuffix names the CSV inside an update folder.
const updatesSuffix = "_all.csv"

// FolderResult summarizes one update folder.
type FolderResult struct {
	Folder        string `json:"folder"`
	Plant         string `json:"plant"`
	PlantID       int64  `json:"plantId,omitempty"`
	NotFound      bool   `json:"notFound,omitempty"`
	EventsAdded   int    `json:"eventsAdded"`
	EventsSkipped int    `json:"eventsSkipped"`
	PhotosAdded   int    `json:"photosAdded"`
	PhotosSkipped int    `json:"photosSkipped"`
	Error         string `json:"error,omitempty"`

	// Failures lists rows whose event or photo could not be saved.
	Failures []string `json:"failures,omitempty"`
}

var (
	colUpdateName  = []string{"Name"}
	colUpdateDate  = []string{"Date"}
	colUpdatePhoto = []string{"Photo"}
	colUpdateType  = []string{"Update type", "Update_type"}
)

// updateFolder is a folder of baseDir holding an updates CSV.
type updateFolder struct {
	name string
	csv  string
}

// findUpdateFolders lists the non-hidden subfolders of baseDir that contain
// a *_all.csv, in name order.
func findUpdateFolders(baseDir string) ([]updateFolder, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("reading updates folder: %w", err)
	}
	var folders []updateFolder
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(baseDir, e.Name(), "*"+updatesSuffix))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		folders = append(folders, updateFolder{name: e.Name(), csv: matches[0]})
	}
	return folders, nil
}

// ImportUpdates walks the update folders of baseDir and adds their events
// and photos to the matching plants of the user. Plants are matched by name,
// ignoring case. Existing events and photos are skipped, so the import can
// be repeated.
func (im *Importer) ImportUpdates(ctx context.Context, userID int64, baseDir string) ([]*FolderResult, error) {
	folders, err := findUpdateFolders(baseDir)
	if err != nil {
		return nil, err
	}
	results := make([]*FolderResult, 0, len(folders))
	for _, f := range folders {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := im.importFolder(ctx, userID, baseDir, f)
		im.logger.Info("imported updates", "folder", f.name, "plant", res.Plant,
			"not_found", res.NotFound, "events_added", res.EventsAdded,
			"events_skipped", res.EventsSkipped, "photos_added", res.PhotosAdded,
			"photos_skipped", res.PhotosSkipped, "failures", len(res.Failures))
		results = append(results, res)
	}
	return results, nil
}

func (im *Importer) importFolder(ctx context.Context, userID int64, baseDir string, f updateFolder) *FolderResult {
	res := &FolderResult{Folder: f.name, Plant: ExtractPlantName(f.name)}

	plant, err := im.diary.Plants().FindByName(ctx, userID, res.Plant)
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidName) {
		res.NotFound = true
		return res
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.PlantID = plant.ID

	file, err := os.Open(f.csv)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	t, err := readTable(file)
	file.Close()
	if err != nil {
		res.Error = err.Error()
		return res
	}

	dir := filepath.Join(baseDir, f.name)
	for _, row := range t.rows {
		date := ParseDate(t.get(row, colUpdateDate...), im.now())
		if date == "" {
			im.logger.Debug("skipping update without date", "folder", f.name)
			continue
		}
		if err := im.importEvent(ctx, userID, plant.ID, t, row, date, res); err != nil {
			im.rowFailed(res, err)
		}
		if err := im.importUpdatePhoto(ctx, userID, plant, dir, t.get(row, colUpdatePhoto...), date, res); err != nil {
			im.rowFailed(res, err)
		}
	}
	return res
}

// rowFailed records a failed update row; the folder import carries on.
func (im *Importer) rowFailed(res *FolderResult, err error) {
	im.logger.Warn("update row failed", "folder", res.Folder, "error", err)
	res.Failures = append(res.Failures, err.Error())
}

func (im *Importer) importEvent(ctx context.Context, userID, plantID int64, t *table, row []string, date string, res *FolderResult) error {
	eventType := MapUpdateType(t.get(row, colUpdateType...))
	exists, err := im.diary.Events().Exists(ctx, plantID, eventType, date)
	if err != nil {
		return err
	}
	if exists {
		res.EventsSkipped++
		return nil
	}
	e := &types.PlantEvent{
		PlantID:   plantID,
		EventType: eventType,
		EventDate: date,
		Notes:     types.OptionalString(t.get(row, colUpdateName...)),
	}
	if _, err := im.diary.Events().Create(ctx, userID, e); err != nil {
		if errors.Is(err, types.ErrDuplicateEvent) {
			res.EventsSkipped++
			return nil
		}
		return fmt.Errorf("saving %s event on %s: %w", eventType, date, err)
	}
	res.EventsAdded++
	return nil
}

func (im *Importer) importUpdatePhoto(ctx context.Context, userID int64, plant *types.Plant, dir, ref, date string, res *FolderResult) error {
	base := mediaBase(ref)
	if base == "" {
		return nil
	}
	src := filepath.Join(dir, base)
	if _, err := os.Stat(src); err != nil {
		im.logger.Debug("update photo not found", "file", src)
		return nil
	}
	exists, err := im.diary.Photos().ExistsByBasename(ctx, plant.ID, base)
	if err != nil {
		return err
	}
	if exists {
		res.PhotosSkipped++
		return nil
	}
	public, err := im.store.CopyIn(userID, plant.Name, src, base)
	if err != nil {
		return fmt.Errorf("copying photo %s: %w", base, err)
	}
	taken, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return err
	}
	ph := &types.PlantPhoto{PlantID: plant.ID, PhotoPath: public, TakenAt: &taken}
	if _, err := im.diary.Photos().Create(ctx, userID, ph); err != nil {
		if rmErr := im.store.Remove(public); rmErr != nil {
			im.logger.Warn("copied photo not removed", "path", public, "error", rmErr)
		}
		return fmt.Errorf("saving photo %s: %w", base, err)
	}
	res.PhotosAdded++
	return nil
}
