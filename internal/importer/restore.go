package importer

import (
	"context"
	"fmt"
	"os"
)

// RestoreOptions names the exported files a restore reads.
type RestoreOptions struct {
	CSVPath    string
	MediaDir   string
	UpdatesDir string
}

// RestoreResult combines the plant and update import results.
type RestoreResult struct {
	Plants  *Result         `json:"plants"`
	Updates []*FolderResult `json:"updates"`
}

// Restore replaces the user's collection with an export: plants, tags and
// photo folders are deleted, then the plants CSV and the update folders are
// imported.
func (im *Importer) Restore(ctx context.Context, userID int64, opts RestoreOptions) (*RestoreResult, error) {
	f, err := os.Open(opts.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("opening plants csv: %w", err)
	}
	defer f.Close()

	if _, err := im.diary.Plants().DeleteAll(ctx, userID); err != nil {
		return nil, fmt.Errorf("clearing plants: %w", err)
	}
	if _, err := im.diary.Tags().DeleteAll(ctx, userID); err != nil {
		return nil, fmt.Errorf("clearing tags: %w", err)
	}
	if err := im.store.DeleteUserFolders(userID); err != nil {
		return nil, err
	}
	im.logger.Info("cleared collection for restore", "user_id", userID)

	res := &RestoreResult{}
	if res.Plants, err = im.ImportPlants(ctx, userID, f, PlantOptions{MediaDir: opts.MediaDir}); err != nil {
		return res, err
	}
	if opts.UpdatesDir != "" {
		if res.Updates, err = im.ImportUpdates(ctx, userID, opts.UpdatesDir); err != nil {
			return res, err
		}
	}
	return res, nil
}
