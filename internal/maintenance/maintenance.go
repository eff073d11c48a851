// Package maintenance implements housekeeping jobs over photo records and
// the files behind them: orphan cleanup, folder layout migrations and plant
// folder relocation on rename.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// Jobs runs maintenance against one diary and its photo store.
type Jobs struct {
	diary   types.Diary
	store   *photos.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns Jobs. A nil logger discards output; m may be nil.
func New(diary types.Diary, store *photos.Store, logger *slog.Logger, m *metrics.Metrics) *Jobs {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Jobs{diary: diary, store: store, logger: logger, metrics: m}
}

// CleanupReport summarizes an orphan cleanup.
type CleanupReport struct {
	Checked  int     `json:"checked"`
	Valid    int     `json:"valid"`
	Orphaned int     `json:"orphaned"`
	Removed  int     `json:"removed"`
	DryRun   bool    `json:"dryRun"`
	Orphans  []int64 `json:"orphanIds"`
}

// CleanupOrphans deletes photo records whose file is missing. With dryRun
// the records are only reported.
func (j *Jobs) CleanupOrphans(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	records, err := j.diary.Photos().All(ctx)
	if err != nil {
		return nil, err
	}
	rep := &CleanupReport{Checked: len(records), DryRun: dryRun, Orphans: []int64{}}
	for _, rec := range records {
		ok, err := j.store.Exists(rec.PhotoPath)
		if err != nil && !errors.Is(err, types.ErrInvalidPath) {
			return rep, err
		}
		if ok {
			rep.Valid++
			continue
		}
		rep.Orphaned++
		rep.Orphans = append(rep.Orphans, rec.ID)
		j.logger.Debug("orphaned photo", "photo_id", rec.ID, "plant", rec.PlantName, "path", rec.PhotoPath)
		if dryRun {
			continue
		}
		if err := j.diary.Photos().DeleteByID(ctx, rec.ID); err != nil {
			return rep, fmt.Errorf("deleting orphaned photo %d: %w", rec.ID, err)
		}
		rep.Removed++
	}
	j.metrics.OrphansRemoved(rep.Removed)
	j.logger.Info("orphan cleanup finished", "checked", rep.Checked, "valid", rep.Valid,
		"orphaned", rep.Orphaned, "removed", rep.Removed, "dry_run", dryRun)
	return rep, nil
}

// MigrationReport summarizes a path migration.
type MigrationReport struct {
	Checked  int      `json:"checked"`
	Updated  int      `json:"updated"`
	Moved    int      `json:"moved"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings"`
}

func (r *MigrationReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// migrateLegacy maps a /uploads/<slug>/<file> path to its per-user form and
// moves the file when it still sits in the legacy folder. It returns "" for
// paths that need no migration.
func (j *Jobs) migrateLegacy(userID int64, public string, rep *MigrationReport) (string, error) {
	segs, err := photos.Segments(public)
	if err != nil || len(segs) != 2 {
		return "", nil
	}
	legacy, _ := photos.RelPath(public)
	target := path.Join(fmt.Sprint(userID), segs[0], segs[1])

	inPlace, err := j.store.Exists(photos.PublicPath(target))
	if err != nil {
		return "", err
	}
	if !inPlace {
		found, err := j.store.Exists(public)
		if err != nil {
			return "", err
		}
		if found {
			if _, err := j.store.Move(public, target); err != nil {
				return "", err
			}
			rep.Moved++
		} else {
			rep.warn("file missing for %s (expected %s)", public, legacy)
		}
	}
	return photos.PublicPath(target), nil
}

// MigratePhotoPaths rewrites legacy /uploads/<slug>/<file> paths of photos
// and profile photos to /uploads/<userID>/<slug>/<file>, moving files that
// are still in the legacy folder. Running it again changes nothing.
func (j *Jobs) MigratePhotoPaths(ctx context.Context) (*MigrationReport, error) {
	rep := &MigrationReport{Warnings: []string{}}

	records, err := j.diary.Photos().All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		rep.Checked++
		next, err := j.migrateLegacy(rec.UserID, rec.PhotoPath, rep)
		if err != nil {
			return rep, err
		}
		if next == "" {
			rep.Skipped++
			continue
		}
		if err := j.diary.Photos().UpdatePath(ctx, rec.ID, next); err != nil {
			return rep, fmt.Errorf("updating photo %d: %w", rec.ID, err)
		}
		rep.Updated++
	}

	plants, err := j.diary.Plants().All(ctx)
	if err != nil {
		return rep, err
	}
	for _, p := range plants {
		if p.ProfilePhoto == nil {
			continue
		}
		rep.Checked++
		next, err := j.migrateLegacy(p.UserID, *p.ProfilePhoto, rep)
		if err != nil {
			return rep, err
		}
		if next == "" {
			rep.Skipped++
			continue
		}
		if err := j.diary.Plants().SetProfilePhoto(ctx, p.ID, next); err != nil {
			return rep, fmt.Errorf("updating profile photo of plant %d: %w", p.ID, err)
		}
		rep.Updated++
	}

	for _, w := range rep.Warnings {
		j.logger.Warn("path migration", "warning", w)
	}
	j.logger.Info("photo path migration finished", "checked", rep.Checked,
		"updated", rep.Updated, "moved", rep.Moved, "skipped", rep.Skipped)
	return rep, nil
}

// MigrateRootPhotos moves files lying directly in the upload root into the
// folder of the plant that references them and rewrites the stored paths.
func (j *Jobs) MigrateRootPhotos(ctx context.Context) (*MigrationReport, error) {
	rep := &MigrationReport{Warnings: []string{}}

	names, err := j.store.RootFiles()
	if err != nil {
		return nil, err
	}
	inRoot := make(map[string]bool, len(names))
	for _, n := range names {
		inRoot[n] = true
	}
	// moved maps a root file name to its new public path.
	moved := make(map[string]string)

	records, err := j.diary.Photos().All(ctx)
	if err != nil {
		return nil, err
	}
	plants, err := j.diary.Plants().All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*types.Plant, len(plants))
	for _, p := range plants {
		byID[p.ID] = p
	}

	relocate := func(p *types.Plant, public string) (string, error) {
		base := path.Base(public)
		if next, ok := moved[base]; ok {
			return next, nil
		}
		if !inRoot[base] {
			return "", nil
		}
		next, err := j.store.Move(photos.PublicPath(base), path.Join(photos.PlantDir(p.UserID, p.Name), base))
		if err != nil {
			return "", err
		}
		moved[base] = next
		rep.Moved++
		return next, nil
	}

	for _, rec := range records {
		rep.Checked++
		p := byID[rec.PlantID]
		if p == nil {
			rep.Skipped++
			continue
		}
		next, err := relocate(p, rec.PhotoPath)
		if err != nil {
			return rep, err
		}
		if next == "" || next == rec.PhotoPath {
			rep.Skipped++
			continue
		}
		if err := j.diary.Photos().UpdatePath(ctx, rec.ID, next); err != nil {
			return rep, fmt.Errorf("updating photo %d: %w", rec.ID, err)
		}
		rep.Updated++
	}
	for _, p := range plants {
		if p.ProfilePhoto == nil {
			continue
		}
		rep.Checked++
		next, err := relocate(p, *p.ProfilePhoto)
		if err != nil {
			return rep, err
		}
		if next == "" || next == *p.ProfilePhoto {
			rep.Skipped++
			continue
		}
		if err := j.diary.Plants().SetProfilePhoto(ctx, p.ID, next); err != nil {
			return rep, fmt.Errorf("updating profile photo of plant %d: %w", p.ID, err)
		}
		rep.Updated++
	}

	j.logger.Info("root photo migration finished", "checked", rep.Checked,
		"updated", rep.Updated, "moved", rep.Moved, "skipped", rep.Skipped)
	return rep, nil
}
