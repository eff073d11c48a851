// Package importer loads plant collections exported from a spreadsheet: a
// plants CSV with an optional media folder, and per-plant update folders
// holding a *_all.csv and its photos.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// Importer writes imported plants, events and photos for one user at a time.
type Importer struct {
	diary   types.Diary
	store   *photos.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New returns an Importer. A nil logger discards output; m may be nil.
func New(diary types.Diary, store *photos.Store, logger *slog.Logger, m *metrics.Metrics) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		diary:   diary,
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// PlantOptions controls a plants CSV import.
type PlantOptions struct {
	// ClearExisting deletes the user's plants and their folders first.
	ClearExisting bool

	// MediaDir holds the files named in the "Files & media" column. Empty
	// skips profile photos.
	MediaDir string
}

// Result summarizes a plants CSV import.
type Result struct {
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages"`
}

func (r *Result) fail(row int, format string, args ...any) {
	r.Errors++
	r.Messages = append(r.Messages, fmt.Sprintf("row %d: %s", row, fmt.Sprintf(format, args...)))
}

// Column names, with the spellings found in real exports.
var (
	colPlant         = []string{"Plant", "Name"}
	colAlias         = []string{"Alias"}
	colPrice         = []string{"Price"}
	colDeliveryFee   = []string{"Delivery fee", "Delivery_fee"}
	colPurchasedFrom = []string{"Purchased from", "Purchased_from"}
	colPurchasedWhen = []string{"Purchased when", "Purchased_when"}
	colReceivedWhen  = []string{"Recieved when", "Received when", "Received_when"}
	colNotes         = []string{"Notes", "Purchase notes", "Purchase_notes"}
	colStatus        = []string{"Status"}
	colMedia         = []string{"Files & media"}
	colLastWater     = []string{"Last water date", "Last_water_date"}
)

// ClearPlants deletes every plant of the user together with its folder.
// Events and photos cascade.
func (im *Importer) ClearPlants(ctx context.Context, userID int64) (int64, error) {
	plants, err := im.diary.Plants().List(ctx, userID, types.PlantFilter{})
	if err != nil {
		return 0, err
	}
	for _, p := range plants {
		if err := im.store.DeletePlantFolder(userID, p.Name); err != nil {
			return 0, err
		}
	}
	return im.diary.Plants().DeleteAll(ctx, userID)
}

// ImportPlants reads a plants CSV and creates one plant per row. A failing
// row is recorded in the result and does not stop the import.
func (im *Importer) ImportPlants(ctx context.Context, userID int64, r io.Reader, opts PlantOptions) (*Result, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if opts.ClearExisting {
		n, err := im.ClearPlants(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("clearing plants: %w", err)
		}
		im.logger.Info("cleared existing plants", "user_id", userID, "count", n)
	}

	res := &Result{Total: len(t.rows), Messages: []string{}}
	for i, row := range t.rows {
		// Row 1 is the header.
		line := i + 2
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := im.importPlantRow(ctx, userID, t, row, opts.MediaDir); err != nil {
			res.fail(line, "%v", err)
			im.metrics.ImportRow(metrics.RowError)
			im.logger.Debug("import row failed", "row", line, "error", err)
			continue
		}
		res.Success++
		im.metrics.ImportRow(metrics.RowSuccess)
	}
	im.logger.Info("imported plants", "user_id", userID,
		"total", res.Total, "success", res.Success, "errors", res.Errors)
	return res, nil
}

func (im *Importer) importPlantRow(ctx context.Context, userID int64, t *table, row []string, mediaDir string) error {
	name := t.get(row, colPlant...)
	if name == "" {
		return types.ErrInvalidName
	}
	status, err := types.ParseStatus(t.get(row, colStatus...))
	if err != nil {
		return fmt.Errorf("%w: %q", err, t.get(row, colStatus...))
	}
	now := im.now()
	p := &types.Plant{
		Name:          name,
		Alias:         types.OptionalString(t.get(row, colAlias...)),
		Price:         ParsePrice(t.get(row, colPrice...)),
		DeliveryFee:   ParsePrice(t.get(row, colDeliveryFee...)),
		PurchasedFrom: types.OptionalString(t.get(row, colPurchasedFrom...)),
		PurchasedWhen: types.OptionalString(ParseDate(t.get(row, colPurchasedWhen...), now)),
		ReceivedWhen:  types.OptionalString(ParseDate(t.get(row, colReceivedWhen...), now)),
		PurchaseNotes: types.OptionalString(t.get(row, colNotes...)),
		Status:        status,
	}

	if mediaDir != "" {
		if public := im.copyProfilePhoto(userID, name, mediaDir, t.get(row, colMedia...)); public != "" {
			p.ProfilePhoto = &public
		}
	}

	if _, err := im.diary.Plants().Create(ctx, userID, p); err != nil {
		if p.ProfilePhoto != nil {
			if rmErr := im.store.Remove(*p.ProfilePhoto); rmErr != nil {
				im.logger.Warn("copied profile photo not removed", "path", *p.ProfilePhoto, "error", rmErr)
			}
		}
		return err
	}

	if p.PurchasedFrom != nil {
		tag := &types.Tag{TagName: *p.PurchasedFrom, TagType: types.TagPurchasedFrom}
		if err := im.diary.Tags().Ensure(ctx, userID, tag); err != nil {
			return fmt.Errorf("saving vendor tag: %w", err)
		}
	}

	if date := ParseDate(t.get(row, colLastWater...), now); date != "" {
		e := &types.PlantEvent{PlantID: p.ID, EventType: types.EventWater, EventDate: date}
		if _, err := im.diary.Events().Create(ctx, userID, e); err != nil && !errors.Is(err, types.ErrDuplicateEvent) {
			return fmt.Errorf("saving last water date: %w", err)
		}
	}
	return nil
}

// copyProfilePhoto copies the first image of the media cell into the plant
// folder and returns its public path, or "" when there is nothing to copy.
func (im *Importer) copyProfilePhoto(userID int64, plantName, mediaDir, media string) string {
	base := FirstImage(media)
	if base == "" {
		return ""
	}
	src := filepath.Join(mediaDir, base)
	if _, err := os.Stat(src); err != nil {
		im.logger.Warn("profile photo not found", "plant", plantName, "file", src)
		return ""
	}
	ext := path.Ext(base)
	newName := fmt.Sprintf("csv_import_%d_%s%s", im.now().UnixMilli(), strings.TrimSuffix(base, ext), ext)
	public, err := im.store.CopyIn(userID, plantName, src, newName)
	if err != nil {
		im.logger.Warn("copying profile photo failed", "plant", plantName, "error", err)
		return ""
	}
	return public
}
