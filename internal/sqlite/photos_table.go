package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

const photoSelect = `SELECT ph.id, ph.plant_id, ph.photo_path, ph.caption, ph.taken_at, ph.created_at
  FROM plant_photos ph
  JOIN plants p ON p.id = ph.plant_id`

type photoTable struct {
	b *Backend
}

func scanPhoto(row interface{ Scan(...any) error }, extra ...any) (*types.PlantPhoto, error) {
	var (
		ph               types.PlantPhoto
		caption, takenAt sql.NullString
		createdAt        string
		err              error
	)
	dest := append([]any{&ph.ID, &ph.PlantID, &ph.PhotoPath, &caption, &takenAt, &createdAt}, extra...)
	if err = row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning photo: %w", err)
	}
	ph.Caption = stringPtr(caption)
	if ph.TakenAt, err = parseNullTime(takenAt); err != nil {
		return nil, err
	}
	if ph.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &ph, nil
}

func (t *photoTable) ListByPlant(ctx context.Context, userID, plantID int64) ([]*types.PlantPhoto, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	if err := ownsPlant(ctx, db, userID, plantID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		photoSelect+" WHERE ph.plant_id = ? AND p.user_id = ? ORDER BY ph.created_at DESC, ph.id DESC",
		plantID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	photos := []*types.PlantPhoto{}
	for rows.Next() {
		ph, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, ph)
	}
	return photos, rows.Err()
}

func (t *photoTable) Get(ctx context.Context, userID, id int64) (*types.PlantPhoto, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanPhoto(db.QueryRowContext(ctx,
		photoSelect+" WHERE ph.id = ? AND p.user_id = ?", id, userID))
}

// Create inserts the photo. A nil TakenAt defaults to the current time.
func (t *photoTable) Create(ctx context.Context, userID int64, ph *types.PlantPhoto) (int64, error) {
	if err := ph.Validate(); err != nil {
		return 0, err
	}
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	if err := ownsPlant(ctx, db, userID, ph.PlantID); err != nil {
		return 0, err
	}
	ts := now()
	if ph.TakenAt == nil {
		taken := ts
		ph.TakenAt = &taken
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO plant_photos (plant_id, photo_path, caption, taken_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ph.PlantID, ph.PhotoPath, nullString(ph.Caption), nullTime(ph.TakenAt), formatTime(ts))
	if err != nil {
		return 0, fmt.Errorf("inserting photo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading photo id: %w", err)
	}
	ph.ID, ph.CreatedAt = id, ts
	return id, nil
}

// Update sets the caption and, when given, the capture time.
func (t *photoTable) Update(ctx context.Context, userID int64, ph *types.PlantPhoto) error {
	if ph.ID <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE plant_photos SET caption = ?, taken_at = COALESCE(?, taken_at)
		 WHERE id = ? AND plant_id IN (SELECT id FROM plants WHERE user_id = ?)`,
		nullString(ph.Caption), nullTime(ph.TakenAt), ph.ID, userID)
	if err != nil {
		return fmt.Errorf("updating photo: %w", err)
	}
	return affected(res)
}

func (t *photoTable) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM plant_photos
		 WHERE id = ? AND plant_id IN (SELECT id FROM plants WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return affected(res)
}

func (t *photoTable) All(ctx context.Context) ([]*types.PhotoRecord, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT ph.id, ph.plant_id, ph.photo_path, ph.caption, ph.taken_at, ph.created_at,
		       p.user_id, p.name
		  FROM plant_photos ph
		  JOIN plants p ON p.id = ph.plant_id
		 ORDER BY ph.id`)
	if err != nil {
		return nil, fmt.Errorf("listing all photos: %w", err)
	}
	defer rows.Close()

	var records []*types.PhotoRecord
	for rows.Next() {
		rec := &types.PhotoRecord{}
		ph, err := scanPhoto(rows, &rec.UserID, &rec.PlantName)
		if err != nil {
			return nil, err
		}
		rec.PlantPhoto = *ph
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (t *photoTable) UpdatePath(ctx context.Context, id int64, photoPath string) error {
	if photoPath == "" {
		return types.ErrInvalidPath
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE plant_photos SET photo_path = ? WHERE id = ?", photoPath, id)
	if err != nil {
		return fmt.Errorf("updating photo path: %w", err)
	}
	return affected(res)
}

func (t *photoTable) DeleteByID(ctx context.Context, id int64) error {
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM plant_photos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return affected(res)
}

// ExistsByBasename reports whether the plant has a photo whose file name,
// ignoring directories, equals base.
func (t *photoTable) ExistsByBasename(ctx context.Context, plantID int64, base string) (bool, error) {
	db, err := t.b.conn()
	if err != nil {
		return false, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT photo_path FROM plant_photos WHERE plant_id = ?", plantID)
	if err != nil {
		return false, fmt.Errorf("listing photo paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return false, fmt.Errorf("scanning photo path: %w", err)
		}
		if path.Base(p) == base {
			return true, nil
		}
	}
	return false, rows.Err()
}
