package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

const eventSelect = `SELECT e.id, e.plant_id, e.event_type, e.event_date, e.notes, e.created_at
  FROM plant_events e
  JOIN plants p ON p.id = e.plant_id`

type eventTable struct {
	b *Backend
}

func scanEvent(row interface{ Scan(...any) error }) (*types.PlantEvent, error) {
	var (
		e         types.PlantEvent
		notes     sql.NullString
		createdAt string
		err       error
	)
	if err = row.Scan(&e.ID, &e.PlantID, &e.EventType, &e.EventDate, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	e.Notes = stringPtr(notes)
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ownsPlant returns ErrNotFound unless plantID belongs to userID.
func ownsPlant(ctx context.Context, q queryer, userID, plantID int64) error {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM plants WHERE id = ? AND user_id = ?", plantID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking plant owner: %w", err)
	}
	return nil
}

// eventTypeVisible reports whether name is built-in or one of userID's
// custom types.
func eventTypeVisible(ctx context.Context, q queryer, userID int64, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM event_types WHERE name = ? AND (user_id IS NULL OR user_id = ?) LIMIT 1",
		name, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking event type: %w", err)
	}
	return true, nil
}

func (t *eventTable) ListByPlant(ctx context.Context, userID, plantID int64, eventType string) ([]*types.PlantEvent, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	if err := ownsPlant(ctx, db, userID, plantID); err != nil {
		return nil, err
	}

	query := eventSelect + " WHERE e.plant_id = ? AND p.user_id = ?"
	args := []any{plantID, userID}
	if eventType != "" {
		query += " AND e.event_type = ?"
		args = append(args, eventType)
	}
	query += " ORDER BY e.event_date DESC, e.id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	events := []*types.PlantEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (t *eventTable) Get(ctx context.Context, userID, id int64) (*types.PlantEvent, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanEvent(db.QueryRowContext(ctx,
		eventSelect+" WHERE e.id = ? AND p.user_id = ?", id, userID))
}

// checkWritable validates e and confirms its plant and type are visible to
// userID.
func (t *eventTable) checkWritable(ctx context.Context, q queryer, userID int64, e *types.PlantEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := ownsPlant(ctx, q, userID, e.PlantID); err != nil {
		return err
	}
	ok, err := eventTypeVisible(ctx, q, userID, e.EventType)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrUnknownEventType
	}
	return nil
}

func (t *eventTable) Create(ctx context.Context, userID int64, e *types.PlantEvent) (int64, error) {
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	if err := t.checkWritable(ctx, db, userID, e); err != nil {
		return 0, err
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO plant_events (plant_id, event_type, event_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.PlantID, e.EventType, e.EventDate, nullString(e.Notes), formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrDuplicateEvent
		}
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading event id: %w", err)
	}
	e.ID, e.CreatedAt = id, ts
	return id, nil
}

func (t *eventTable) Update(ctx context.Context, userID int64, e *types.PlantEvent) error {
	existing, err := t.Get(ctx, userID, e.ID)
	if err != nil {
		return err
	}
	// Events never move between plants.
	e.PlantID = existing.PlantID

	db, err := t.b.conn()
	if err != nil {
		return err
	}
	if err := t.checkWritable(ctx, db, userID, e); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE plant_events SET event_type = ?, event_date = ?, notes = ? WHERE id = ?",
		e.EventType, e.EventDate, nullString(e.Notes), e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicateEvent
		}
		return fmt.Errorf("updating event: %w", err)
	}
	e.CreatedAt = existing.CreatedAt
	return affected(res)
}

func (t *eventTable) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM plant_events
		 WHERE id = ? AND plant_id IN (SELECT id FROM plants WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return affected(res)
}

func (t *eventTable) Exists(ctx context.Context, plantID int64, eventType, date string) (bool, error) {
	db, err := t.b.conn()
	if err != nil {
		return false, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM plant_events
		 WHERE plant_id = ? AND event_type = ? AND event_date = ?`,
		plantID, eventType, date).Scan(&n); err != nil {
		return false, fmt.Errorf("checking event: %w", err)
	}
	return n > 0, nil
}
