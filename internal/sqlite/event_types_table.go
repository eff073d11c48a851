package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

const eventTypeColumns = "id, user_id, name, emoji, is_custom, created_at"

type eventTypeTable struct {
	b *Backend
}

func scanEventType(row interface{ Scan(...any) error }) (*types.EventType, error) {
	var (
		et        types.EventType
		userID    sql.NullInt64
		createdAt string
		err       error
	)
	if err = row.Scan(&et.ID, &userID, &et.Name, &et.Emoji, &et.IsCustom, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning event type: %w", err)
	}
	if userID.Valid {
		id := userID.Int64
		et.UserID = &id
	}
	if et.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &et, nil
}

func (t *eventTypeTable) List(ctx context.Context, userID int64) ([]*types.EventType, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+eventTypeColumns+` FROM event_types
		 WHERE user_id IS NULL OR user_id = ?
		 ORDER BY is_custom ASC, name COLLATE NOCASE ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing event types: %w", err)
	}
	defer rows.Close()

	list := []*types.EventType{}
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, et)
	}
	return list, rows.Err()
}

// Create adds a custom event type for userID. A name matching a built-in or
// an existing custom type of the user, ignoring case, is a duplicate.
func (t *eventTypeTable) Create(ctx context.Context, userID int64, et *types.EventType) (int64, error) {
	if err := et.Validate(); err != nil {
		return 0, err
	}
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM event_types
		 WHERE lower(name) = lower(?) AND (user_id IS NULL OR user_id = ?)`,
		et.Name, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("checking event type: %w", err)
	}
	if n > 0 {
		return 0, types.ErrDuplicateEventType
	}

	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO event_types (user_id, name, emoji, is_custom, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		userID, et.Name, et.Emoji, formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrDuplicateEventType
		}
		return 0, fmt.Errorf("inserting event type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading event type id: %w", err)
	}
	uid := userID
	et.ID, et.UserID, et.IsCustom, et.CreatedAt = id, &uid, true, ts
	return id, nil
}

// Delete removes a custom type of userID. Built-in types report
// ErrNotFound wrapped with ErrBuiltInEventType.
func (t *eventTypeTable) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	et, err := scanEventType(db.QueryRowContext(ctx,
		"SELECT "+eventTypeColumns+" FROM event_types WHERE id = ?", id))
	if err != nil {
		return err
	}
	if et.UserID == nil {
		return fmt.Errorf("%w: %w", types.ErrNotFound, types.ErrBuiltInEventType)
	}
	if *et.UserID != userID {
		return types.ErrNotFound
	}
	res, err := db.ExecContext(ctx,
		"DELETE FROM event_types WHERE id = ? AND user_id = ? AND is_custom = 1", id, userID)
	if err != nil {
		return fmt.Errorf("deleting event type: %w", err)
	}
	return affected(res)
}

func (t *eventTypeTable) Visible(ctx context.Context, userID int64, name string) (bool, error) {
	db, err := t.b.conn()
	if err != nil {
		return false, err
	}
	return eventTypeVisible(ctx, db, userID, name)
}
