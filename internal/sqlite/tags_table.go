package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

const tagColumns = "id, user_id, tag_name, tag_type, created_at"

type tagTable struct {
	b *Backend
}

func scanTag(row interface{ Scan(...any) error }) (*types.Tag, error) {
	var (
		tag       types.Tag
		tagType   string
		createdAt string
		err       error
	)
	if err = row.Scan(&tag.ID, &tag.UserID, &tag.TagName, &tagType, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning tag: %w", err)
	}
	tag.TagType = types.TagType(tagType)
	if tag.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (t *tagTable) List(ctx context.Context, userID int64, tagType types.TagType) ([]*types.Tag, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	query := "SELECT " + tagColumns + " FROM tags WHERE user_id = ?"
	args := []any{userID}
	if tagType != "" {
		if _, err := types.ParseTagType(string(tagType)); err != nil {
			return nil, err
		}
		query += " AND tag_type = ?"
		args = append(args, string(tagType))
	}
	query += " ORDER BY tag_name COLLATE NOCASE, id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []*types.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (t *tagTable) Create(ctx context.Context, userID int64, tag *types.Tag) (int64, error) {
	if err := tag.Validate(); err != nil {
		return 0, err
	}
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	ts := now()
	res, err := db.ExecContext(ctx,
		"INSERT INTO tags (user_id, tag_name, tag_type, created_at) VALUES (?, ?, ?, ?)",
		userID, tag.TagName, string(tag.TagType), formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrDuplicateTag
		}
		return 0, fmt.Errorf("inserting tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading tag id: %w", err)
	}
	tag.ID, tag.UserID, tag.CreatedAt = id, userID, ts
	return id, nil
}

func (t *tagTable) Ensure(ctx context.Context, userID int64, tag *types.Tag) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"INSERT OR IGNORE INTO tags (user_id, tag_name, tag_type, created_at) VALUES (?, ?, ?, ?)",
		userID, tag.TagName, string(tag.TagType), formatTime(now()))
	if err != nil {
		return fmt.Errorf("ensuring tag: %w", err)
	}
	return nil
}

func (t *tagTable) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM tags WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return affected(res)
}

func (t *tagTable) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM tags WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("deleting tags: %w", err)
	}
	return res.RowsAffected()
}
