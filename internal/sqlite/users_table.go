package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// AdminUserID is the fixed id of the seeded administrator.
const AdminUserID int64 = 1

const userColumns = `id, email, password_hash, display_name, is_admin, refresh_token, created_at, updated_at`

type userTable struct {
	b *Backend
}

func scanUser(row interface{ Scan(...any) error }) (*types.User, error) {
	var (
		u                    types.User
		displayName, token   sql.NullString
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&u.ID, &u.Email, &u.PasswordHash, &displayName, &u.IsAdmin,
		&token, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.DisplayName = stringPtr(displayName)
	u.RefreshToken = stringPtr(token)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *userTable) Create(ctx context.Context, u *types.User) (int64, error) {
	db, err := t.b.conn()
	if err != nil {
		return 0, err
	}
	u.Email = types.NormalizeEmail(u.Email)
	if u.Email == "" || u.PasswordHash == "" {
		return 0, types.ErrInvalidData
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, display_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, nullString(u.DisplayName), u.IsAdmin,
		formatTime(ts), formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrEmailTaken
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading user id: %w", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = id, ts, ts
	return id, nil
}

// CreateAdmin inserts u with id 1. SQLite advances the AUTOINCREMENT
// sequence past an explicit id, so the next registered user gets id 2.
func (t *userTable) CreateAdmin(ctx context.Context, u *types.User) (*types.User, bool, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, false, err
	}
	existing, err := t.Get(ctx, AdminUserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, false, err
	}

	u.Email = types.NormalizeEmail(u.Email)
	if u.Email == "" || u.PasswordHash == "" {
		return nil, false, types.ErrInvalidData
	}
	ts := now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		AdminUserID, u.Email, u.PasswordHash, nullString(u.DisplayName),
		formatTime(ts), formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, types.ErrEmailTaken
		}
		return nil, false, fmt.Errorf("inserting admin: %w", err)
	}
	u.ID, u.IsAdmin, u.CreatedAt, u.UpdatedAt = AdminUserID, true, ts, ts
	return u, true, nil
}

func (t *userTable) Get(ctx context.Context, id int64) (*types.User, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (t *userTable) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", types.NormalizeEmail(email)))
}

func (t *userTable) List(ctx context.Context) ([]*types.User, error) {
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (t *userTable) SetRefreshToken(ctx context.Context, id int64, token string) error {
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	var value any
	if token != "" {
		value = token
	}
	res, err := db.ExecContext(ctx,
		"UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?",
		value, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return affected(res)
}

func (t *userTable) MatchRefreshToken(ctx context.Context, id int64, token string) (*types.User, error) {
	if token == "" {
		return nil, types.ErrInvalidToken
	}
	db, err := t.b.conn()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND refresh_token = ?", id, token))
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.ErrInvalidToken
	}
	return u, err
}

func (t *userTable) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if hash == "" {
		return types.ErrInvalidData
	}
	db, err := t.b.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return affected(res)
}
