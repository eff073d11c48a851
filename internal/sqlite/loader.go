package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// backupTables lists each table with the columns carried in backups, in
// foreign key order.
var backupTables = []struct {
	table   string
	columns []string
}{
	{types.UsersTable, []string{"id", "email", "password_hash", "display_name", "is_admin", "refresh_token", "created_at", "updated_at"}},
	{types.PlantsTable, []string{"id", "user_id", "name", "alias", "price", "delivery_fee", "purchased_from", "purchased_when", "received_when", "purchase_notes", "status", "profile_photo", "created_at", "updated_at"}},
	{types.EventsTable, []string{"id", "plant_id", "event_type", "event_date", "notes", "created_at"}},
	{types.PhotosTable, []string{"id", "plant_id", "photo_path", "caption", "taken_at", "created_at"}},
	{types.TagsTable, []string{"id", "user_id", "tag_name", "tag_type", "created_at"}},
	{types.EventTypesTable, []string{"id", "user_id", "name", "emoji", "is_custom", "created_at"}},
}

// BackupStats counts rows per table moved by Export or Import.
type BackupStats map[string]int

// Export writes one <table>.jsonl file per table into dir. Each file is
// replaced atomically.
func (b *Backend) Export(ctx context.Context, dir string) (BackupStats, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	stats := BackupStats{}
	for _, m := range backupTables {
		records, err := selectRecords(ctx, db, m.table, m.columns)
		if err != nil {
			return nil, err
		}
		if err := writeJSONL(filepath.Join(dir, m.table+jsonlExt), records); err != nil {
			return nil, fmt.Errorf("writing %s: %w", m.table, err)
		}
		stats[m.table] = len(records)
	}
	return stats, nil
}

func selectRecords(ctx context.Context, db *sql.DB, table string, columns []string) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY id",
		strings.Join(columns, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			if raw, ok := values[i].([]byte); ok {
				rec[col] = string(raw)
				continue
			}
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Import loads every <table>.jsonl file from dir inside one transaction.
// The database must not hold users yet. Foreign key checks are deferred to
// commit; rows that violate constraints, malformed lines and unknown fields
// are skipped. Built-in event types are reseeded afterwards.
func (b *Backend) Import(ctx context.Context, dir string) (BackupStats, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var users int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if users > 0 {
		return nil, types.ErrDiaryNotEmpty
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("deferring foreign keys: %w", err)
	}
	// The backup carries its own copy of the built-in types.
	if _, err := tx.ExecContext(ctx, "DELETE FROM event_types"); err != nil {
		return nil, fmt.Errorf("clearing event types: %w", err)
	}

	stats := BackupStats{}
	for _, m := range backupTables {
		records, err := readJSONL(filepath.Join(dir, m.table+jsonlExt))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", m.table, err)
		}
		n, err := insertRecords(ctx, tx, m.table, m.columns, records)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", m.table, err)
		}
		stats[m.table] = n
	}

	if err := seedEventTypes(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing load transaction: %w", err)
	}
	return stats, nil
}

// insertRecords inserts the listed columns of each record and returns the
// number of rows stored. Fields not in columns are ignored.
func insertRecords(ctx context.Context, tx *sql.Tx, table string, columns []string, records []map[string]any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	n := 0
	for _, rec := range records {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = columnValue(rec[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			continue
		}
		n++
	}
	return n, nil
}

// columnValue converts a decoded JSON value into a SQLite argument.
func columnValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case map[string]any, []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(raw)
	default:
		return val
	}
}
