package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL for all tables, in foreign key order.
const (
	createUsers = `CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name TEXT,
    is_admin INTEGER NOT NULL DEFAULT 0,
    refresh_token TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createPlants = `CREATE TABLE plants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    alias TEXT,
    price REAL,
    delivery_fee REAL,
    purchased_from TEXT,
    purchased_when TEXT,
    received_when TEXT,
    purchase_notes TEXT,
    status TEXT NOT NULL DEFAULT 'Alive'
        CHECK (status IN ('Alive', 'Dead', 'Binned', 'GaveAway')),
    profile_photo TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`

	createPlantEvents = `CREATE TABLE plant_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plant_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    event_date TEXT NOT NULL,
    notes TEXT,
    created_at TEXT NOT NULL,
    UNIQUE (plant_id, event_type, event_date),
    FOREIGN KEY (plant_id) REFERENCES plants(id) ON DELETE CASCADE
);`

	createPlantPhotos = `CREATE TABLE plant_photos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plant_id INTEGER NOT NULL,
    photo_path TEXT NOT NULL,
    caption TEXT,
    taken_at TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (plant_id) REFERENCES plants(id) ON DELETE CASCADE
);`

	createTags = `CREATE TABLE tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    tag_name TEXT NOT NULL,
    tag_type TEXT NOT NULL
        CHECK (tag_type IN ('purchased_from', 'status', 'other')),
    created_at TEXT NOT NULL,
    UNIQUE (user_id, tag_name),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`

	createEventTypes = `CREATE TABLE event_types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    name TEXT NOT NULL,
    emoji TEXT NOT NULL,
    is_custom INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxPlantsUser          = `CREATE INDEX idx_plants_user ON plants(user_id);`
	idxPlantsUserStatus    = `CREATE INDEX idx_plants_user_status ON plants(user_id, status);`
	idxPlantEventsPlant    = `CREATE INDEX idx_plant_events_plant ON plant_events(plant_id, event_date);`
	idxPlantEventsType     = `CREATE INDEX idx_plant_events_type ON plant_events(event_type);`
	idxPlantPhotosPlant    = `CREATE INDEX idx_plant_photos_plant ON plant_photos(plant_id);`
	idxTagsUserType        = `CREATE INDEX idx_tags_user_type ON tags(user_id, tag_type);`
	idxEventTypesOwnerName = `CREATE UNIQUE INDEX idx_event_types_owner_name ON event_types(ifnull(user_id, 0), name);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createUsers,
	createPlants,
	createPlantEvents,
	createPlantPhotos,
	createTags,
	createEventTypes,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxPlantsUser,
	idxPlantsUserStatus,
	idxPlantEventsPlant,
	idxPlantEventsType,
	idxPlantPhotosPlant,
	idxTagsUserType,
	idxEventTypesOwnerName,
}

// retiredEventType is removed, with every event using it, by schema version 2.
const retiredEventType = "General Update"

// migration upgrades the schema by one version inside a transaction.
type migration func(ctx context.Context, tx *sql.Tx) error

// migrations are indexed by the version they upgrade from; applying
// migrations[i] leaves the database at user_version i+1.
var migrations = []migration{
	createSchema,
	dropRetiredEventType,
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

func createSchema(ctx context.Context, tx *sql.Tx) error {
	for _, ddl := range schemaDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func dropRetiredEventType(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM plant_events WHERE event_type = ?", retiredEventType); err != nil {
		return fmt.Errorf("deleting %s events: %w", retiredEventType, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM event_types WHERE name = ?", retiredEventType); err != nil {
		return fmt.Errorf("deleting %s event type: %w", retiredEventType, err)
	}
	return nil
}

// userVersion reads PRAGMA user_version.
func userVersion(ctx context.Context, q queryer) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// migrate applies every pending migration, one transaction per version.
func migrate(ctx context.Context, db *sql.DB) error {
	current, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration to version %d: %w", v+1, err)
		}
		if err := migrations[v](ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrating to version %d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("setting schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration to version %d: %w", v+1, err)
		}
	}
	return nil
}
