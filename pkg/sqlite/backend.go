// Package sqlite exposes the SQLite Diary backend while keeping the
// implementation internal.
//
// Example:
//
//	diary, err := sqlite.Open(ctx, "/var/lib/plantdiaries/plantdiaries.sqlite")
//	if err != nil {
//	    return err
//	}
//	defer diary.Close()
package sqlite

import (
	"context"

	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// Open opens the database at path, migrating it to the current schema.
func Open(ctx context.Context, path string) (types.Diary, error) {
	b, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return b, nil
}
