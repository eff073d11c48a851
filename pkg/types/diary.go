package types

import "errors"

// Diary is the storage root. Callers open a backend, reach tables through
// the accessors, and close it when done.
type Diary interface {
	Users() UserTable
	Plants() PlantTable
	Events() EventTable
	Photos() PhotoTable
	Tags() TagTable
	EventTypes() EventTypeTable

	// Close releases backend resources. Idempotent.
	Close() error
}

// Diary lifecycle errors.
var (
	ErrDiaryClosed   = errors.New("diary is closed")
	ErrDiaryNotEmpty = errors.New("diary already holds user data")
)
