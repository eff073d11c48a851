package types

import (
	"context"
	"errors"
)

// UserTable stores accounts and their single refresh token slot.
type UserTable interface {
	// Create inserts a new user. Email is stored lower-cased.
	// Returns ErrEmailTaken if the address is already registered.
	Create(ctx context.Context, u *User) (int64, error)

	// CreateAdmin inserts the administrator with id 1. Returns the existing
	// user and created=false when id 1 is already taken.
	CreateAdmin(ctx context.Context, u *User) (user *User, created bool, err error)

	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)

	// SetRefreshToken replaces the stored refresh token. An empty token
	// clears the slot.
	SetRefreshToken(ctx context.Context, id int64, token string) error

	// MatchRefreshToken returns the user only if token is the one stored.
	MatchRefreshToken(ctx context.Context, id int64, token string) (*User, error)

	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// PlantTable provides owner-scoped CRUD over plants.
type PlantTable interface {
	List(ctx context.Context, userID int64, filter PlantFilter) ([]*Plant, error)
	Get(ctx context.Context, userID, id int64) (*Plant, error)

	// FindByName matches the plant name case-insensitively.
	FindByName(ctx context.Context, userID int64, name string) (*Plant, error)

	Create(ctx context.Context, userID int64, p *Plant) (int64, error)
	Update(ctx context.Context, userID int64, p *Plant) error
	Delete(ctx context.Context, userID, id int64) error

	// DeleteAll removes every plant of the user. Events and photos cascade.
	DeleteAll(ctx context.Context, userID int64) (int64, error)

	// All returns every plant of every user, for maintenance jobs.
	All(ctx context.Context) ([]*Plant, error)

	SetProfilePhoto(ctx context.Context, id int64, path string) error
}

// EventTable provides owner-scoped CRUD over plant events.
type EventTable interface {
	// ListByPlant returns events newest first. An empty eventType matches all.
	ListByPlant(ctx context.Context, userID, plantID int64, eventType string) ([]*PlantEvent, error)
	Get(ctx context.Context, userID, id int64) (*PlantEvent, error)

	// Create returns ErrDuplicateEvent when the plant already has an event of
	// the same type on the same date, and ErrUnknownEventType when the type
	// is neither built-in nor one of the user's custom types.
	Create(ctx context.Context, userID int64, e *PlantEvent) (int64, error)
	Update(ctx context.Context, userID int64, e *PlantEvent) error
	Delete(ctx context.Context, userID, id int64) error

	Exists(ctx context.Context, plantID int64, eventType, date string) (bool, error)
}

// PhotoTable provides owner-scoped CRUD over plant photos.
type PhotoTable interface {
	// ListByPlant returns photos newest first.
	ListByPlant(ctx context.Context, userID, plantID int64) ([]*PlantPhoto, error)
	Get(ctx context.Context, userID, id int64) (*PlantPhoto, error)
	Create(ctx context.Context, userID int64, p *PlantPhoto) (int64, error)

	// Update changes only caption and taken_at.
	Update(ctx context.Context, userID int64, p *PlantPhoto) error
	Delete(ctx context.Context, userID, id int64) error

	// All returns every photo joined with its plant owner, for maintenance.
	All(ctx context.Context) ([]*PhotoRecord, error)
	UpdatePath(ctx context.Context, id int64, path string) error
	DeleteByID(ctx context.Context, id int64) error
	ExistsByBasename(ctx context.Context, plantID int64, base string) (bool, error)
}

// TagTable provides owner-scoped tags.
type TagTable interface {
	// List returns tags ordered by name. An empty tagType matches all.
	List(ctx context.Context, userID int64, tagType TagType) ([]*Tag, error)
	Create(ctx context.Context, userID int64, t *Tag) (int64, error)

	// Ensure creates the tag unless one with the same name exists.
	Ensure(ctx context.Context, userID int64, t *Tag) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}

// EventTypeTable exposes built-in event types plus each user's custom ones.
type EventTypeTable interface {
	// List returns built-ins first, then the user's custom types, by name.
	List(ctx context.Context, userID int64) ([]*EventType, error)
	Create(ctx context.Context, userID int64, et *EventType) (int64, error)

	// Delete removes one of the user's custom types. Built-in and foreign
	// types report ErrNotFound.
	Delete(ctx context.Context, userID, id int64) error
	Visible(ctx context.Context, userID int64, name string) (bool, error)
}

// Table operation errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
)

// Entity validation and conflict errors.
var (
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidStatus      = errors.New("invalid plant status")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrInvalidTagType     = errors.New("invalid tag type")
	ErrInvalidEmoji       = errors.New("emoji must not be empty")
	ErrInvalidPath        = errors.New("invalid photo path")
	ErrDuplicateEvent     = errors.New("an event of this type already exists for this plant on this date")
	ErrDuplicateTag       = errors.New("tag already exists")
	ErrDuplicateEventType = errors.New("event type already exists")
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrBuiltInEventType   = errors.New("built-in event types cannot be changed")
)

// Account errors.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 6 characters and at most 72 bytes")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
