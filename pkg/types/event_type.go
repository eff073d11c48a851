package types

import (
	"strings"
	"time"
)

// EventType is a named, emoji-labeled category of plant event. Built-in
// types have no owner.
type EventType struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	IsCustom  bool      `json:"is_custom"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate normalizes the event type in place and checks its fields.
func (et *EventType) Validate() error {
	et.Name = strings.TrimSpace(et.Name)
	if et.Name == "" {
		return ErrInvalidName
	}
	et.Emoji = strings.TrimSpace(et.Emoji)
	if et.Emoji == "" {
		return ErrInvalidEmoji
	}
	return nil
}
