package types

import (
	"strings"
	"time"
)

// Built-in event type names referenced by code.
const (
	EventWater = "Water"
	EventOther = "Other"
)

// PlantEvent is a dated care action on a plant.
type PlantEvent struct {
	ID        int64     `json:"id"`
	PlantID   int64     `json:"plant_id"`
	EventType string    `json:"event_type"`
	EventDate string    `json:"event_date"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate normalizes the event in place and checks its fields.
func (e *PlantEvent) Validate() error {
	if e.PlantID <= 0 {
		return ErrInvalidID
	}
	e.EventType = strings.TrimSpace(e.EventType)
	if e.EventType == "" {
		return ErrInvalidName
	}
	if !ValidDate(e.EventDate) {
		return ErrInvalidDate
	}
	return nil
}
