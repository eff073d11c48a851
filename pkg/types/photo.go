package types

import (
	"strings"
	"time"
)

// PlantPhoto is an image attached to a plant. PhotoPath is the public
// /uploads/... path of the file.
type PlantPhoto struct {
	ID        int64      `json:"id"`
	PlantID   int64      `json:"plant_id"`
	PhotoPath string     `json:"photo_path"`
	Caption   *string    `json:"caption"`
	TakenAt   *time.Time `json:"taken_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks the fields required on creation.
func (p *PlantPhoto) Validate() error {
	if p.PlantID <= 0 {
		return ErrInvalidID
	}
	p.PhotoPath = strings.TrimSpace(p.PhotoPath)
	if p.PhotoPath == "" {
		return ErrInvalidPath
	}
	return nil
}

// PhotoRecord is a photo together with the plant it belongs to.
type PhotoRecord struct {
	PlantPhoto
	UserID    int64
	PlantName string
}
