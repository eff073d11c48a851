package types

import (
	"strings"
	"time"
)

// PlantStatus is the lifecycle state of a plant.
type PlantStatus string

// Plant statuses.
const (
	StatusAlive    PlantStatus = "Alive"
	StatusDead     PlantStatus = "Dead"
	StatusBinned   PlantStatus = "Binned"
	StatusGaveAway PlantStatus = "GaveAway"
)

// validStatuses maps folded spellings to the canonical status.
var validStatuses = map[string]PlantStatus{
	"alive":     StatusAlive,
	"dead":      StatusDead,
	"binned":    StatusBinned,
	"gaveaway":  StatusGaveAway,
	"gave away": StatusGaveAway,
}

// ParseStatus maps s to a PlantStatus, ignoring case. An empty value means
// Alive.
func ParseStatus(s string) (PlantStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusAlive, nil
	}
	if st, ok := validStatuses[s]; ok {
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Plant is a tracked houseplant.
type Plant struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Name          string      `json:"name"`
	Alias         *string     `json:"alias"`
	Price         *float64    `json:"price"`
	DeliveryFee   *float64    `json:"delivery_fee"`
	PurchasedFrom *string     `json:"purchased_from"`
	PurchasedWhen *string     `json:"purchased_when"`
	ReceivedWhen  *string     `json:"received_when"`
	PurchaseNotes *string     `json:"purchase_notes"`
	Status        PlantStatus `json:"status"`
	ProfilePhoto  *string     `json:"profile_photo"`

	// LastWatered is derived from the newest Water event; never stored.
	LastWatered *string `json:"last_watered"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate normalizes the plant in place and checks its fields.
func (p *Plant) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrInvalidName
	}
	st, err := ParseStatus(string(p.Status))
	if err != nil {
		return err
	}
	p.Status = st
	if (p.Price != nil && *p.Price < 0) || (p.DeliveryFee != nil && *p.DeliveryFee < 0) {
		return ErrNegativeAmount
	}
	for _, d := range []*string{p.PurchasedWhen, p.ReceivedWhen} {
		if d != nil && !ValidDate(*d) {
			return ErrInvalidDate
		}
	}
	return nil
}

// PlantSort names a sortable plant column.
type PlantSort string

// Sortable columns.
const (
	SortName          PlantSort = "name"
	SortPurchasedWhen PlantSort = "purchased_when"
	SortReceivedWhen  PlantSort = "received_when"
	SortLastWatered   PlantSort = "last_watered"
)

// SortOrder is ascending or descending.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// PlantFilter narrows and orders a plant listing. Zero values mean no
// filtering and name ascending.
type PlantFilter struct {
	Status        PlantStatus
	PurchasedFrom string
	Query         string
	Sort          PlantSort
	Order         SortOrder
}

// Normalize fills defaults and rejects unknown sort keys.
func (f *PlantFilter) Normalize() error {
	switch f.Sort {
	case "":
		f.Sort = SortName
	case SortName, SortPurchasedWhen, SortReceivedWhen, SortLastWatered:
	default:
		return ErrInvalidData
	}
	switch strings.ToLower(string(f.Order)) {
	case "", string(OrderAsc):
		f.Order = OrderAsc
	case string(OrderDesc):
		f.Order = OrderDesc
	default:
		return ErrInvalidData
	}
	if f.Status != "" {
		st, err := ParseStatus(string(f.Status))
		if err != nil {
			return err
		}
		f.Status = st
	}
	return nil
}
