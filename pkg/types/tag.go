package types

import (
	"strings"
	"time"
)

// TagType groups tags by what they label.
type TagType string

// Tag types.
const (
	TagPurchasedFrom TagType = "purchased_from"
	TagStatus        TagType = "status"
	TagOther         TagType = "other"
)

// ParseTagType validates a tag type. It does not default empty values.
func ParseTagType(s string) (TagType, error) {
	switch TagType(strings.TrimSpace(s)) {
	case TagPurchasedFrom:
		return TagPurchasedFrom, nil
	case TagStatus:
		return TagStatus, nil
	case TagOther:
		return TagOther, nil
	}
	return "", ErrInvalidTagType
}

// Tag is a reusable label such as a vendor name.
type Tag struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TagName   string    `json:"tag_name"`
	TagType   TagType   `json:"tag_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate normalizes the tag in place and checks its fields.
func (t *Tag) Validate() error {
	t.TagName = strings.TrimSpace(t.TagName)
	if t.TagName == "" {
		return ErrInvalidName
	}
	tt, err := ParseTagType(string(t.TagType))
	if err != nil {
		return err
	}
	t.TagType = tt
	return nil
}
