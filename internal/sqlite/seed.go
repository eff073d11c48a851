package sqlite

import (
	"context"
	"fmt"
)

// builtInEventType describes an event type seeded for every user.
type builtInEventType struct {
	name  string
	emoji string
}

// builtInEventTypes are seeded on every open.
var builtInEventTypes = []builtInEventType{
	{"Water", "💧"},
	{"Trim", "✂️"},
	{"Repot", "🪴"},
	{"Propagate", "🌱"},
	{"New Leaf", "🍃"},
	{"Pest control", "🐛"},
	{"Root Rot", "🦠"},
	{"Other", "📝"},
}

// BuiltInEventTypeNames returns the names of the seeded event types.
func BuiltInEventTypeNames() []string {
	names := make([]string, len(builtInEventTypes))
	for i, et := range builtInEventTypes {
		names[i] = et.name
	}
	return names
}

// seedEventTypes inserts any missing built-in event types. Existing rows are
// left alone, so seeding is idempotent.
func seedEventTypes(ctx context.Context, q queryer) error {
	ts := formatTime(now())
	for _, et := range builtInEventTypes {
		_, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO event_types (user_id, name, emoji, is_custom, created_at)
			VALUES (NULL, ?, ?, 0, ?)`,
			et.name, et.emoji, ts)
		if err != nil {
			return fmt.Errorf("seeding event type %s: %w", et.name, err)
		}
	}
	return nil
}
