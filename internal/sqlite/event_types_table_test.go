package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

func TestEventTypes_BuiltInsListedFirst(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	uid := createTestUser(t, b, "a@example.com")

	_, err := b.EventTypes().Create(ctx, uid, &types.EventType{Name: "Fertilize", Emoji: "🧪"})
	require.NoError(t, err)
	_, err = b.EventTypes().Create(ctx, uid, &types.EventType{Name: "Bloom", Emoji: "🌸"})
	require.NoError(t, err)

	list, err := b.EventTypes().List(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, len(builtInEventTypes)+2)

	builtins := list[:len(builtInEventTypes)]
	names := make([]string, len(builtins))
	for i, et := range builtins {
		names[i] = et.Name
		assert.False(t, et.IsCustom)
		assert.Nil(t, et.UserID)
	}
	assert.ElementsMatch(t, BuiltInEventTypeNames(), names)
	assert.Equal(t, []string{"New Leaf", "Other", "Pest control", "Propagate", "Repot", "Root Rot", "Trim", "Water"},
		names, "built-ins are ordered by name")
	assert.Equal(t, "Bloom", list[len(list)-2].Name)
	assert.Equal(t, "Fertilize", list[len(list)-1].Name)
	assert.True(t, list[len(list)-1].IsCustom)
}

func TestEventTypes_CreateDuplicates(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	uid := createTestUser(t, b, "a@example.com")
	bob := createTestUser(t, b, "bob@example.com")

	tests := []struct {
		name string
		user int64
		et   types.EventType
		want error
	}{
		{"new custom type", uid, types.EventType{Name: "Mist", Emoji: "🌫️"}, nil},
		{"same name again", uid, types.EventType{Name: "mist", Emoji: "💨"}, types.ErrDuplicateEventType},
		{"built-in name", uid, types.EventType{Name: "water", Emoji: "🚿"}, types.ErrDuplicateEventType},
		{"other user may reuse name", bob, types.EventType{Name: "Mist", Emoji: "🌫️"}, nil},
		{"missing emoji", uid, types.EventType{Name: "Rotate"}, types.ErrInvalidEmoji},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.EventTypes().Create(ctx, tt.user, &tt.et)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEventTypes_Delete(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	uid := createTestUser(t, b, "a@example.com")
	bob := createTestUser(t, b, "bob@example.com")

	id, err := b.EventTypes().Create(ctx, uid, &types.EventType{Name: "Mist", Emoji: "🌫️"})
	require.NoError(t, err)

	list, err := b.EventTypes().List(ctx, uid)
	require.NoError(t, err)
	builtin := list[0]
	assert.False(t, builtin.IsCustom)

	err = b.EventTypes().Delete(ctx, uid, builtin.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, err, types.ErrBuiltInEventType)

	assert.ErrorIs(t, b.EventTypes().Delete(ctx, bob, id), types.ErrNotFound)
	require.NoError(t, b.EventTypes().Delete(ctx, uid, id))

	ok, err := b.EventTypes().Visible(ctx, uid, "Mist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeedEventTypes_Idempotent(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	require.NoError(t, seedEventTypes(ctx, b.db))
	require.NoError(t, seedEventTypes(ctx, b.db))

	var n int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM event_types").Scan(&n))
	assert.Equal(t, len(builtInEventTypes), n)
}
