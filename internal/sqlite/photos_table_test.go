package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

func TestPhotos_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	uid := createTestUser(t, b, "a@example.com")
	pid := createTestPlant(t, b, uid, "Fern")

	taken := time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC)
	ph := &types.PlantPhoto{PlantID: pid, PhotoPath: "/uploads/1/fern/a.jpg", TakenAt: &taken}
	id, err := b.Photos().Create(ctx, uid, ph)
	require.NoError(t, err)

	got, err := b.Photos().Get(ctx, uid, id)
	require.NoError(t, err)
	require.NotNil(t, got.TakenAt)
	assert.True(t, taken.Equal(*got.TakenAt))

	noDate := &types.PlantPhoto{PlantID: pid, PhotoPath: "/uploads/1/fern/b.jpg"}
	_, err = b.Photos().Create(ctx, uid, noDate)
	require.NoError(t, err)
	assert.NotNil(t, noDate.TakenAt, "taken_at defaults to now")

	got.Caption = strPtr("first leaf")
	got.TakenAt = nil
	require.NoError(t, b.Photos().Update(ctx, uid, got))
	got, err = b.Photos().Get(ctx, uid, id)
	require.NoError(t, err)
	assert.Equal(t, "first leaf", *got.Caption)
	assert.True(t, taken.Equal(*got.TakenAt), "nil taken_at keeps the stored value")

	list, err := b.Photos().ListByPlant(ctx, uid, pid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, noDate.ID, list[0].ID)

	ok, err := b.Photos().ExistsByBasename(ctx, pid, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Photos().ExistsByBasename(ctx, pid, "c.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Photos().Delete(ctx, uid, id))
	_, err = b.Photos().Get(ctx, uid, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPhotos_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	alice := createTestUser(t, b, "alice@example.com")
	bob := createTestUser(t, b, "bob@example.com")
	pid := createTestPlant(t, b, alice, "Fern")

	_, err := b.Photos().Create(ctx, bob, &types.PlantPhoto{PlantID: pid, PhotoPath: "/uploads/x.jpg"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	id, err := b.Photos().Create(ctx, alice, &types.PlantPhoto{PlantID: pid, PhotoPath: "/uploads/1/fern/a.jpg"})
	require.NoError(t, err)

	_, err = b.Photos().Get(ctx, bob, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, b.Photos().Update(ctx, bob, &types.PlantPhoto{ID: id}), types.ErrNotFound)
	assert.ErrorIs(t, b.Photos().Delete(ctx, bob, id), types.ErrNotFound)
}

func TestPhotos_MaintenanceAccess(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	uid := createTestUser(t, b, "a@example.com")
	pid := createTestPlant(t, b, uid, "Bird of Paradise")

	id, err := b.Photos().Create(ctx, uid, &types.PlantPhoto{PlantID: pid, PhotoPath: "/uploads/bird_of_paradise/a.jpg"})
	require.NoError(t, err)

	all, err := b.Photos().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uid, all[0].UserID)
	assert.Equal(t, "Bird of Paradise", all[0].PlantName)
	assert.Equal(t, id, all[0].ID)

	require.NoError(t, b.Photos().UpdatePath(ctx, id, "/uploads/1/bird_of_paradise/a.jpg"))
	got, err := b.Photos().Get(ctx, uid, id)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1/bird_of_paradise/a.jpg", got.PhotoPath)

	require.NoError(t, b.Photos().DeleteByID(ctx, id))
	assert.ErrorIs(t, b.Photos().DeleteByID(ctx, id), types.ErrNotFound)
}
