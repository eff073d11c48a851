package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

var fixedNow = time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

type fixture struct {
	diary  *sqlite.Backend
	store  *photos.Store
	im     *Importer
	userID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	b, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "plantdiaries.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	uid, err := b.Users().Create(ctx, &types.User{Email: "fern@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	store := photos.NewStore(memfs.New())
	im := New(b, store, nil, metrics.New())
	im.now = func() time.Time { return fixedNow }
	return &fixture{diary: b, store: store, im: im, userID: uid}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const plantsCSV = "\ufeffPlant , Alias,Price,Delivery fee,Purchased from,Purchased when,Recieved when,Notes,Status,Files & media,Last water date\n" +
	"Monstera,Swiss cheese,£25.00,£3.99,Leaf Envy,\"March 9, 2024\",12-Mar-24,Big one,Alive,Monstera/IMG_1.jpg,Oct-27\n" +
	",no name,,,,,,,,,\n" +
	"Calathea,,$12,,,,,,Dead,,\n" +
	"Pothos,,,,,,,,Wilting,,\n"

func TestImportPlants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	media := t.TempDir()
	writeFile(t, filepath.Join(media, "IMG_1.jpg"), "jpeg-bytes")

	res, err := f.im.ImportPlants(ctx, f.userID, strings.NewReader(plantsCSV), PlantOptions{MediaDir: media})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 2, res.Errors)
	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0], "row 3")
	assert.Contains(t, res.Messages[1], "row 5")

	m, err := f.diary.Plants().FindByName(ctx, f.userID, "monstera")
	require.NoError(t, err)
	assert.Equal(t, "Swiss cheese", types.Deref(m.Alias))
	require.NotNil(t, m.Price)
	assert.InDelta(t, 25.0, *m.Price, 1e-9)
	assert.Equal(t, "2024-03-09", types.Deref(m.PurchasedWhen))
	assert.Equal(t, "2024-03-12", types.Deref(m.ReceivedWhen))
	assert.Equal(t, "Big one", types.Deref(m.PurchaseNotes))
	assert.Equal(t, "2025-10-27", types.Deref(m.LastWatered))

	wantPhoto := "/uploads/1/monstera/csv_import_" + "1762171200000" + "_IMG_1.jpg"
	assert.Equal(t, wantPhoto, types.Deref(m.ProfilePhoto))
	ok, err := f.store.Exists(wantPhoto)
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := f.diary.Plants().FindByName(ctx, f.userID, "Calathea")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDead, c.Status)
	assert.Nil(t, c.ProfilePhoto)

	tags, err := f.diary.Tags().List(ctx, f.userID, types.TagPurchasedFrom)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Leaf Envy", tags[0].TagName)
}

func TestImportPlants_ClearExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := &types.Plant{Name: "Old Fern"}
	_, err := f.diary.Plants().Create(ctx, f.userID, old)
	require.NoError(t, err)
	_, _, err = f.store.Save(f.userID, "Old Fern", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	res, err := f.im.ImportPlants(ctx, f.userID,
		strings.NewReader("Plant\nNew Fern\n"), PlantOptions{ClearExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)

	plants, err := f.diary.Plants().List(ctx, f.userID, types.PlantFilter{})
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, "New Fern", plants[0].Name)

	ok, err := f.store.Exists("/uploads/1/old_fern/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImportPlants_EmptyInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.im.ImportPlants(context.Background(), f.userID, strings.NewReader(""), PlantOptions{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

const updatesCSV = "Name,Date,Photo,Update type\n" +
	"Watered well,\"October 1, 2025\",,Watering\n" +
	"Fresh leaf,\"October 5, 2025\",Monstera%20(kitchen)/leaf.jpg,New leaf unfolded\n" +
	"No date,,,Watering\n" +
	"Odd one,\"October 6, 2025\",,Talked to it\n"

func TestImportUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.diary.Plants().Create(ctx, f.userID, &types.Plant{Name: "Monstera"})
	require.NoError(t, err)

	base := t.TempDir()
	writeFile(t, filepath.Join(base, "Monstera (kitchen)", "Monstera_all.csv"), updatesCSV)
	writeFile(t, filepath.Join(base, "Monstera (kitchen)", "leaf.jpg"), "leaf-bytes")
	writeFile(t, filepath.Join(base, "Ghost Plant - old", "Ghost_all.csv"), updatesCSV)
	writeFile(t, filepath.Join(base, ".hidden", "x_all.csv"), updatesCSV)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "No CSV"), 0o755))

	results, err := f.im.ImportUpdates(ctx, f.userID, base)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ghost, monstera := results[0], results[1]
	assert.Equal(t, "Ghost Plant", ghost.Plant)
	assert.True(t, ghost.NotFound)

	assert.Equal(t, "Monstera", monstera.Plant)
	assert.Empty(t, monstera.Error)
	assert.Equal(t, 3, monstera.EventsAdded)
	assert.Equal(t, 0, monstera.EventsSkipped)
	assert.Equal(t, 1, monstera.PhotosAdded)

	events, err := f.diary.Events().ListByPlant(ctx, f.userID, monstera.PlantID, "")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Other", events[0].EventType)
	assert.Equal(t, "New Leaf", events[1].EventType)
	assert.Equal(t, "Fresh leaf", types.Deref(events[1].Notes))

	ph, err := f.diary.Photos().ListByPlant(ctx, f.userID, monstera.PlantID)
	require.NoError(t, err)
	require.Len(t, ph, 1)
	assert.Equal(t, "/uploads/1/monstera/leaf.jpg", ph[0].PhotoPath)
	require.NotNil(t, ph[0].TakenAt)
	assert.Equal(t, "2025-10-05", ph[0].TakenAt.Format(types.DateLayout))

	// A second run adds nothing.
	results, err = f.im.ImportUpdates(ctx, f.userID, base)
	require.NoError(t, err)
	assert.Equal(t, 0, results[1].EventsAdded)
	assert.Equal(t, 3, results[1].EventsSkipped)
	assert.Equal(t, 0, results[1].PhotosAdded)
	assert.Equal(t, 1, results[1].PhotosSkipped)
}

func TestImportUpdates_FailedRowDoesNotStopFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.diary.Plants().Create(ctx, f.userID, &types.Plant{Name: "Pothos"})
	require.NoError(t, err)

	base := t.TempDir()
	csv := "Name,Date,Photo,Update type\n" +
		"Bad photo,\"October 1, 2025\",broken.jpg,Watering\n" +
		"Good photo,\"October 2, 2025\",vine.jpg,Trimmed\n"
	writeFile(t, filepath.Join(base, "Pothos", "Pothos_all.csv"), csv)
	writeFile(t, filepath.Join(base, "Pothos", "vine.jpg"), "vine-bytes")
	// A folder named like an image stats fine but cannot be read.
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Pothos", "broken.jpg"), 0o755))

	results, err := f.im.ImportUpdates(ctx, f.userID, base)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Empty(t, res.Error)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "broken.jpg")
	assert.Equal(t, 2, res.EventsAdded)
	assert.Equal(t, 1, res.PhotosAdded)

	ph, err := f.diary.Photos().ListByPlant(ctx, f.userID, res.PlantID)
	require.NoError(t, err)
	require.Len(t, ph, 1)
	assert.Equal(t, "/uploads/1/pothos/vine.jpg", ph[0].PhotoPath)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.diary.Plants().Create(ctx, f.userID, &types.Plant{Name: "Stale"})
	require.NoError(t, err)
	_, err = f.diary.Tags().Create(ctx, f.userID, &types.Tag{TagName: "Old Shop", TagType: types.TagPurchasedFrom})
	require.NoError(t, err)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "plants.csv")
	writeFile(t, csvPath, "Plant,Purchased from\nMonstera,Leaf Envy\n")
	updates := filepath.Join(dir, "updates")
	writeFile(t, filepath.Join(updates, "Monstera", "m_all.csv"), updatesCSV)

	res, err := f.im.Restore(ctx, f.userID, RestoreOptions{CSVPath: csvPath, UpdatesDir: updates})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Plants.Success)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, 3, res.Updates[0].EventsAdded)

	_, err = f.diary.Plants().FindByName(ctx, f.userID, "Stale")
	assert.ErrorIs(t, err, types.ErrNotFound)

	tags, err := f.diary.Tags().List(ctx, f.userID, "")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Leaf Envy", tags[0].TagName)
}

func TestRestore_MissingCSVKeepsData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.diary.Plants().Create(ctx, f.userID, &types.Plant{Name: "Keep"})
	require.NoError(t, err)

	_, err = f.im.Restore(ctx, f.userID, RestoreOptions{CSVPath: filepath.Join(t.TempDir(), "missing.csv")})
	require.Error(t, err)

	_, err = f.diary.Plants().FindByName(ctx, f.userID, "Keep")
	assert.NoError(t, err)
}
