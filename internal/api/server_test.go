package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	srv    *Server
	diary  *sqlite.Backend
	store  *photos.Store
	issuer *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "plantdiaries.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	issuer, err := auth.NewIssuer(auth.IssuerConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	require.NoError(t, err)

	store := photos.NewStore(memfs.New())
	srv := New(Deps{
		Diary:    b,
		Store:    store,
		Issuer:   issuer,
		Throttle: auth.NewThrottle(100, 100),
		Metrics:  metrics.New(),
	}, Options{CORSOrigins: []string{"*"}, MaxUploadBytes: 1 << 20})
	return &testServer{t: t, srv: srv, diary: b, store: store, issuer: issuer}
}

// do sends a JSON request. A nil body sends none.
func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// multipart sends files under field plus plain form values.
func (ts *testServer) multipart(path, token, field string, files map[string][]byte, values map[string]string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(ts.t, err)
		_, err = part.Write(data)
		require.NoError(ts.t, err)
	}
	for k, v := range values {
		require.NoError(ts.t, w.WriteField(k, v))
	}
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its access token.
func (ts *testServer) register(email string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp sessionResponse
	decode(ts.t, rec, &resp)
	return resp.AccessToken
}

func (ts *testServer) createPlant(token string, body gin.H) *types.Plant {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/plants", token, body)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p types.Plant
	decode(ts.t, rec, &p)
	return &p
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "My Plant Diaries API is running", body["message"])
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", errorOf(t, rec))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "Fern@Example.com", "password": "secret123", "displayName": "Fern",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg sessionResponse
	decode(t, rec, &reg)
	assert.Equal(t, "fern@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)

	rec = ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "fern@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "fern@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "fern@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login sessionResponse
	decode(t, rec, &login)
	assert.Equal(t, "Login successful", login.Message)

	rec = ts.do(http.MethodGet, "/api/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"fern@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	// Login replaced the stored refresh token.
	rec = ts.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "accessToken")

	rec = ts.do(http.MethodPost, "/api/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing email", gin.H{"password": "secret123"}},
		{"bad email", gin.H{"email": "not-an-email", "password": "secret123"}},
		{"short password", gin.H{"email": "a@example.com", "password": "abc"}},
		{"password over 72 bytes", gin.H{"email": "a@example.com", "password": strings.Repeat("p", 80)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	rec := ts.do(http.MethodPut, "/api/auth/password", token, gin.H{"currentPassword": "wrong", "newPassword": "another1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(http.MethodPut, "/api/auth/password", token, gin.H{"currentPassword": "secret123", "newPassword": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodPut, "/api/auth/password", token, gin.H{"currentPassword": "secret123", "newPassword": strings.Repeat("p", 80)})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPut, "/api/auth/password", token, gin.H{"currentPassword": "secret123", "newPassword": "another1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "fern@example.com", "password": "another1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginThrottle(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.throttle = auth.NewThrottle(0.001, 2)
	ts.register("fern@example.com")

	body := gin.H{"email": "fern@example.com", "password": "wrong-one"}
	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodPost, "/api/auth/login", "", body).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/plants", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(http.MethodGet, "/api/plants", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlantsCRUD(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	p := ts.createPlant(token, gin.H{
		"name": "Monstera", "price": 25, "purchased_from": "Leaf Envy", "purchased_when": "2024-03-09",
	})
	assert.Equal(t, types.StatusAlive, p.Status)
	assert.Equal(t, "Leaf Envy", types.Deref(p.PurchasedFrom))

	rec := ts.do(http.MethodGet, "/api/tags?type=purchased_from", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tag_name":"Leaf Envy"`)

	ts.createPlant(token, gin.H{"name": "Calathea", "status": "Dead"})

	rec = ts.do(http.MethodGet, "/api/plants?status=Dead", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []*types.Plant
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Calathea", list[0].Name)

	rec = ts.do(http.MethodGet, "/api/plants?sort=price", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/plants/"+itoa(p.ID), token, gin.H{"name": "Monstera", "status": "GaveAway"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated types.Plant
	decode(t, rec, &updated)
	assert.Equal(t, types.StatusGaveAway, updated.Status)
	assert.Nil(t, updated.PurchasedFrom)

	rec = ts.do(http.MethodDelete, "/api/plants/"+itoa(p.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/plants/"+itoa(p.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlantValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")
	tests := []struct {
		name string
		body gin.H
		want string
	}{
		{"missing name", gin.H{"alias": "x"}, "name is required"},
		{"bad status", gin.H{"name": "Fern", "status": "Wilting"}, "status"},
		{"bad date", gin.H{"name": "Fern", "received_when": "2024-02-30"}, "received_when"},
		{"negative price", gin.H{"name": "Fern", "price": -1}, "price"},
		{"foreign photo", gin.H{"name": "Fern", "profile_photo": "/uploads/99/fern/a.png"}, "current user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/plants", token, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, errorOf(t, rec), tt.want)
		})
	}
}

func TestPlantsAreOwnerScoped(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register("alice@example.com")
	bob := ts.register("bob@example.com")
	p := ts.createPlant(alice, gin.H{"name": "Monstera"})

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/api/plants/" + itoa(p.ID)},
		{http.MethodDelete, "/api/plants/" + itoa(p.ID)},
		{http.MethodGet, "/api/events/plant/" + itoa(p.ID)},
		{http.MethodGet, "/api/photos/plant/" + itoa(p.ID)},
	} {
		rec := ts.do(tt.method, tt.path, bob, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tt.method+" "+tt.path)
	}
	rec := ts.do(http.MethodPut, "/api/plants/"+itoa(p.ID), bob, gin.H{"name": "Mine now"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")
	p := ts.createPlant(token, gin.H{"name": "Monstera"})

	body := gin.H{"plant_id": p.ID, "event_type": "Water", "event_date": "2025-10-01", "notes": "soaked"}
	rec := ts.do(http.MethodPost, "/api/events", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e types.PlantEvent
	decode(t, rec, &e)

	rec = ts.do(http.MethodPost, "/api/events", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/events", token,
		gin.H{"plant_id": p.ID, "event_type": "Sing", "event_date": "2025-10-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/plants/"+itoa(p.ID), token, nil)
	var got types.Plant
	decode(t, rec, &got)
	assert.Equal(t, "2025-10-01", types.Deref(got.LastWatered))

	rec = ts.do(http.MethodPut, "/api/events/"+itoa(e.ID), token,
		gin.H{"event_type": "Repot", "event_date": "2025-10-02"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/events/plant/"+itoa(p.ID)+"?eventType=Repot", token, nil)
	var events []*types.PlantEvent
	decode(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-10-02", events[0].EventDate)

	rec = ts.do(http.MethodDelete, "/api/events/"+itoa(e.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/events/"+itoa(e.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadAndAttachPhoto(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")
	p := ts.createPlant(token, gin.H{"name": "Monstera Deliciosa"})

	rec := ts.multipart("/api/upload/single", token, "photo", map[string][]byte{"leaf.png": pngBytes(t)}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var up struct {
		Path string `json:"path"`
	}
	decode(t, rec, &up)
	assert.True(t, strings.HasPrefix(up.Path, "/uploads/1/tmp/"), up.Path)

	rec = ts.do(http.MethodPost, "/api/photos", token, gin.H{
		"plant_id": p.ID, "photo_path": up.Path, "caption": "new leaf", "taken_at": "2025-10-01T08:30:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ph types.PlantPhoto
	decode(t, rec, &ph)
	assert.True(t, strings.HasPrefix(ph.PhotoPath, "/uploads/1/monstera_deliciosa/"), ph.PhotoPath)

	ok, err := ts.store.Exists(up.Path)
	require.NoError(t, err)
	assert.False(t, ok)

	rec = ts.do(http.MethodGet, ph.PhotoPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/uploads/1/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/api/photos/"+itoa(ph.ID), token, gin.H{"caption": "aerial root"})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited types.PlantPhoto
	decode(t, rec, &edited)
	assert.Equal(t, "aerial root", types.Deref(edited.Caption))
	require.NotNil(t, edited.TakenAt)
	assert.Equal(t, 8, edited.TakenAt.Hour())

	rec = ts.do(http.MethodDelete, "/api/photos/"+itoa(ph.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok, err = ts.store.Exists(ph.PhotoPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadIntoPlantFolder(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")
	p := ts.createPlant(token, gin.H{"name": "Pothos"})

	files := map[string][]byte{"a.png": pngBytes(t), "b.png": pngBytes(t)}
	rec := ts.multipart("/api/upload/multiple", token, "photos", files, map[string]string{"plant_id": itoa(p.ID)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Files []photos.Upload `json:"files"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Files, 2)
	for _, f := range body.Files {
		assert.True(t, strings.HasPrefix(f.Path, "/uploads/1/pothos/"), f.Path)
	}
}

func TestUploadRejections(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	many := map[string][]byte{}
	for i := 0; i <= photos.MaxFilesPerUpload; i++ {
		many["p"+itoa(int64(i))+".png"] = pngBytes(t)
	}
	corrupt := append([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0,
		'm', 'i', 'f', '1', 'h', 'e', 'i', 'c'}, make([]byte, 64)...)
	tests := []struct {
		name   string
		path   string
		field  string
		files  map[string][]byte
		status int
	}{
		{"heic that does not decode", "/api/upload/single", "photo", map[string][]byte{"x.heic": corrupt}, http.StatusUnsupportedMediaType},
		{"not an image", "/api/upload/single", "photo", map[string][]byte{"notes.png": []byte("hello there")}, http.StatusUnsupportedMediaType},
		{"wrong extension", "/api/upload/single", "photo", map[string][]byte{"leaf.txt": pngBytes(t)}, http.StatusUnsupportedMediaType},
		{"no file", "/api/upload/single", "photo", nil, http.StatusBadRequest},
		{"too many", "/api/upload/multiple", "photos", many, http.StatusBadRequest},
		{"too large", "/api/upload/single", "photo", map[string][]byte{"big.png": append(pngBytes(t), make([]byte, 1<<20)...)}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.multipart(tt.path, token, tt.field, tt.files, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRenameRelocatesProfilePhoto(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	rec := ts.multipart("/api/upload/single", token, "photo", map[string][]byte{"leaf.png": pngBytes(t)}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var up struct {
		Path string `json:"path"`
	}
	decode(t, rec, &up)

	p := ts.createPlant(token, gin.H{"name": "Fern", "profile_photo": up.Path})
	require.True(t, strings.HasPrefix(types.Deref(p.ProfilePhoto), "/uploads/1/fern/"))

	rec = ts.do(http.MethodPut, "/api/plants/"+itoa(p.ID), token, gin.H{"name": "Boston Fern", "profile_photo": *p.ProfilePhoto})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var renamed types.Plant
	decode(t, rec, &renamed)
	assert.True(t, strings.HasPrefix(types.Deref(renamed.ProfilePhoto), "/uploads/1/boston_fern/"), types.Deref(renamed.ProfilePhoto))

	ok, err := ts.store.Exists(*renamed.ProfilePhoto)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTagsAndEventTypes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	rec := ts.do(http.MethodPost, "/api/tags", token, gin.H{"tag_name": "Windowsill", "tag_type": "other"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tag types.Tag
	decode(t, rec, &tag)
	rec = ts.do(http.MethodPost, "/api/tags", token, gin.H{"tag_name": "Windowsill", "tag_type": "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = ts.do(http.MethodGet, "/api/tags?type=colour", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/tags/"+itoa(tag.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/event-types", token, gin.H{"name": "Mist", "emoji": "💦"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var custom types.EventType
	decode(t, rec, &custom)
	assert.True(t, custom.IsCustom)

	rec = ts.do(http.MethodGet, "/api/event-types", token, nil)
	var list []*types.EventType
	decode(t, rec, &list)
	require.NotEmpty(t, list)
	builtin := list[0]
	assert.False(t, builtin.IsCustom)

	rec = ts.do(http.MethodDelete, "/api/event-types/"+itoa(builtin.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/event-types/"+itoa(custom.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSVImport(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")
	ts.createPlant(token, gin.H{"name": "Old plant"})

	csv := "Plant,Status,Purchased from\nMonstera,Alive,Leaf Envy\n,Dead,\n"
	rec := ts.multipart("/api/csv/import", token, "csv", map[string][]byte{"plants.csv": []byte(csv)},
		map[string]string{"clearExisting": "true"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Success bool `json:"success"`
		Stats   struct {
			Total, Success, Errors int
		} `json:"stats"`
		Errors []string `json:"errors"`
	}
	decode(t, rec, &body)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Stats.Total)
	assert.Equal(t, 1, body.Stats.Success)
	assert.Equal(t, 1, body.Stats.Errors)
	assert.Len(t, body.Errors, 1)

	rec = ts.do(http.MethodGet, "/api/plants", token, nil)
	var plants []*types.Plant
	decode(t, rec, &plants)
	require.Len(t, plants, 1)
	assert.Equal(t, "Monstera", plants[0].Name)

	rec = ts.multipart("/api/csv/import", token, "csv", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupOrphansRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	token := ts.register("fern@example.com")
	p := ts.createPlant(token, gin.H{"name": "Fern"})
	_, err := ts.diary.Photos().Create(ctx, 1, &types.PlantPhoto{PlantID: p.ID, PhotoPath: "/uploads/1/fern/gone.png"})
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/api/admin/cleanup-orphans", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &types.User{Email: "admin@example.com", PasswordHash: "x", IsAdmin: true}
	_, err = ts.diary.Users().Create(ctx, admin)
	require.NoError(t, err)
	adminToken, err := ts.issuer.IssueAccess(admin)
	require.NoError(t, err)

	rec = ts.do(http.MethodPost, "/api/admin/cleanup-orphans?dryRun=true", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"orphaned":1`)
	assert.Contains(t, rec.Body.String(), `"removed":0`)

	rec = ts.do(http.MethodPost, "/api/admin/cleanup-orphans", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed":1`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/api/health", "", nil)
	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `plantdiaries_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	cfg := corsConfig([]string{"http://localhost:3000"})
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.True(t, corsConfig(nil).AllowAllOrigins)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestUploadMultipleRemovesStoredFilesOnFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("fern@example.com")

	files := map[string][]byte{
		"a.png": pngBytes(t),
		"b.png": pngBytes(t),
		"c.png": []byte("not an image"),
	}
	rec := ts.multipart("/api/upload/multiple", token, "photos", files, nil)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())

	entries, err := ts.store.Filesystem().ReadDir(photos.TempDir(1))
	if err != nil {
		assert.ErrorIs(t, err, os.ErrNotExist)
		return
	}
	assert.Empty(t, entries)
}

func TestNilMetrics(t *testing.T) {
	b, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "plantdiaries.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	issuer, err := auth.NewIssuer(auth.IssuerConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	require.NoError(t, err)

	srv := New(Deps{Diary: b, Store: photos.NewStore(memfs.New()), Issuer: issuer}, Options{MaxUploadBytes: 1 << 20})
	for path, want := range map[string]int{"/api/health": http.StatusOK, "/metrics": http.StatusNotFound} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
