package photos

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload limits.
const (
	DefaultMaxFileBytes = 10 << 20
	MaxFilesPerUpload   = 10
)

// Upload errors.
var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("only image files are allowed (jpeg, png, gif, webp, heic)")
	ErrTooManyFiles    = fmt.Errorf("at most %d files per upload", MaxFilesPerUpload)
)

// allowedExts maps accepted file extensions to the reported format.
var allowedExts = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
	".heic": "heic",
	".heif": "heic",
}

// allowedMIMEs are the sniffed content types accepted.
var allowedMIMEs = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"image/heif",
	"image/heic-sequence",
	"image/heif-sequence",
}

// Upload describes a stored file.
type Upload struct {
	Filename string     `json:"filename"`
	Path     string     `json:"path"`
	Size     int64      `json:"size"`
	TakenAt  *time.Time `json:"takenAt,omitempty"`

	// Format is the stored image format, such as "jpeg" or "png".
	Format string `json:"-"`
}

// Ingestor validates uploaded images and stores them.
type Ingestor struct {
	store    *Store
	maxBytes int64
	now      func() time.Time
}

// NewIngestor stores into store, rejecting files over maxBytes. A
// non-positive maxBytes means DefaultMaxFileBytes.
func NewIngestor(store *Store, maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Ingestor{store: store, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes returns the per-file size limit.
func (in *Ingestor) MaxBytes() int64 {
	return in.maxBytes
}

// sniff returns the format for a file whose extension and content are both
// accepted images.
func sniff(originalName string, data []byte) (string, error) {
	format, ok := allowedExts[strings.ToLower(filepath.Ext(originalName))]
	if !ok {
		return "", ErrUnsupportedType
	}
	if !detectAny(data) {
		return "", ErrUnsupportedType
	}
	return format, nil
}

// detectAny reports whether the sniffed content type is an accepted image.
func detectAny(data []byte) bool {
	mt := mimetype.Detect(data)
	for _, m := range allowedMIMEs {
		if mt.Is(m) {
			return true
		}
	}
	return false
}

// Ingest reads one uploaded file, converts HEIC to PNG, extracts the capture
// date and stores the result in the plant's folder, or the user's temp
// folder when plantName is empty.
func (in *Ingestor) Ingest(userID int64, plantName, originalName string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, in.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > in.maxBytes {
		return nil, ErrTooLarge
	}
	format, err := sniff(originalName, data)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	var takenAt *time.Time
	if format == "heic" {
		takenAt = HEICCaptureTime(data)
		if data, err = ConvertHEIC(data); err != nil {
			return nil, err
		}
		ext, format = ".png", "png"
	} else {
		takenAt = CaptureTime(data)
	}

	name := fmt.Sprintf("%d-%s%s", in.now().UnixMilli(), uuid.NewString(), ext)
	public, size, err := in.store.Save(userID, plantName, name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Upload{
		Filename: name,
		Path:     public,
		Size:     size,
		TakenAt:  takenAt,
		Format:   format,
	}, nil
}
