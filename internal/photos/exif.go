package photos

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// tiffHeaders mark the start of the TIFF structure inside an EXIF block.
var tiffHeaders = [][]byte{
	[]byte("II*\x00"),
	[]byte("MM\x00*"),
}

// CaptureTime returns the DateTimeOriginal (falling back to DateTime) of a
// JPEG or raw EXIF block, or nil when none is present. EXIF times carry no
// zone; the wall clock is kept and labeled UTC.
func CaptureTime(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	t, err := x.DateTime()
	if err != nil || t.IsZero() {
		return nil
	}
	utc := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return &utc
}

// trimToTIFF drops any prefix before the TIFF header of an EXIF block.
func trimToTIFF(block []byte) []byte {
	best := -1
	for _, h := range tiffHeaders {
		if i := bytes.Index(block, h); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return block[best:]
}
