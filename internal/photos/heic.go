package photos

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/jdeng/goheif"
)

// HEICCaptureTime reads the capture time from the EXIF block embedded in a
// HEIC file, or nil.
func HEICCaptureTime(data []byte) *time.Time {
	block, err := goheif.ExtractExif(bytes.NewReader(data))
	if err != nil || len(block) == 0 {
		return nil
	}
	tiff := trimToTIFF(block)
	if tiff == nil {
		return nil
	}
	return CaptureTime(tiff)
}

// ConvertHEIC decodes a HEIC image and re-encodes it as PNG. Input that
// does not decode reports ErrUnsupportedType.
func ConvertHEIC(data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: decoding heic: %v", ErrUnsupportedType, r)
		}
	}()
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding heic: %v", ErrUnsupportedType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
