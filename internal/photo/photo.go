// Package photo acquires recipe images from files, uploads and cameras.
package photo

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pageza/recipebox/internal/apperr"
)

// MaxImageSize bounds the bytes accepted for a single photo.
const MaxImageSize = 20 << 20

// Image is an in-memory photo with its detected media type.
type Image struct {
	Data     []byte
	MimeType string
}

// FromBytes validates that data is an image and wraps it.
func FromBytes(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, apperr.New(apperr.UnsupportedFileType)
	}
	if len(data) > MaxImageSize {
		return Image{}, apperr.Newf(apperr.UnsupportedFileType, "Image is larger than %d MB.", MaxImageSize>>20)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, apperr.New(apperr.UnsupportedFileType)
	}
	return Image{Data: data, MimeType: baseType(mt.String())}, nil
}

// FromReader reads at most MaxImageSize bytes and validates them.
func FromReader(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return FromBytes(data)
}

// FromFile loads and validates an image from disk.
func FromFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

func baseType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		return strings.TrimSpace(mt[:i])
	}
	return mt
}
