// Package ocr recognizes text in recipe photos.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pageza/recipebox/internal/photo"
)

// Recognizer converts an image into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, img photo.Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img photo.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img photo.Image) (string, error) {
	return f(ctx, img)
}

// Tesseract runs the tesseract binary, feeding the image on stdin.
type Tesseract struct {
	Binary   string
	Language string
}

// NewTesseract returns a recognizer using binary (default "tesseract") and language (default "eng").
func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Binary: binary, Language: language}
}

// Available reports whether the binary can be found on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Binary)
	return err == nil
}

func (t *Tesseract) Recognize(ctx context.Context, img photo.Image) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = bytes.NewReader(img.Data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
