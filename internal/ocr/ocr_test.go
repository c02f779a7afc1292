package ocr

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/photo"
)

func TestNewTesseractDefaults(t *testing.T) {
	tess := NewTesseract("", "")
	assert.Equal(t, "tesseract", tess.Binary)
	assert.Equal(t, "eng", tess.Language)
}

func TestTesseract_Recognize(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// A stand-in binary that echoes a recognized card.
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-tesseract")
	script := "#!/bin/sh\ncat > /dev/null\nprintf 'Recipe: Toast\\nIngredients\\n2 slices bread\\n'\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	tess := NewTesseract(bin, "eng")
	assert.True(t, tess.Available())

	text, err := tess.Recognize(context.Background(), photo.Image{Data: []byte("img"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Contains(t, text, "Recipe: Toast")
}

func TestTesseract_MissingBinary(t *testing.T) {
	tess := NewTesseract("no-such-ocr-binary", "eng")
	assert.False(t, tess.Available())
	_, err := tess.Recognize(context.Background(), photo.Image{})
	assert.Error(t, err)
}

func TestRecognizerFunc(t *testing.T) {
	var r Recognizer = RecognizerFunc(func(ctx context.Context, img photo.Image) (string, error) {
		return "hello", nil
	})
	text, err := r.Recognize(context.Background(), photo.Image{})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}
