package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/apperr"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	t.Run("accepts png", func(t *testing.T) {
		img, err := FromBytes(pngBytes(t, 4, 4))
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
	})

	t.Run("rejects text", func(t *testing.T) {
		_, err := FromBytes([]byte("just some text, not an image"))
		assert.Equal(t, apperr.UnsupportedFileType, apperr.KindOf(err))
	})

	t.Run("rejects pdf", func(t *testing.T) {
		_, err := FromBytes([]byte("%PDF-1.4\n%âãÏÓ\n"))
		assert.Equal(t, apperr.UnsupportedFileType, apperr.KindOf(err))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := FromBytes(nil)
		assert.Equal(t, apperr.UnsupportedFileType, apperr.KindOf(err))
	})
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 2, 2), 0o600))

	img, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)

	_, err = FromFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

type fakeCamera struct {
	stream  *fakeStream
	openErr error
	got     Constraints
}

func (c *fakeCamera) Open(ctx context.Context, cons Constraints) (Stream, error) {
	c.got = cons
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

type fakeStream struct {
	frame    image.Image
	frameErr error
	stops    int
}

func (s *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	return s.frame, s.frameErr
}

func (s *fakeStream) Stop() error {
	s.stops++
	return nil
}

func TestCapture(t *testing.T) {
	t.Run("success encodes jpeg and stops stream", func(t *testing.T) {
		stream := &fakeStream{frame: image.NewRGBA(image.Rect(0, 0, 3000, 2000))}
		cam := &fakeCamera{stream: stream}
		trigger := make(chan struct{}, 1)
		trigger <- struct{}{}

		img, err := Capture(context.Background(), cam, DefaultConstraints, trigger)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.MimeType)
		assert.Equal(t, FacingRear, cam.got.Facing)
		assert.Equal(t, 1, stream.stops)

		decoded, _, err := image.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, 1620, decoded.Bounds().Dx())
		assert.Equal(t, 1080, decoded.Bounds().Dy())
	})

	t.Run("oversize frame is scaled not cropped", func(t *testing.T) {
		frame := image.NewRGBA(image.Rect(0, 0, 4000, 3000))
		red := color.RGBA{R: 255, A: 255}
		for y := 2000; y < 2100; y++ {
			for x := 3000; x < 3100; x++ {
				frame.Set(x, y, red)
			}
		}
		trigger := make(chan struct{}, 1)
		trigger <- struct{}{}

		img, err := Capture(context.Background(), &fakeCamera{stream: &fakeStream{frame: frame}}, DefaultConstraints, trigger)
		require.NoError(t, err)

		decoded, _, err := image.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 1440, 1080), decoded.Bounds())

		r, g, b, _ := decoded.At(1098, 738).RGBA()
		assert.Greater(t, r>>8, uint32(200))
		assert.Less(t, g>>8, uint32(60))
		assert.Less(t, b>>8, uint32(60))
	})

	t.Run("small frame keeps its size", func(t *testing.T) {
		trigger := make(chan struct{}, 1)
		trigger <- struct{}{}
		stream := &fakeStream{frame: image.NewRGBA(image.Rect(0, 0, 640, 480))}

		img, err := Capture(context.Background(), &fakeCamera{stream: stream}, DefaultConstraints, trigger)
		require.NoError(t, err)
		decoded, _, err := image.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 640, 480), decoded.Bounds())
	})

	t.Run("cancel stops stream", func(t *testing.T) {
		stream := &fakeStream{frame: image.NewRGBA(image.Rect(0, 0, 10, 10))}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := Capture(ctx, &fakeCamera{stream: stream}, DefaultConstraints, make(chan struct{}))
		assert.ErrorIs(t, err, ErrCaptureCancelled)
		assert.Equal(t, 1, stream.stops)
	})

	t.Run("closed trigger cancels", func(t *testing.T) {
		stream := &fakeStream{}
		trigger := make(chan struct{})
		close(trigger)

		_, err := Capture(context.Background(), &fakeCamera{stream: stream}, DefaultConstraints, trigger)
		assert.ErrorIs(t, err, ErrCaptureCancelled)
		assert.Equal(t, 1, stream.stops)
	})

	t.Run("frame error stops stream", func(t *testing.T) {
		stream := &fakeStream{frameErr: errors.New("device busy")}
		trigger := make(chan struct{}, 1)
		trigger <- struct{}{}

		_, err := Capture(context.Background(), &fakeCamera{stream: stream}, DefaultConstraints, trigger)
		assert.Error(t, err)
		assert.Equal(t, 1, stream.stops)
	})

	t.Run("open error", func(t *testing.T) {
		_, err := Capture(context.Background(), &fakeCamera{openErr: errors.New("no device")}, DefaultConstraints, nil)
		assert.Error(t, err)
	})
}

func TestCommandCamera_Open(t *testing.T) {
	_, err := CommandCamera{}.Open(context.Background(), DefaultConstraints)
	assert.Error(t, err)

	_, err = CommandCamera{Command: "definitely-not-a-camera-binary"}.Open(context.Background(), DefaultConstraints)
	assert.Error(t, err)
}

func TestCommandCamera_ExpandsConstraints(t *testing.T) {
	stream, err := CommandCamera{Command: "sh -c true --res={width}x{height} {facing}"}.Open(context.Background(), DefaultConstraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", "true", "--res=1920x1080", "environment"}, stream.(*commandStream).args)
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{4000, 3000, 1920, 1080, 1440, 1080},
		{3000, 1000, 1920, 1080, 1920, 640},
		{800, 600, 1920, 1080, 800, 600},
		{4000, 3000, 0, 0, 4000, 3000},
		{4000, 3000, 2000, 0, 2000, 1500},
	}
	for _, tc := range cases {
		w, h := fitWithin(tc.w, tc.h, tc.maxW, tc.maxH)
		assert.Equal(t, []int{tc.wantW, tc.wantH}, []int{w, h}, "%dx%d in %dx%d", tc.w, tc.h, tc.maxW, tc.maxH)
	}
}
