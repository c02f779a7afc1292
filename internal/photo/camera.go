package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
)

// Facing selects which camera to open.
type Facing string

const (
	FacingRear  Facing = "environment"
	FacingFront Facing = "user"
)

// Constraints describe the stream a capture requests.
type Constraints struct {
	Facing    Facing
	MaxWidth  int
	MaxHeight int
}

// DefaultConstraints asks for the rear camera at up to 1920x1080.
var DefaultConstraints = Constraints{Facing: FacingRear, MaxWidth: 1920, MaxHeight: 1080}

// Camera opens video streams.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera stream. Stop releases the device and must be safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop() error
}

// ErrCaptureCancelled is returned when the capture is abandoned before the trigger fires.
var ErrCaptureCancelled = errors.New("photo capture cancelled")

// JPEGQuality is the encoder quality for captured frames.
const JPEGQuality = 80

// Capture opens a stream, waits for trigger, grabs one frame and encodes it as JPEG.
// The stream is stopped on every return path.
func Capture(ctx context.Context, cam Camera, c Constraints, trigger <-chan struct{}) (img Image, err error) {
	stream, err := cam.Open(ctx, c)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open camera: %w", err)
	}
	defer func() {
		if stopErr := stream.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("failed to stop camera: %w", stopErr)
		}
	}()

	select {
	case <-ctx.Done():
		return Image{}, errors.Join(ErrCaptureCancelled, ctx.Err())
	case _, ok := <-trigger:
		if !ok {
			return Image{}, ErrCaptureCancelled
		}
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		return Image{}, fmt.Errorf("failed to grab frame: %w", err)
	}

	data, err := encodeFrame(frame, c)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, MimeType: "image/jpeg"}, nil
}

// encodeFrame scales the frame down to fit the requested bounds, keeping its
// aspect ratio, and encodes it. Frames already inside the bounds are not resized.
func encodeFrame(frame image.Image, c Constraints) ([]byte, error) {
	b := frame.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), c.MaxWidth, c.MaxHeight)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(canvas, canvas.Bounds(), frame, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), frame, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns w x h scaled down to fit maxW x maxH with the aspect ratio
// kept. A non-positive bound leaves that axis unconstrained.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	overW := maxW > 0 && w > maxW
	overH := maxH > 0 && h > maxH
	switch {
	case overW && (!overH || w*maxH > h*maxW):
		return maxW, max(1, h*maxW/w)
	case overH:
		return max(1, w*maxH/h), maxH
	default:
		return w, h
	}
}

// CommandCamera captures frames by running an external still-capture command
// (for example fswebcam or libcamera-still) that writes an image to stdout.
// The placeholders {width}, {height} and {facing} in the command are replaced
// with the requested constraints, so the device can be asked for the right
// camera and resolution. Frames larger than the bounds are still scaled down.
type CommandCamera struct {
	Command string
}

// Open validates the command and returns a stream bound to it.
func (c CommandCamera) Open(ctx context.Context, cons Constraints) (Stream, error) {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return nil, errors.New("no camera command configured")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("camera command not found: %w", err)
	}
	return &commandStream{args: expandConstraints(fields, cons)}, nil
}

func expandConstraints(args []string, cons Constraints) []string {
	r := strings.NewReplacer(
		"{width}", strconv.Itoa(cons.MaxWidth),
		"{height}", strconv.Itoa(cons.MaxHeight),
		"{facing}", string(cons.Facing),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

type commandStream struct {
	mu      sync.Mutex
	args    []string
	stopped bool
}

func (s *commandStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, errors.New("camera stream stopped")
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("camera command failed: %w", err)
	}
	frame, _, err := image.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode camera output: %w", err)
	}
	return frame, nil
}

func (s *commandStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}
