package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/pageza/recipebox/internal/service"
)

func isInteractive(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdinIsTerminal reports whether r is a terminal we can prompt on.
func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isInteractive(f.Fd())
}

// terminalInput is the single line reader over a command's stdin. Every
// prompt in a command reads through it so no buffered input is lost between
// them, and a read abandoned by its context leaves the line for the next one.
type terminalInput struct {
	interactive bool
	r           *bufio.Reader
	start       sync.Once
	lines       chan string
}

func newTerminalInput(r io.Reader) *terminalInput {
	return &terminalInput{
		interactive: stdinIsTerminal(r),
		r:           bufio.NewReader(r),
		lines:       make(chan string),
	}
}

// ReadLine returns the next line, io.EOF once input is exhausted, or the
// context error if ctx ends first.
func (t *terminalInput) ReadLine(ctx context.Context) (string, error) {
	t.start.Do(func() { go t.pump() })
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *terminalInput) pump() {
	for {
		line, err := t.r.ReadString('\n')
		if line != "" {
			t.lines <- line
		}
		if err != nil {
			close(t.lines)
			return
		}
	}
}

// promptDecider asks on the terminal whether to read the photo offline.
type promptDecider struct {
	in  *terminalInput
	out io.Writer
}

func (p promptDecider) AuthorizeFallback(ctx context.Context, reason string) bool {
	fmt.Fprintf(p.out, "%s\nRead the photo with offline text recognition instead? [y/N] ", reason)
	line, err := p.in.ReadLine(ctx)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// newFallbackDecider returns the decider used after a failed model call:
// --fallback answers yes, a terminal is asked (declining after timeout),
// anything else declines.
func newFallbackDecider(in *terminalInput, out io.Writer, assumeYes bool, timeout time.Duration) service.FallbackDecider {
	if assumeYes {
		return service.DeciderFunc(func(context.Context, string) bool { return true })
	}
	if !in.interactive {
		return service.DeclineFallback
	}
	return service.TimeoutDecider{
		Decider: promptDecider{in: in, out: out},
		Timeout: timeout,
	}
}
