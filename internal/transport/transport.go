// Package transport carries command lines in and response lines out over the
// rover's text channels: the USB serial console and the Bluetooth serial link.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// ErrClosed is returned when sending on a channel that has been closed.
var ErrClosed = errors.New("transport: channel closed")

// Responder is where replies to a command go.
type Responder interface {
	// Name identifies the channel in status output, e.g. "Bluetooth".
	Name() string
	// Send delivers one response line.
	Send(msg string) error
	// IsConnected reports whether a peer is believed to be listening.
	IsConnected() bool
}

// Request is one received command line and the channel it came from.
type Request struct {
	Line string
	From Responder
	// Done, if set, is closed once the command has been handled.
	Done chan struct{}
}

// LogResponder writes responses to the process log.
type LogResponder struct{}

// Name returns "Log".
func (LogResponder) Name() string { return "Log" }

// Send logs msg.
func (LogResponder) Send(msg string) error {
	log.Printf("rover: %s", msg)
	return nil
}

// IsConnected is always true.
func (LogResponder) IsConnected() bool { return true }

// BufferResponder collects responses in memory. It is used for one-shot
// requests such as HTTP.
type BufferResponder struct {
	name  string
	mu    sync.Mutex
	lines []string
}

// NewBufferResponder creates an empty buffer named name.
func NewBufferResponder(name string) *BufferResponder {
	return &BufferResponder{name: name}
}

// Name returns the buffer's name.
func (b *BufferResponder) Name() string { return b.name }

// Send appends msg.
func (b *BufferResponder) Send(msg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, msg)
	return nil
}

// IsConnected is always true.
func (b *BufferResponder) IsConnected() bool { return true }

// Lines returns a copy of the collected responses.
func (b *BufferResponder) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// scanLines splits on LF, CR or CRLF and drops empty lines.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// readRequests scans lines from r and enqueues each non-blank one as a
// Request from from. seen is called for every line received, blank or not.
// It returns when r fails or ctx is done; io.EOF is reported as nil.
func readRequests(ctx context.Context, r io.Reader, from Responder, out chan<- Request, seen func()) error {
	scan := bufio.NewScanner(r)
	scan.Split(scanLines)

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				err := <-scanErr
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("%s: read: %w", from.Name(), err)
				}
				return nil
			}
			if seen != nil {
				seen()
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			select {
			case out <- Request{Line: line, From: from}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
