package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because ctx ended.
var ErrInputCancelled = errors.New("input cancelled")

// LineReader reads lines from a blocking source without blocking its callers
// past their context. A single goroutine owns the source, so a line typed
// after a cancelled read is delivered to the next ReadLine instead of being lost.
type LineReader struct {
	src   *bufio.Reader
	lines chan string
	err   error
	once  sync.Once
	done  chan struct{}
}

// NewLineReader creates a LineReader over r.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &LineReader{
		src:   bufio.NewReader(r),
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

func (r *LineReader) pump() {
	defer close(r.done)
	for {
		line, err := r.src.ReadString('\n')
		if line != "" {
			r.lines <- line
		}
		if err != nil {
			r.err = err
			return
		}
	}
}

// ReadLine returns the next line with surrounding whitespace trimmed. It
// returns io.EOF once the source is exhausted and ErrInputCancelled when ctx
// ends first.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.once.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case line := <-r.lines:
		return strings.TrimSpace(line), nil
	case <-r.done:
		return "", r.err
	}
}
