package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler_DefaultsWriter(t *testing.T) {
	h := NewInterruptHandler(nil)
	assert.NotNil(t, h.writer)
	assert.False(t, h.WasInterrupted())
}

func TestInterrupt_CancelsActiveRequestOnly(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out)
	session, stop := h.HandleInterrupts(context.Background())
	defer stop()

	token := h.Begin(session)
	h.Interrupt()

	assert.True(t, token.IsCancelling())
	assert.Error(t, token.Context().Err())
	assert.NoError(t, session.Err())
	assert.False(t, h.WasInterrupted())
	assert.Contains(t, out.String(), "Request cancelled.")
	h.End(token)

	next := h.Begin(session)
	assert.False(t, next.IsCancelling())
	h.End(next)
}

func TestInterrupt_IdleEndsSession(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out)
	session, stop := h.HandleInterrupts(context.Background())
	defer stop()

	h.Interrupt()

	require.Error(t, session.Err())
	assert.True(t, h.WasInterrupted())
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestInterrupt_SecondInterruptEndsSession(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out)
	session, stop := h.HandleInterrupts(context.Background())
	defer stop()

	token := h.Begin(session)
	h.Interrupt()
	h.Interrupt()
	h.Interrupt()

	assert.True(t, token.IsCancelling())
	assert.Error(t, session.Err())
	assert.Equal(t, 1, strings.Count(out.String(), "Goodbye!"))
}

func TestEnd_CancelsTokenAndDetaches(t *testing.T) {
	h := NewInterruptHandler(&syncBuffer{})
	token := h.Begin(context.Background())

	h.End(token)

	assert.True(t, token.IsCancelling())
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Nil(t, h.active)
}
