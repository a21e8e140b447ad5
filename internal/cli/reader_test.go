package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single line",
			input:    "spent 12 on lunch\n",
			expected: []string{"spent 12 on lunch"},
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  hello  \r\n",
			expected: []string{"hello"},
		},
		{
			name:     "empty line",
			input:    "\n",
			expected: []string{""},
		},
		{
			name:     "final line without newline",
			input:    "first\nlast",
			expected: []string{"first", "last"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(tt.input))
			ctx := context.Background()

			for _, want := range tt.expected {
				got, err := r.ReadLine(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			_, err := r.ReadLine(ctx)
			assert.ErrorIs(t, err, io.EOF)
			_, err = r.ReadLine(ctx)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestLineReader_CancelledReadKeepsLaterInput(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)

	go func() { _, _ = pw.Write([]byte("typed later\n")) }()

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	line, err := r.ReadLine(readCtx)
	require.NoError(t, err)
	assert.Equal(t, "typed later", line)
}

func TestLineReader_AlreadyCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	r := NewLineReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestNewLineReader_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewLineReader(nil) })
}
