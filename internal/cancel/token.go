// Package cancel provides a cooperative cancellation token bridged onto context.Context.
package cancel

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrCancelled is returned by checkpoints once cancellation has been requested.
var ErrCancelled = errors.New("operation cancelled")

// Token is a cancellation flag that also owns a derived context, so callers can
// hand Context() to blocking calls and still probe the flag directly.
type Token struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	flag      atomic.Bool
}

// New creates a token whose context is derived from parent.
func New(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelCtx := context.WithCancel(parent)
	return &Token{ctx: ctx, cancelCtx: cancelCtx}
}

// Cancel sets the flag and cancels the derived context. Safe to call repeatedly.
func (t *Token) Cancel() {
	if t.flag.CompareAndSwap(false, true) {
		t.cancelCtx()
	}
}

// IsCancelling reports whether Cancel was called or the parent context is done.
func (t *Token) IsCancelling() bool {
	return t.flag.Load() || t.ctx.Err() != nil
}

// Check returns ErrCancelled once the token is cancelling.
func (t *Token) Check() error {
	if t.IsCancelling() {
		return ErrCancelled
	}
	return nil
}

// Context returns the context cancelled together with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Check is the checkpoint used by retry loops: it maps a done context to ErrCancelled.
func Check(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrCancelled, err)
	}
	return nil
}
