package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Veraticus/spicewise/internal/cancel"
)

// InterruptHandler maps Ctrl-C onto the interactive session. An interrupt
// while a request is running cancels only that request; an interrupt while
// idle ends the session.
type InterruptHandler struct {
	writer      io.Writer
	active      *cancel.Token
	quit        context.CancelFunc
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler that writes its notices to writer.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts starts listening for SIGINT and SIGTERM and returns the
// session context, cancelled when the session should end. stop releases the
// signal subscription.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) (session context.Context, stop func()) {
	session, quit := context.WithCancel(ctx)
	h.mu.Lock()
	h.quit = quit
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-sigChan:
				h.Interrupt()
			case <-session.Done():
				return
			}
		}
	}()

	return session, func() {
		signal.Stop(sigChan)
		quit()
	}
}

// Begin returns a token for one request. Interrupts cancel it until End.
func (h *InterruptHandler) Begin(ctx context.Context) *cancel.Token {
	token := cancel.New(ctx)
	h.mu.Lock()
	h.active = token
	h.mu.Unlock()
	return token
}

// End detaches token; later interrupts apply to the session again.
func (h *InterruptHandler) End(token *cancel.Token) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == token {
		h.active = nil
	}
	token.Cancel()
}

// Interrupt applies one Ctrl-C.
func (h *InterruptHandler) Interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil && !h.active.IsCancelling() {
		h.active.Cancel()
		h.notify("\n" + FormatWarning("Request cancelled.") + " " + SubtleStyle.Render("Press Ctrl-C again to quit.") + "\n")
		return
	}

	if !h.interrupted {
		h.interrupted = true
		h.notify("\n" + FormatInfo("Goodbye!") + "\n")
	}
	if h.quit != nil {
		h.quit()
	}
}

// WasInterrupted reports whether the session was ended by an interrupt.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

func (h *InterruptHandler) notify(msg string) {
	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		slog.Debug("failed to write interrupt notice", "error", err)
	}
}
