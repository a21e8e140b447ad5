package assistant

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/storage"
	"github.com/Veraticus/spicewise/internal/testutil"
)

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// fakeSender answers every request with the next scripted reply text.
type fakeSender struct {
	err      error
	replies  []string
	requests []llm.Request
	usage    llm.Usage
	mu       sync.Mutex
}

func (f *fakeSender) Send(_ context.Context, req llm.Request, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	text := ""
	if len(f.replies) > 0 {
		i := min(len(f.requests), len(f.replies)) - 1
		text = f.replies[i]
	}
	usage := f.usage
	return json.Marshal(llm.Response{
		Candidates:    []llm.Candidate{{Content: llm.Content{Parts: []llm.Part{{Text: text}}}}},
		UsageMetadata: &usage,
	})
}

func (f *fakeSender) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Prompt()
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return testutil.SetupTestDB(t).Storage
}

func newDeps(t *testing.T, sender Sender) Deps {
	t.Helper()
	prompts, err := llm.NewPromptBuilder()
	require.NoError(t, err)
	return Deps{
		Client:  sender,
		Prompts: prompts,
		Logger:  discardLogger(),
		Now:     func() time.Time { return fixedNow },
		APIKey:  "test-key",
	}
}
