package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spicewise/internal/assistant"
	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/service"
)

func TestDateRange(t *testing.T) {
	filter, err := dateRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	require.NotNil(t, filter.StartDate)
	require.NotNil(t, filter.EndDate)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local), *filter.StartDate)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.Local), *filter.EndDate)

	filter, err = dateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, filter.StartDate)
	assert.Nil(t, filter.EndDate)

	_, err = dateRange("01/02/2025", "")
	assert.Error(t, err)
	_, err = dateRange("", "tomorrow")
	assert.Error(t, err)
	_, err = dateRange("2025-02-01", "2025-01-01")
	assert.Error(t, err)
}

func TestPeriodLabel(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 1, 31, 23, 59, 59, 0, time.Local)

	assert.Equal(t, "2025-01-01 to 2025-01-31", periodLabel(service.TransactionFilter{StartDate: &start, EndDate: &end}))
	assert.Equal(t, "since 2025-01-01", periodLabel(service.TransactionFilter{StartDate: &start}))
	assert.Equal(t, "until 2025-01-31", periodLabel(service.TransactionFilter{EndDate: &end}))
	assert.Equal(t, "all time", periodLabel(service.TransactionFilter{}))
}

func TestExplain(t *testing.T) {
	tests := []struct {
		err      error
		name     string
		contains string
	}{
		{name: "missing key", err: &llm.Error{Kind: llm.KindMissingCredential}, contains: "GEMINI_API_KEY"},
		{name: "invalid key", err: &llm.Error{Kind: llm.KindInvalidCredential, Code: 401}, contains: "rejected"},
		{name: "rate limited", err: &llm.Error{Kind: llm.KindClientFailure, Code: 429}, contains: "rate limiting"},
		{name: "server", err: &llm.Error{Kind: llm.KindServerFailure, Code: 503}, contains: "unavailable"},
		{name: "network", err: &llm.Error{Kind: llm.KindNetworkFailure, Reason: llm.NetworkTimeout}, contains: "could not reach"},
		{name: "cancelled", err: &llm.Error{Kind: llm.KindCancelled}, contains: "cancelled"},
		{name: "no store", err: assistant.ErrStoreNotConfigured, contains: "needs the database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explain(tt.err)
			var userErr *common.UserError
			require.True(t, errors.As(got, &userErr))
			assert.Contains(t, got.Error(), tt.contains)
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, explain(plain))
}

func TestExtractCommand_SavesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		_ = json.NewEncoder(w).Encode(llm.Response{
			Candidates: []llm.Candidate{{Content: llm.Content{Parts: []llm.Part{{
				Text: `{"amount": 12.5, "type": "expense", "category": "Food", "note": "lunch", "date": "2025-01-14"}`,
			}}}}},
		})
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("SPICEWISE_LLM_BASE_URL", srv.URL)
	t.Setenv("SPICEWISE_LLM_API_KEY", "test-key")
	t.Setenv("SPICEWISE_DATABASE_PATH", filepath.Join(dir, "spicewise.db"))
	t.Setenv("SPICEWISE_INSIGHTS_CACHE", "sqlite")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"extract", "--save", "--now", "2025-01-15", "spent 12.50 on lunch yesterday"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "-12.50")
	assert.Contains(t, out.String(), "Food")
	assert.Contains(t, out.String(), "Saved as")

	store, err := openStore(context.Background(), filepath.Join(dir, "spicewise.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	records, err := store.GetTransactions(context.Background(), service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "12.5", records[0].Amount.String())
	assert.Equal(t, "lunch", records[0].Note)
}
