package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spicewise/internal/model"
)

func TestFormatRecord(t *testing.T) {
	id := int64(3)
	record := &model.ExtractedRecord{
		Date:          time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		CategoryID:    &id,
		Type:          model.CategoryTypeExpense,
		Category:      "Food",
		Account:       "Checking",
		PaymentMethod: "Card",
		Note:          "lunch",
		Amount:        decimal.RequireFromString("12.5"),
		Confidence:    0.9,
	}

	out := FormatRecord(record)

	for _, want := range []string{"-12.50", "expense", "Food", "Checking", "Card", "lunch", "Tue, Jan 14, 2025", "90%"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "(unsaved)")
}

func TestFormatRecord_UnresolvedCategory(t *testing.T) {
	out := FormatRecord(&model.ExtractedRecord{
		Type:     model.CategoryTypeIncome,
		Category: "Salary",
		Amount:   decimal.NewFromInt(2000),
	})

	assert.Contains(t, out, "+2000.00")
	assert.Contains(t, out, "(unsaved)")
}

func TestFormatConversationList(t *testing.T) {
	assert.Contains(t, FormatConversationList(nil), "No conversations yet.")

	out := FormatConversationList([]model.Conversation{
		{ID: "c1", Title: "Groceries", UpdatedAt: time.Now()},
		{ID: "c2", Title: "Budget", Archived: true, UpdatedAt: time.Now()},
	})
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "[archived]")
}

func TestFormatTranscript(t *testing.T) {
	out := FormatTranscript(&model.Conversation{
		ID:    "c1",
		Title: "Groceries",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "How much on food?"},
			{Role: model.RoleAssistant, Content: "About $120."},
		},
	})

	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "User: How much on food?")
	assert.Contains(t, out, "Assistant: About $120.")
	assert.Less(t, strings.Index(out, "How much"), strings.Index(out, "About $120."))
}

func TestFormatInsight(t *testing.T) {
	out := FormatInsight(&model.InsightResult{
		Period:   "January 2025",
		Summary:  "Spending was modest.",
		Insights: []string{"Food is your top expense"},
	})

	assert.Contains(t, out, "January 2025")
	assert.Contains(t, out, "Spending was modest.")
	assert.Contains(t, out, "• Food is your top expense")
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      bool
		expected bool
	}{
		{"yes", "y\n", false, true},
		{"no", "no\n", true, false},
		{"default yes", "\n", true, true},
		{"default no", "\n", false, false},
		{"retries on invalid input", "maybe\nYES\n", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			p := NewPrompter(NewLineReader(strings.NewReader(tt.input)), &out)

			got, err := p.Confirm(context.Background(), "Save this record?", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Contains(t, out.String(), "Save this record?")
		})
	}
}

func TestPrompter_ConfirmEndOfInput(t *testing.T) {
	p := NewPrompter(NewLineReader(strings.NewReader("")), io.Discard)

	_, err := p.Confirm(context.Background(), "Save?", false)
	assert.ErrorIs(t, err, io.EOF)
}
