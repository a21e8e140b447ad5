package llm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spicewise/internal/model"
)

func newBuilder(t *testing.T) *PromptBuilder {
	t.Helper()
	pb, err := NewPromptBuilder()
	require.NoError(t, err)
	return pb
}

func TestPromptBuilder_Extraction(t *testing.T) {
	pb := newBuilder(t)
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	req, err := pb.Extraction("  spent $30 on lunch  ", now)
	require.NoError(t, err)

	prompt := req.Prompt()
	assert.Equal(t, FormatJSON, req.Format())
	assert.Contains(t, prompt, "Note: spent $30 on lunch")
	assert.Contains(t, prompt, "2025-03-14")
	assert.Contains(t, prompt, `"payment_method"`)
	assert.Contains(t, prompt, `"confidence"`)
}

func TestPromptBuilder_Analysis(t *testing.T) {
	pb := newBuilder(t)

	req, err := pb.Analysis("Where did my money go?", "2025-03-01 | Food | -12.00 | tacos")
	require.NoError(t, err)

	assert.Equal(t, FormatText, req.Format())
	assert.Contains(t, req.Prompt(), "Question: Where did my money go?")
	assert.Contains(t, req.Prompt(), "2025-03-01 | Food | -12.00 | tacos")

	req, err = pb.Analysis("Anything?", "")
	require.NoError(t, err)
	assert.Contains(t, req.Prompt(), "(no transactions)")
}

func TestPromptBuilder_Insight(t *testing.T) {
	pb := newBuilder(t)

	req, err := pb.Insight("March 2025", "2025-03-01 | Food | -12.00 | tacos")
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, req.Format())
	assert.Contains(t, req.Prompt(), "March 2025")
	assert.Contains(t, req.Prompt(), `"insights"`)
}

func TestPromptBuilder_Chat(t *testing.T) {
	req := newBuilder(t).Chat("User: hi\nAssistant: hello")

	assert.Equal(t, FormatText, req.Format())
	assert.Equal(t, "User: hi\nAssistant: hello", req.Prompt())
}

func TestDataset(t *testing.T) {
	transactions := []model.Transaction{
		{
			Date:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Category: "Food",
			Amount:   decimal.RequireFromString("12"),
			Type:     model.CategoryTypeExpense,
			Note:     "tacos",
		},
		{
			Date:     time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
			Category: "Salary",
			Amount:   decimal.RequireFromString("2500.5"),
			Type:     model.CategoryTypeIncome,
		},
	}

	assert.Equal(t,
		"2025-03-01 | Food | -12.00 | tacos\n2025-03-02 | Salary | +2500.50 | ",
		Dataset(transactions))
	assert.Empty(t, Dataset(nil))
}
