package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spicewise/internal/model"
)

const listTimeLayout = "Jan 2, 2006 15:04"

// FormatAmount renders an amount signed by record type: expenses negative.
func FormatAmount(t model.CategoryType, amount string) string {
	if t == model.CategoryTypeIncome {
		return IncomeStyle.Render("+" + amount)
	}
	return ExpenseStyle.Render("-" + amount)
}

// FormatRecord renders an extracted record for review.
func FormatRecord(r *model.ExtractedRecord) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
	}

	row("Amount", FormatAmount(r.Type, r.Amount.StringFixed(2)))
	row("Type", string(r.Type))
	category := r.Category
	if r.CategoryID == nil {
		category += " " + SubtleStyle.Render("(unsaved)")
	}
	row("Category", category)
	row("Account", r.Account)
	if r.PaymentMethod != "" {
		row("Payment", r.PaymentMethod)
	}
	if r.Note != "" {
		row("Note", r.Note)
	}
	row("Date", r.Date.Format("Mon, Jan 2, 2006"))
	row("Confidence", formatConfidence(r.Confidence))

	return RenderBox(RobotIcon+" Extracted record", strings.TrimRight(b.String(), "\n"))
}

func formatConfidence(c float64) string {
	text := fmt.Sprintf("%.0f%%", c*100)
	switch {
	case c >= 0.8:
		return SuccessStyle.Render(text)
	case c >= 0.5:
		return WarningStyle.Render(text)
	default:
		return ErrorStyle.Render(text)
	}
}

// FormatConversationList renders conversations as a table.
func FormatConversationList(conversations []model.Conversation) string {
	if len(conversations) == 0 {
		return SubtleStyle.Render("No conversations yet.")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		TableCellStyle.Width(38).Render("ID"),
		TableCellStyle.Width(36).Render("Title"),
		TableCellStyle.Render("Updated"))

	rows := []string{TableHeaderStyle.Render(header)}
	for _, c := range conversations {
		title := c.Title
		if c.Archived {
			title += " " + SubtleStyle.Render("[archived]")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			TableCellStyle.Width(38).Render(c.ID),
			TableCellStyle.Width(36).Render(title),
			TableCellStyle.Render(c.UpdatedAt.Local().Format(listTimeLayout))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// FormatTranscript renders a conversation with all of its messages.
func FormatTranscript(c *model.Conversation) string {
	lines := []string{
		FormatTitle(c.Title),
		SubtleStyle.Render(fmt.Sprintf("%s · started %s", c.ID, c.CreatedAt.Local().Format(listTimeLayout))),
		"",
	}
	for _, m := range c.Messages {
		lines = append(lines, FormatTurn(m.Role, m.Content), "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// FormatTurn renders one chat turn.
func FormatTurn(role model.Role, content string) string {
	label := role.Label()
	if role == model.RoleAssistant {
		label = RobotIcon + " " + label
	}
	return SpeakerStyle.Render(label+":") + " " + content
}

// FormatInsight renders an insight summary with its observations.
func FormatInsight(r *model.InsightResult) string {
	var b strings.Builder
	b.WriteString(r.Summary)
	if len(r.Insights) > 0 {
		b.WriteString("\n")
		for _, item := range r.Insights {
			fmt.Fprintf(&b, "\n  • %s", item)
		}
	}
	b.WriteString("\n\n" + SubtleStyle.Render("Generated "+r.GeneratedAt.Local().Format(listTimeLayout)))
	return RenderBox(ChartIcon+" "+r.Period, b.String())
}
