package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Veraticus/spicewise/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptBuilder renders request payloads from embedded templates.
type PromptBuilder struct {
	templates map[string]*template.Template
}

// NewPromptBuilder creates a PromptBuilder with all templates loaded.
func NewPromptBuilder() (*PromptBuilder, error) {
	pb := &PromptBuilder{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	for _, name := range []string{"extraction", "analysis", "insight"} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(name + ".tmpl").Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

// Extraction builds the JSON-format request that turns free text into one record.
func (pb *PromptBuilder) Extraction(text string, now time.Time) (Request, error) {
	prompt, err := pb.render("extraction", struct {
		Now  time.Time
		Text string
	}{Now: now, Text: strings.TrimSpace(text)})
	if err != nil {
		return Request{}, err
	}
	return NewRequest(FormatJSON, prompt), nil
}

// Analysis builds the free-text request answering question from dataset only.
func (pb *PromptBuilder) Analysis(question, dataset string) (Request, error) {
	prompt, err := pb.render("analysis", struct {
		Question string
		Dataset  string
	}{Question: strings.TrimSpace(question), Dataset: dataset})
	if err != nil {
		return Request{}, err
	}
	return NewRequest(FormatText, prompt), nil
}

// Insight builds the JSON-format request for a period summary.
func (pb *PromptBuilder) Insight(period, dataset string) (Request, error) {
	prompt, err := pb.render("insight", struct {
		Period  string
		Dataset string
	}{Period: period, Dataset: dataset})
	if err != nil {
		return Request{}, err
	}
	return NewRequest(FormatJSON, prompt), nil
}

// Chat passes message through as a free-text request.
func (pb *PromptBuilder) Chat(message string) Request {
	return NewRequest(FormatText, message)
}

// Dataset renders one "date | category | amount | note" line per transaction.
// Expenses are negative. Nothing is truncated.
func Dataset(transactions []model.Transaction) string {
	lines := make([]string, 0, len(transactions))
	for _, t := range transactions {
		amount := t.Amount.Abs()
		sign := "+"
		if t.Type != model.CategoryTypeIncome {
			sign = "-"
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s%s | %s",
			t.Date.Format(time.DateOnly), t.Category, sign, amount.StringFixed(2), t.Note))
	}
	return strings.Join(lines, "\n")
}

func (pb *PromptBuilder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := pb.templates[name].ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatTime(t time.Time) string {
	return t.Format("Monday, 2006-01-02 15:04 MST")
}
