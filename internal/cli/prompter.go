package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Prompter asks the user questions on an interactive terminal.
type Prompter struct {
	writer io.Writer
	reader *LineReader
}

// NewPrompter creates a Prompter. Nil arguments select stdin and stdout.
func NewPrompter(reader *LineReader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = NewLineReader(os.Stdin)
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: reader, writer: writer}
}

// Ask prints prompt and returns the next input line.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return p.reader.ReadLine(ctx)
}

// Confirm asks a yes/no question until it gets a valid answer. An empty answer
// selects def.
func (p *Prompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		answer, err := p.Ask(ctx, question+" "+hint)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Please answer y or n.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}
