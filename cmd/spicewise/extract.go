package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spicewise/internal/cli"
	"github.com/Veraticus/spicewise/internal/llm"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <text>",
		Short: "Turn a sentence into an expense or income record",
		Long: `Ask the model to read a free-text note and extract one financial record.
Anything the note leaves out is filled with defaults.

Examples:
  # Preview the record
  spicewise extract "spent 12.50 on lunch yesterday"

  # Save it without asking
  spicewise extract --save "salary 3200 today"

  # Review before saving
  spicewise extract --confirm "taxi 18 with card"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().Bool("save", false, "Save the extracted record")
	cmd.Flags().Bool("confirm", false, "Ask before saving the extracted record")
	cmd.Flags().String("now", "", "Reference time for relative dates (RFC 3339 or YYYY-MM-DD, default now)")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	save, _ := cmd.Flags().GetBool("save")
	confirm, _ := cmd.Flags().GetBool("confirm")
	nowFlag, _ := cmd.Flags().GetString("now")

	now := time.Now()
	if nowFlag != "" {
		parsed, err := llm.ParseFlexibleTime(nowFlag)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		now = parsed
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.gateway.Extract(ctx, strings.Join(args, " "), now)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatRecord(record))

	if confirm && !save {
		prompter := cli.NewPrompter(cli.NewLineReader(cmd.InOrStdin()), out)
		save, err = prompter.Confirm(ctx, "Save this record?", true)
		if err != nil {
			return err
		}
	}
	if !save {
		return nil
	}

	txn, err := a.gateway.Save(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Saved as "+txn.ID))
	return nil
}
