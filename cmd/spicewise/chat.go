package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spicewise/internal/cli"
	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/model"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the finance assistant",
		Long: `Send one message, or start an interactive session when no message is given.

In a session, Ctrl-C cancels the request in progress; press it again while
idle to quit. Type /new to start a fresh conversation and /quit to leave.`,
		RunE: runChat,
	}

	cmd.Flags().StringP("conversation", "c", "", "Continue the conversation with this ID")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	conversationID, _ := cmd.Flags().GetString("conversation")

	if len(args) > 0 {
		return chatOnce(cmd, strings.Join(args, " "), conversationID)
	}
	return chatSession(cmd, conversationID)
}

func chatOnce(cmd *cobra.Command, message, conversationID string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reply, id, err := a.gateway.Exchange(ctx, message, conversationID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatTurn(model.RoleAssistant, reply))
	_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("conversation "+id))
	return nil
}

func chatSession(cmd *cobra.Command, conversationID string) error {
	out := cmd.OutOrStdout()
	handler := cli.NewInterruptHandler(out)
	session, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	a, err := newApp(session)
	if err != nil {
		return err
	}
	defer a.Close()

	prompter := cli.NewPrompter(cli.NewLineReader(cmd.InOrStdin()), out)
	_, _ = fmt.Fprintln(out, cli.FormatTitle("spicewise chat"))
	_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("/new starts a new conversation, /quit leaves"))

	for {
		line, err := prompter.Ask(session, "You")
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, cli.ErrInputCancelled):
			return nil
		case err != nil:
			return err
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			conversationID = ""
			_, _ = fmt.Fprintln(out, cli.FormatInfo("Started a new conversation"))
			continue
		}

		conversationID = exchange(session, a, handler, out, line, conversationID)
	}
}

// exchange runs one cancellable turn and returns the conversation id to continue with.
func exchange(ctx context.Context, a *app, handler *cli.InterruptHandler, out io.Writer, message, conversationID string) string {
	token := handler.Begin(ctx)
	reply, id, err := a.gateway.Exchange(token.Context(), message, conversationID)
	handler.End(token)

	switch {
	case errors.Is(err, llm.ErrCancelled):
		return conversationID
	case err != nil:
		_, _ = fmt.Fprintln(out, cli.FormatError(explain(err).Error()))
		return conversationID
	}

	_, _ = fmt.Fprintln(out, cli.FormatTurn(model.RoleAssistant, reply))
	return id
}
