package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spicewise/internal/cli"
)

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage saved chat conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE:  runConversationsList,
	}
	list.Flags().Bool("all", false, "Include archived conversations")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation with all of its messages",
		Args:  cobra.ExactArgs(1),
		RunE:  runConversationsShow,
	}

	archive := &cobra.Command{
		Use:   "archive <id>",
		Short: "Hide a conversation from the list",
		Args:  cobra.ExactArgs(1),
		RunE:  runConversationsArchive,
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE:  runConversationsDelete,
	}
	del.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(list, show, archive, del)
	return cmd
}

func runConversationsList(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	list := a.gateway.List
	if all {
		list = a.gateway.ListAll
	}
	conversations, err := list(cmd.Context())
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatConversationList(conversations))
	return nil
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := a.gateway.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTranscript(conv))
	return nil
}

func runConversationsArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gateway.Archive(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Archived "+args[0]))
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	if !yes {
		prompter := cli.NewPrompter(cli.NewLineReader(cmd.InOrStdin()), out)
		ok, err := prompter.Confirm(cmd.Context(), "Delete conversation "+args[0]+"?", false)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gateway.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Deleted "+args[0]))
	return nil
}
