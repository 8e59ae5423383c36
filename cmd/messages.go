package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/msgkit/internal/controller"
	"github.com/mark3labs/msgkit/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the message list with the actions available to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		appInstance, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		ui.NewCLI(cmd.OutOrStdout()).PrintList(appInstance.Messages(), appInstance.Viewer())
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text|->",
	Short: "Replace a message body",
	Long:  "Replace a message body. Pass - as the text to read it from stdin.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd, controller.Edit, args)
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <id> <text|->",
	Short: "Reply to a message",
	Long:  "Reply to a message. Pass - as the text to read it from stdin.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd, controller.Reply, args)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd, controller.Delete, args)
	},
}

// runFlow runs one flow without the TUI. The command line itself stands in
// for the confirmation dialog.
func runFlow(cmd *cobra.Command, kind controller.Kind, args []string) error {
	id := args[0]
	text, err := flowText(cmd.InOrStdin(), args[1:])
	if err != nil {
		return err
	}

	appInstance, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer appInstance.Close()

	eff, err := appInstance.RunOnce(cmd.Context(), id, kind, text)
	if err != nil {
		return fmt.Errorf("cannot %s message %s: %w", kind, id, err)
	}

	ui.NewCLI(cmd.OutOrStdout()).PrintEffect(kind, id, eff)
	if eff.Err != "" {
		return fmt.Errorf("%s of message %s failed", kind, id)
	}
	return nil
}

// flowText joins the remaining arguments, or reads stdin when the only
// argument is "-".
func flowText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(raw), "\n"), nil
	}
	return strings.Join(args, " "), nil
}
