package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question against the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if threadID == "" {
				threadID = uuid.NewString()
			}

			result, err := app.Conversation.Answer(ctx, threadID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
			fmt.Fprintf(cmd.ErrOrStderr(), "thread: %s (%s)\n", result.ThreadID, result.State)
			return nil
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Conversation thread id (default: new thread)")
	return cmd
}
