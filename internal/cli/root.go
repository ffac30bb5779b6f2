package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the ragchatd command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragchatd",
		Short: "Retrieval-augmented chat over local documents",
		Long: `ragchatd indexes PDF and text documents and answers questions about them.

Configuration is read from RAGCHAT_* environment variables (and .env).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(IngestCmd())
	rootCmd.AddCommand(AskCmd())

	return rootCmd
}
