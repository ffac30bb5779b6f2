package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Index new or modified documents",
		Long: `Run one ingestion pass over the documents directory plus any paths given.
Only files whose modification time changed since the last run are processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Ingestion.UpdateDocuments(ctx, args)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if result.ChangedFiles > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "files: %d  documents: %d  chunks: %d\n",
					result.ChangedFiles, result.Documents, result.Chunks)
			}
			return nil
		},
	}
}
