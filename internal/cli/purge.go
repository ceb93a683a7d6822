package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <document-id>",
	Short: "Remove a document's metadata, artifacts, and embeddings",
	Long: "purge deletes the document's index chunks, its extracted image and\n" +
		"text artifacts, and its metadata rows. The processed source PDF is\n" +
		"kept on disk.",
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	id, err := parseDocID(args[0])
	if err != nil {
		return err
	}

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.PurgeDocument(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("document %d purged\n", id)
	return nil
}
