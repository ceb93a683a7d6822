package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var embedAll bool

var embedCmd = &cobra.Command{
	Use:   "embed [document-id]",
	Short: "Generate embeddings for a document, or all unembedded documents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEmbed,
}

var embedDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove a document's embeddings and reset its status",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmbedDelete,
}

func init() {
	embedCmd.Flags().BoolVar(&embedAll, "all", false, "embed every document not yet complete")
	embedCmd.AddCommand(embedDeleteCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if !embedAll && len(args) == 0 {
		return errors.New("pass a document id or --all")
	}

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if embedAll {
		done, err := app.Service.GenerateAllEmbeddings(cmd.Context())
		fmt.Printf("embedded %d documents\n", done)
		return err
	}

	id, err := parseDocID(args[0])
	if err != nil {
		return err
	}
	count, err := app.Service.GenerateEmbeddings(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("document %d: %d embeddings\n", id, count)
	return nil
}

func runEmbedDelete(cmd *cobra.Command, args []string) error {
	id, err := parseDocID(args[0])
	if err != nil {
		return err
	}

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.DeleteEmbeddings(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("document %d: embeddings removed\n", id)
	return nil
}

func parseDocID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return id, nil
}
