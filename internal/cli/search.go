package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchTopK  int
	searchDocID int64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over embedded document chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", 0, "number of results (default from config)")
	searchCmd.Flags().Int64Var(&searchDocID, "doc", 0, "restrict search to one document id")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	k := searchTopK
	if k <= 0 {
		k = app.Cfg.TopK
	}

	hits, err := app.Indexer.Search(cmd.Context(), query, k, searchDocID)
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%d. doc %d chunk %d (score %.4f)\n", i+1, hit.DocID, hit.ChunkIndex, hit.Score)
		fmt.Printf("   %s\n", truncate(hit.Text, 200))
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
