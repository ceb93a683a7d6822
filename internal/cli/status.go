package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus statistics and pending work",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Layout.EnsureLayout(); err != nil {
		return err
	}

	stats, err := app.Store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	pending, err := app.Layout.ListPending()
	if err != nil {
		return err
	}
	problems, err := app.Service.CheckConsistency(cmd.Context())
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"stats":         stats,
			"pending":       len(pending),
			"index_chunks":  app.Index.Len(),
			"inconsistent":  len(problems),
		})
	}

	fmt.Println("Data:", app.Cfg.DataDir)
	fmt.Println("Documents:", stats.TotalDocuments)
	fmt.Println("  pages:", stats.TotalPages)
	fmt.Println("  words:", stats.TotalWords)
	fmt.Println("  images:", stats.TotalImages)
	fmt.Println("  embeddings:", stats.TotalEmbeddings)
	fmt.Printf("  avg pages: %.1f  avg words: %.1f\n", stats.AvgPages, stats.AvgWords)
	fmt.Println("Index chunks:", app.Index.Len())
	fmt.Println("Pending:", len(pending))
	for _, p := range pending {
		fmt.Println("  ", filepath.Base(p))
	}
	if len(problems) > 0 {
		fmt.Println("Inconsistencies:")
		for _, p := range problems {
			fmt.Println("  ", p.Error())
		}
	}
	return nil
}
