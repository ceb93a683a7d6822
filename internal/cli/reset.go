package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the metadata database, vector index, and extracted artifacts",
	Long: "reset removes the SQLite database, the vector index file, and the\n" +
		"extracted image and text artifacts. Pending and processed PDFs are\n" +
		"left on disk.",
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip confirmation")
}

func runReset(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !resetForce {
		return errors.New("refusing to reset without --force")
	}

	for _, path := range []string{cfg.DatabasePath, cfg.IndexPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	for _, dir := range []string{cfg.ImagesDir, cfg.TextDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	fmt.Println("database, index, and artifacts removed")
	return nil
}
