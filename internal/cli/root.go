// Package cli implements the pdfinsight command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	DataDir    string
	ListenAddr string
	JSON       bool
	Quiet      bool
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "pdfinsight",
	Short: "Batch PDF processing with metadata extraction and semantic search",
	Long: "pdfinsight ingests PDF files from a pending directory, extracts text,\n" +
		"images, and metadata into content-addressed artifacts, and builds a\n" +
		"vector embedding index for semantic search.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "pdfinsight.toml", "config file path")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DataDir, "data-dir", "", "data directory (default: ./data)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "emit JSON output for automation")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Quiet, "quiet", false, "reduce output")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and returns an error; exit code is set
// by RunE.
func Execute() error {
	return rootCmd.Execute()
}
