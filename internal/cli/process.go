package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every PDF in the pending directory",
	RunE:  runProcess,
}

func runProcess(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Service.ProcessPending(cmd.Context())
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	for _, fr := range report.Files {
		if fr.Err != "" {
			fmt.Printf("  %s: %s (%s: %s)\n", fr.Filename, fr.Outcome, fr.Stage, fr.Err)
			continue
		}
		fmt.Printf("  %s: %s\n", fr.Filename, fr.Outcome)
	}
	fmt.Printf("processed %d, duplicates %d, failed %d\n", report.Processed, report.Duplicates, report.Failed)
	return nil
}
