package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var backupDir string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the metadata database and vector index to a backup directory",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dest", "", "backup directory (default: <data-dir>/backups)")
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dest := backupDir
	if dest == "" {
		dest = filepath.Join(cfg.DataDir, "backups")
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	for _, src := range []string{cfg.DatabasePath, cfg.IndexPath} {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		base := filepath.Base(src)
		target := filepath.Join(dest, stamp+"-"+base)
		if err := copyRegular(src, target); err != nil {
			return fmt.Errorf("backup %s: %w", base, err)
		}
		fmt.Println("wrote", target)
	}
	return nil
}

func copyRegular(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
