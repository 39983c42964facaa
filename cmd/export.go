package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"archivelinker/internal/storage"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all result tables as CSV files",
	Long: `Write every stored table to a CSV file: images, exact duplicates,
collision candidates, similarity groups, rankings, external records,
linkage results and the unhashed-file report.

Example:
  archivelinker export --out ./csv`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", "./export", "Directory to write CSV files to")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	absDir, err := filepath.Abs(exportDir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := store.ExportCSV(absDir); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported CSV files to %s\n", absDir)
	return nil
}
