package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	workers int
)

var rootCmd = &cobra.Command{
	Use:   "archivelinker",
	Short: "Find duplicate archive images and link them to accession records",
	Long: `archivelinker analyzes a directory tree of archival image scans.

It fingerprints every image with a content digest, a weak byte-average digest
and a perceptual hash, partitions the set into exact-duplicate groups and
similarity groups, ranks each group by quality (unique colors, resolution),
and links images to institutional accession/inventory records, either directly
via filename-encoded identifiers or by propagating a linked sibling's record
through the duplicate groups.

Example usage:
  archivelinker scan ./archive              # Fingerprint and classify a folder
  archivelinker list                        # Show duplicate and similarity groups
  archivelinker link --records records.xlsx # Link images to accession records
  archivelinker export --out ./csv          # Dump all result tables as CSV
  archivelinker clean --dry-run             # Preview duplicate removal`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Default database path
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".archivelinker", "images.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Path to SQLite database")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 8, "Number of parallel workers for scanning")
}
