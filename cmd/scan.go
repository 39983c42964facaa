package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"archivelinker/internal/match"
	"archivelinker/internal/models"
	"archivelinker/internal/scan"
	"archivelinker/internal/storage"
)

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Scan a folder and classify duplicate images",
	Long: `Scan a folder recursively for images, fingerprint them and classify
the results.

The scan will:
1. Find all supported images (jpg, png, tiff, webp, etc.)
2. Compute the content digest, weak digest and perceptual hash per image
3. Partition the set into exact-duplicate groups and similarity groups
4. Surface single-digest collisions and unreadable files for audit
5. Rank every group's members by quality and store everything in the database

Example:
  archivelinker scan ./archive
  archivelinker scan /data/scans --workers 16`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	folder := args[0]

	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absFolder)
	if err != nil {
		return fmt.Errorf("folder not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absFolder)
	}

	fmt.Printf("Scanning: %s\n", absFolder)
	fmt.Printf("Workers: %d\n\n", workers)

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	// Create scanner with progress reporting
	lastLine := ""
	s := scan.NewScanner(
		scan.WithWorkers(workers),
		scan.WithProgress(func(scanned, total int, current string) {
			// Clear previous line
			if lastLine != "" {
				fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
			}
			shortPath := current
			if len(shortPath) > 50 {
				shortPath = "..." + shortPath[len(shortPath)-47:]
			}
			lastLine = fmt.Sprintf("Progress: %d/%d  %s", scanned, total, shortPath)
			fmt.Print(lastLine)
		}),
	)

	result, err := s.ScanFolder(absFolder)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	// Clear progress line
	if lastLine != "" {
		fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
	}

	fmt.Printf("Fingerprinted: %d images (%d unreadable)\n", len(result.Records), len(result.Unhashed))

	if err := store.SaveImages(result.Records); err != nil {
		return fmt.Errorf("failed to save images: %w", err)
	}
	if err := store.SaveUnhashed(result.Unhashed); err != nil {
		return fmt.Errorf("failed to save unhashed report: %w", err)
	}

	fmt.Println("Classifying...")
	report := match.NewExactClassifier().Classify(result.Records)
	similar := match.NewSimilarityClassifier().Classify(result.Records)

	if err := store.SaveExactReport(report); err != nil {
		return fmt.Errorf("failed to save exact duplicates: %w", err)
	}
	if err := store.SaveSimilarityGroups(similar); err != nil {
		return fmt.Errorf("failed to save similarity groups: %w", err)
	}

	entries, ambiguous := rankAll(report.Groups, similar)
	if err := store.SaveRankedEntries(entries); err != nil {
		return fmt.Errorf("failed to save rankings: %w", err)
	}

	store.RecordScan(absFolder, len(result.Records), len(result.Unhashed), len(report.Groups), len(similar))

	fmt.Println()
	fmt.Println("=== Scan Complete ===")
	fmt.Printf("Total images:       %d\n", len(result.Records))
	fmt.Printf("Unreadable files:   %d\n", len(result.Unhashed))
	fmt.Printf("Exact groups:       %d\n", len(report.Groups))
	fmt.Printf("Similarity groups:  %d\n", len(similar))
	fmt.Printf("Weak collisions:    %d\n", len(report.WeakCollisions))
	fmt.Printf("Strong collisions:  %d\n", len(report.StrongCollisions))
	fmt.Printf("Ambiguous rankings: %d\n", ambiguous)

	if len(report.Groups) > 0 || len(similar) > 0 {
		fmt.Println()
		fmt.Println("Run 'archivelinker list' to see the groups")
		fmt.Println("Run 'archivelinker link --records FILE' to link accession records")
	}

	return nil
}

// rankAll ranks every group of both partitions and flattens the results into
// storage rows. Returns the rows and the number of ambiguous groups.
func rankAll(exact []*models.DuplicateGroup, similar []*models.SimilarityGroup) ([]storage.RankedEntry, int) {
	var entries []storage.RankedEntry
	ambiguous := 0

	appendGroup := func(kind, key string, members []*models.ImageRecord) {
		ranked := match.RankMembers(members)
		amb := match.Ambiguous(ranked)
		if amb {
			ambiguous++
		}
		for _, m := range ranked {
			entries = append(entries, storage.RankedEntry{
				GroupKind: kind,
				GroupKey:  key,
				Path:      m.Record.Path,
				Rank:      m.Rank,
				Ambiguous: amb,
			})
		}
	}

	for _, g := range exact {
		key := match.DigestHex(g.WeakDigest) + ":" + g.ContentDigest
		appendGroup(storage.KindExact, key, g.Members)
	}
	for _, g := range similar {
		appendGroup(storage.KindSimilar, match.DigestHex(g.Perceptual), g.Members)
	}

	return entries, ambiguous
}
