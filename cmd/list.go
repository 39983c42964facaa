package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archivelinker/internal/match"
	"archivelinker/internal/models"
	"archivelinker/internal/storage"
)

var (
	listSimilar    bool
	listCollisions bool
	listLinkage    bool
	listJSON       bool
	listLimit      int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List duplicate groups and classification results",
	Long: `Display the stored classification results.

By default the exact-duplicate groups are shown with their quality ranking;
rank 1 is the keep candidate, a shared rank 1 is flagged as ambiguous.

Example:
  archivelinker list                 # Exact-duplicate groups
  archivelinker list --similar       # Similarity groups
  archivelinker list --collisions    # Single-digest collision candidates
  archivelinker list --linkage       # Linkage results per image
  archivelinker list --json          # Machine-readable output`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listSimilar, "similar", false, "Show similarity groups instead of exact duplicates")
	listCmd.Flags().BoolVar(&listCollisions, "collisions", false, "Show collision candidates")
	listCmd.Flags().BoolVar(&listLinkage, "linkage", false, "Show linkage results")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Limit number of groups to display (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	switch {
	case listCollisions:
		return printCollisions(store)
	case listLinkage:
		return printLinkage(store)
	case listSimilar:
		groups, err := store.GetSimilarityGroups()
		if err != nil {
			return fmt.Errorf("failed to get similarity groups: %w", err)
		}
		if listJSON {
			return printJSON(groups)
		}
		if len(groups) == 0 {
			fmt.Println("No similarity groups found.")
			return nil
		}
		fmt.Printf("Found %d similarity groups\n\n", len(groups))
		for i, g := range limitGroups(groups) {
			fmt.Printf("Group %d (pHash %s):\n", i+1, match.DigestHex(g.Perceptual))
			printRanked(g.Members)
		}
		return nil
	default:
		groups, err := store.GetExactGroups()
		if err != nil {
			return fmt.Errorf("failed to get duplicate groups: %w", err)
		}
		if listJSON {
			return printJSON(groups)
		}
		if len(groups) == 0 {
			fmt.Println("No exact-duplicate groups found.")
			fmt.Println("Run 'archivelinker scan <folder>' to scan for duplicates.")
			return nil
		}
		fmt.Printf("Found %d exact-duplicate groups\n\n", len(groups))
		for i, g := range limitGroups(groups) {
			fmt.Printf("Group %d (digest %.12s..., weak %s):\n",
				i+1, g.ContentDigest, match.DigestHex(g.WeakDigest))
			printRanked(g.Members)
		}
		return nil
	}
}

// printRanked shows a group's members with their quality ranks.
func printRanked(members []*models.ImageRecord) {
	ranked := match.RankMembers(members)
	if match.Ambiguous(ranked) {
		fmt.Println("  [ambiguous: multiple members share rank 1]")
	}
	for _, m := range ranked {
		marker := " "
		if m.Rank == 1 {
			marker = "*"
		}
		res := "?"
		if m.Record.HasResolution {
			res = fmt.Sprintf("%dx%d", m.Record.XResolution, m.Record.YResolution)
		}
		colors := "?"
		if m.Record.HasColors {
			colors = fmt.Sprintf("%d", m.Record.UniqueColors)
		}
		fmt.Printf("  %s rank %d  %s  (%s, %s colors)\n", marker, m.Rank, m.Record.Path, res, colors)
	}
	fmt.Println()
}

func printCollisions(store *storage.Storage) error {
	weak, err := store.GetCollisions(models.WeakCollision)
	if err != nil {
		return fmt.Errorf("failed to get weak collisions: %w", err)
	}
	strong, err := store.GetCollisions(models.StrongCollision)
	if err != nil {
		return fmt.Errorf("failed to get strong collisions: %w", err)
	}

	if listJSON {
		return printJSON(map[string][]*models.CollisionGroup{
			"weak":   weak,
			"strong": strong,
		})
	}

	if len(weak) == 0 && len(strong) == 0 {
		fmt.Println("No collision candidates found.")
		return nil
	}

	for _, g := range weak {
		fmt.Printf("Weak-digest collision %s:\n", g.HashValue)
		for _, m := range g.Members {
			fmt.Printf("    %s  (digest %.12s...)\n", m.Path, m.ContentDigest)
		}
	}
	for _, g := range strong {
		fmt.Printf("Content-digest collision %.12s...:\n", g.HashValue)
		for _, m := range g.Members {
			fmt.Printf("    %s  (weak %s)\n", m.Path, match.DigestHex(m.WeakDigest))
		}
	}
	return nil
}

func printLinkage(store *storage.Storage) error {
	results, err := store.GetLinkageResults()
	if err != nil {
		return fmt.Errorf("failed to get linkage results: %w", err)
	}
	if listJSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No linkage results found.")
		fmt.Println("Run 'archivelinker link --records FILE' first.")
		return nil
	}
	for _, res := range results {
		id := res.RecordID
		if id == "" {
			id = "-"
		}
		fmt.Printf("%-10s %-12s %s\n", res.Status, id, res.Path)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// limitGroups applies the --limit flag to a group slice.
func limitGroups[T any](groups []T) []T {
	if listLimit <= 0 || listLimit >= len(groups) {
		return groups
	}
	return groups[:listLimit]
}
