package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"archivelinker/internal/fileutil"
	"archivelinker/internal/match"
	"archivelinker/internal/models"
	"archivelinker/internal/storage"
)

var (
	dryRun    bool
	moveTo    string
	permanent bool
	noConfirm bool
	keepFirst bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove redundant exact-duplicate images",
	Long: `Remove the lower-ranked members of each exact-duplicate group.

Only exact duplicates (byte-identical content) are cleaned; similarity groups
are never touched automatically. The rank-1 member of each group is kept and
the rest moved to trash (default) or a folder. Groups where several members
share rank 1 are skipped unless --keep-first makes the tie-break explicit.

Options:
  --dry-run     Preview what would be removed without actually removing
  --permanent   Delete files permanently instead of moving to trash
  --move-to     Move duplicates to a specific folder
  --keep-first  Resolve rank-1 ties by keeping the alphabetically first path
  --yes         Skip confirmation prompt

Example:
  archivelinker clean --dry-run            # Preview only
  archivelinker clean                      # Move to trash (default)
  archivelinker clean --move-to=./backup   # Move to specific folder
  archivelinker clean --keep-first --yes   # Clean tied groups too`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without removing")
	cleanCmd.Flags().BoolVar(&permanent, "permanent", false, "Delete permanently instead of moving to trash")
	cleanCmd.Flags().StringVar(&moveTo, "move-to", "", "Move duplicates to this folder")
	cleanCmd.Flags().BoolVar(&keepFirst, "keep-first", false, "Resolve rank-1 ties by keeping the alphabetically first path")
	cleanCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	groups, err := store.GetExactGroups()
	if err != nil {
		return fmt.Errorf("failed to get duplicate groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Println("No exact-duplicate groups found. Nothing to clean.")
		return nil
	}

	var toRemove []*models.ImageRecord
	skipped := 0
	for _, g := range groups {
		ranked := match.RankMembers(g.Members)
		if match.Ambiguous(ranked) && !keepFirst {
			skipped++
			continue
		}
		// ranked is ordered best-first with paths breaking display ties,
		// so with --keep-first the first entry is the explicit keeper.
		for _, m := range ranked[1:] {
			toRemove = append(toRemove, m.Record)
		}
	}

	if skipped > 0 {
		fmt.Printf("Skipping %d groups with ambiguous rank-1 ties (use --keep-first to include them)\n", skipped)
	}
	if len(toRemove) == 0 {
		fmt.Println("Nothing to remove.")
		return nil
	}

	var totalSize int64
	for _, r := range toRemove {
		totalSize += r.FileSize
	}
	fmt.Printf("Will remove %d files (%s)\n", len(toRemove), formatSize(totalSize))

	if dryRun {
		for _, r := range toRemove {
			fmt.Printf("  would remove: %s\n", r.Path)
		}
		return nil
	}

	if !noConfirm {
		action := "move to trash"
		if permanent {
			action = "permanently delete"
		} else if moveTo != "" {
			action = "move to " + moveTo
		}
		fmt.Printf("About to %s %d files. Continue? [y/N] ", action, len(toRemove))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	removed := 0
	for _, r := range toRemove {
		var err error
		switch {
		case permanent:
			err = os.Remove(r.Path)
		case moveTo != "":
			err = fileutil.MoveFile(r.Path, moveTo)
		default:
			err = fileutil.MoveToTrash(r.Path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove %s: %v\n", r.Path, err)
			continue
		}
		if err := store.DeleteImage(r.Path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to forget %s: %v\n", r.Path, err)
		}
		removed++
	}

	fmt.Printf("Removed %d of %d files\n", removed, len(toRemove))
	return nil
}

// formatSize formats a byte count for humans.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
