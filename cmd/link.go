package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"archivelinker/internal/linkage"
	"archivelinker/internal/models"
	"archivelinker/internal/records"
	"archivelinker/internal/storage"
)

var recordsPath string

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link scanned images to accession/inventory records",
	Long: `Link every scanned image to an institutional record.

Images whose filename encodes an accession and inventory number
(e.g. ACC123_INV45.jpg) are joined directly against the record table. Images
without a parseable identifier inherit the record of a directly linked
sibling in their exact-duplicate group, or failing that their similarity
group. Groups whose members point at two different records are flagged as
conflicts and propagation is withheld.

The record table is read from a CSV or XLSX file with columns named
record_id (or id), accession (or code) and inventory (or number).

Example:
  archivelinker link --records ./records.xlsx
  archivelinker link --records ./records.csv`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&recordsPath, "records", "", "Path to the record table (CSV or XLSX)")
	linkCmd.MarkFlagRequired("records")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	table, err := records.Load(recordsPath)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	fmt.Printf("Loaded %d external records\n", len(table))

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	images, err := store.GetAllImages()
	if err != nil {
		return fmt.Errorf("failed to load images: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("no scanned images in database; run 'archivelinker scan' first")
	}

	exact, err := store.GetExactGroups()
	if err != nil {
		return fmt.Errorf("failed to load duplicate groups: %w", err)
	}
	similar, err := store.GetSimilarityGroups()
	if err != nil {
		return fmt.Errorf("failed to load similarity groups: %w", err)
	}

	linker := linkage.NewLinker(table)
	results := linker.Link(images, exact, similar)

	if err := store.SaveExternalRecords(table); err != nil {
		return fmt.Errorf("failed to save external records: %w", err)
	}
	if err := store.SaveLinkageResults(results); err != nil {
		return fmt.Errorf("failed to save linkage results: %w", err)
	}

	counts := make(map[models.LinkageStatus]int)
	for _, res := range results {
		counts[res.Status]++
	}

	fmt.Println()
	fmt.Println("=== Linkage Complete ===")
	fmt.Printf("Direct:     %d\n", counts[models.StatusDirect])
	fmt.Printf("Propagated: %d\n", counts[models.StatusPropagated])
	fmt.Printf("Conflict:   %d\n", counts[models.StatusConflict])
	fmt.Printf("Unlinked:   %d\n", counts[models.StatusUnlinked])

	return nil
}
