// Package records ingests the institutional accession/inventory table that
// images are linked against.
package records

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"archivelinker/internal/linkage"
	"archivelinker/internal/models"
)

// markupReplacer strips the legacy markup tags that record exports carry
// inside their text fields.
var markupReplacer = strings.NewReplacer(
	"<ZR><BCURS>", "",
	"<BCURS>", "",
	"<ECURS>", "",
	"<ZR>", "",
	"<b>", ",",
	"<br>", ",",
)

// Load reads an external record table from a CSV or XLSX file, dispatching
// on the file extension.
func Load(path string) ([]*models.ExternalRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported records format: %s", filepath.Ext(path))
	}
}

// LoadCSV reads an external record table from a CSV file. The first row must
// be a header naming the record ID, accession and inventory columns.
func LoadCSV(path string) ([]*models.ExternalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	return parseRows(rows)
}

// LoadXLSX reads an external record table from the first sheet of an XLSX
// workbook, with the same header conventions as LoadCSV.
func LoadXLSX(path string) ([]*models.ExternalRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets: %s", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return parseRows(rows)
}

// parseRows turns raw table rows into external records. Rows without an
// inventory number or record ID cannot form a join key and are skipped.
func parseRows(rows [][]string) ([]*models.ExternalRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("records table is empty")
	}

	header := rows[0]
	idIdx := findColumn(header, "record_id", "id")
	accIdx := findColumn(header, "accession", "code")
	invIdx := findColumn(header, "inventory", "number")
	if idIdx < 0 || accIdx < 0 || invIdx < 0 {
		return nil, fmt.Errorf("records header must name record_id, accession and inventory columns, got %v", header)
	}

	var table []*models.ExternalRecord
	for _, row := range rows[1:] {
		id := cleanField(cell(row, idIdx))
		accession := cleanField(cell(row, accIdx))
		inventory := cleanField(cell(row, invIdx))
		if id == "" || inventory == "" {
			continue
		}

		table = append(table, &models.ExternalRecord{
			RecordID:      id,
			Accession:     accession,
			Inventory:     inventory,
			CodeAndNumber: linkage.DeriveKey(accession, inventory),
		})
	}
	return table, nil
}

// findColumn locates a header column by any of its accepted names,
// case-insensitively.
func findColumn(header []string, names ...string) int {
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		for _, name := range names {
			if col == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

// cleanField strips legacy markup and surrounding separators from a field.
func cleanField(s string) string {
	s = markupReplacer.Replace(s)
	return strings.Trim(strings.TrimSpace(s), ",")
}
