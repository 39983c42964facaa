package records

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test CSV: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `record_id,accession,inventory
R1,ACC123,INV45
R2,ACC123,INV46
`)
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 records, got %d", len(table))
	}
	if table[0].RecordID != "R1" || table[0].Accession != "ACC123" || table[0].Inventory != "INV45" {
		t.Errorf("record 0 = %+v", table[0])
	}
	if table[0].CodeAndNumber != "ACC123/INV45" {
		t.Errorf("CodeAndNumber = %q, want ACC123/INV45", table[0].CodeAndNumber)
	}
}

func TestLoadCSV_HeaderAliases(t *testing.T) {
	path := writeCSV(t, `ID,Code,Number
R1,ACC,7
`)
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(table) != 1 || table[0].CodeAndNumber != "ACC/7" {
		t.Errorf("aliased header not recognized: %+v", table)
	}
}

func TestLoadCSV_MissingColumns(t *testing.T) {
	path := writeCSV(t, `foo,bar
1,2
`)
	if _, err := LoadCSV(path); err == nil {
		t.Error("expected error for header without the required columns")
	}
}

func TestLoadCSV_SkipsUnusableRows(t *testing.T) {
	// Rows without a record ID or inventory number cannot join anything.
	path := writeCSV(t, `record_id,accession,inventory
R1,ACC,1
,ACC,2
R3,ACC,
R4,,4
`)
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 usable rows, got %d", len(table))
	}
	if table[0].RecordID != "R1" || table[1].RecordID != "R4" {
		t.Errorf("kept rows = %s, %s, want R1, R4", table[0].RecordID, table[1].RecordID)
	}
	// Missing accession still forms a key.
	if table[1].CodeAndNumber != "/4" {
		t.Errorf("R4 key = %q, want /4", table[1].CodeAndNumber)
	}
}

func TestLoadCSV_StripsMarkup(t *testing.T) {
	path := writeCSV(t, `record_id,accession,inventory
R1,<ZR><BCURS>ACC123<ECURS>,<BCURS>45<ECURS><ZR>
R2,ACC<b>124,46<br>
`)
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if table[0].Accession != "ACC123" || table[0].Inventory != "45" {
		t.Errorf("markup not stripped: %+v", table[0])
	}
	// <b> and <br> turn into commas, which are trimmed at field edges.
	if table[1].Accession != "ACC,124" || table[1].Inventory != "46" {
		t.Errorf("tag conversion wrong: accession %q inventory %q", table[1].Accession, table[1].Inventory)
	}
}

func TestLoadCSV_LeadingZerosKept(t *testing.T) {
	path := writeCSV(t, `record_id,accession,inventory
R1,007,0042
`)
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if table[0].CodeAndNumber != "007/0042" {
		t.Errorf("key = %q, want 007/0042", table[0].CodeAndNumber)
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]interface{}{
		{"record_id", "accession", "inventory"},
		{"R1", "ACC123", "INV45"},
		{"R2", "007", "0042"},
	}
	for i, row := range cells {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to build cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	f.Close()

	table, err := LoadXLSX(path)
	if err != nil {
		t.Fatalf("LoadXLSX failed: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 records, got %d", len(table))
	}
	if table[0].CodeAndNumber != "ACC123/INV45" {
		t.Errorf("record 0 key = %q", table[0].CodeAndNumber)
	}
	if table[1].CodeAndNumber != "007/0042" {
		t.Errorf("leading zeros lost in workbook roundtrip: %q", table[1].CodeAndNumber)
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	path := writeCSV(t, "record_id,accession,inventory\nR1,A,1\n")
	if _, err := Load(path); err != nil {
		t.Errorf("Load should dispatch .csv: %v", err)
	}
	if _, err := Load("records.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadCSV_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	if _, err := LoadCSV(path); err == nil {
		t.Error("expected error for empty records table")
	}
}
