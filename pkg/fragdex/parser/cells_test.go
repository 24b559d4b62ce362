package parser

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	f.SetCellValue(sheetName, "A1", "Header1")
	f.SetCellValue(sheetName, "B1", "Header2")
	f.SetCellValue(sheetName, "A2", 100)
	f.SetCellValue(sheetName, "B2", 200.5)
	f.SetCellValue(sheetName, "A3", "Text")

	tmpFile := filepath.Join(t.TempDir(), "test.xlsx")
	if err := f.SaveAs(tmpFile); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	f2, err := excelize.OpenFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open test file: %v", err)
	}
	defer f2.Close()

	sheet, err := ReadSheet(f2, sheetName, 1)
	if err != nil {
		t.Fatalf("ReadSheet failed: %v", err)
	}

	if sheet.Name != sheetName {
		t.Errorf("Expected sheet name %q, got %q", sheetName, sheet.Name)
	}
	if sheet.Index != 1 {
		t.Errorf("Expected sheet index 1, got %d", sheet.Index)
	}

	if got := sheet.Cell(1, 1).Raw; got != "Header1" {
		t.Errorf("Expected 'Header1' at (1,1), got %q", got)
	}
	if got := sheet.Cell(2, 1).Raw; got != "100" {
		t.Errorf("Expected '100' at (2,1), got %q", got)
	}
	if got := sheet.Cell(2, 2).Raw; got != "200.5" {
		t.Errorf("Expected '200.5' at (2,2), got %q", got)
	}

	if n, ok := sheet.Cell(2, 1).Number(); !ok || n != 100 {
		t.Errorf("Expected numeric 100 at (2,1), got %v (ok=%v)", n, ok)
	}

	bounds, ok := sheet.UsedRange()
	if !ok {
		t.Fatal("Expected a used range")
	}
	if bounds.MinRow != 1 || bounds.MaxRow != 3 || bounds.MinCol != 1 || bounds.MaxCol != 2 {
		t.Errorf("Unexpected used range: %+v", bounds)
	}
}

func TestReadSheetMergedRanges(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	f.SetCellValue(sheetName, "A1", "Merged")
	if err := f.MergeCell(sheetName, "A1", "B2"); err != nil {
		t.Fatalf("MergeCell failed: %v", err)
	}
	f.SetCellValue(sheetName, "C1", "Side")

	tmpFile := filepath.Join(t.TempDir(), "merged.xlsx")
	if err := f.SaveAs(tmpFile); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	f2, err := excelize.OpenFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open test file: %v", err)
	}
	defer f2.Close()

	sheet, err := ReadSheet(f2, sheetName, 1)
	if err != nil {
		t.Fatalf("ReadSheet failed: %v", err)
	}

	// Every member cell of A1:B2 carries the top-left value.
	for _, pos := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		if got := sheet.Cell(pos[0], pos[1]).Raw; got != "Merged" {
			t.Errorf("Expected 'Merged' at (%d,%d), got %q", pos[0], pos[1], got)
		}
	}
	if got := sheet.Cell(1, 3).Raw; got != "Side" {
		t.Errorf("Expected 'Side' at (1,3), got %q", got)
	}

	if len(sheet.Merged) != 1 {
		t.Fatalf("Expected 1 merged range, got %d", len(sheet.Merged))
	}
	mr := sheet.Merged[0]
	if mr.MinRow != 1 || mr.MaxRow != 2 || mr.MinCol != 1 || mr.MaxCol != 2 {
		t.Errorf("Unexpected merged range: %+v", mr)
	}
}

func TestReadSheetEmpty(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	tmpFile := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := f.SaveAs(tmpFile); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	f2, err := excelize.OpenFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open test file: %v", err)
	}
	defer f2.Close()

	sheet, err := ReadSheet(f2, "Sheet1", 1)
	if err != nil {
		t.Fatalf("ReadSheet failed: %v", err)
	}

	if _, ok := sheet.UsedRange(); ok {
		t.Error("Expected no used range for an empty sheet")
	}
}
