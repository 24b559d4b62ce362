package fragdex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
	"github.com/fragdex/fragdex/pkg/fragdex/parser"
)

func saveWorkbook(t *testing.T, f *excelize.File, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func fragmentsOfType(fragments []models.Fragment, ft models.FragmentType) []models.Fragment {
	var out []models.Fragment
	for _, frag := range fragments {
		if frag.Metadata.Type == ft {
			out = append(out, frag)
		}
	}
	return out
}

func TestParseTableAndChart(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "Region")
	f.SetCellValue("Sheet1", "B1", "Sales")
	f.SetCellValue("Sheet1", "A2", "North")
	f.SetCellValue("Sheet1", "B2", 10)
	f.SetCellValue("Sheet1", "A3", "South")
	f.SetCellValue("Sheet1", "B3", 20)
	require.NoError(t, f.AddChart("Sheet1", "E1", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       "Sheet1!$B$1",
			Categories: "Sheet1!$A$2:$A$3",
			Values:     "Sheet1!$B$2:$B$3",
		}},
	}))

	// An empty second sheet must contribute no fragments.
	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)

	path := saveWorkbook(t, f, "report.xlsx")

	parser := NewParser(DefaultOptions())
	fragments, err := parser.Parse(path)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)

	tables := fragmentsOfType(fragments, models.FragmentFullTable)
	require.Len(t, tables, 1)
	assert.Contains(t, tables[0].Content, "| Region | Sales |")
	assert.Contains(t, tables[0].Content, "| North | 10 |")
	assert.Equal(t, "Sheet1", tables[0].Metadata.SheetName)
	assert.Equal(t, 1, tables[0].Metadata.SheetNumber)

	charts := fragmentsOfType(fragments, models.FragmentChart)
	require.Len(t, charts, 1)
	assert.Contains(t, charts[0].Content, "| Slice Label | Value |")
	assert.Contains(t, charts[0].Content, "North")
	assert.Equal(t, "pie", charts[0].Metadata.Extra["chart_kind"])

	for _, frag := range fragments {
		assert.Equal(t, path, frag.Metadata.FilePath)
		assert.NotEmpty(t, frag.Metadata.FileHash)
		assert.Equal(t, fragments[0].Metadata.FileHash, frag.Metadata.FileHash,
			"every fragment carries the document hash")
		assert.NotEqual(t, "Sheet2", frag.Metadata.SheetName,
			"an empty sheet contributes no fragments")
	}
}

func TestParseChunksLargeTable(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "ID")
	for i := 1; i <= 45; i++ {
		f.SetCellValue("Sheet1", fmt.Sprintf("A%d", i+1), i)
	}

	path := saveWorkbook(t, f, "big.xlsx")

	parser := NewParser(DefaultOptions())
	fragments, err := parser.Parse(path)
	require.NoError(t, err)

	tables := fragmentsOfType(fragments, models.FragmentFullTable)
	require.Len(t, tables, 1, "the full table is always emitted")

	chunks := fragmentsOfType(fragments, models.FragmentTableChunk)
	require.Len(t, chunks, 2) // 40 + 5 data rows
	assert.Equal(t, 1, chunks[0].Metadata.Extra["chunk_index"])
	assert.Equal(t, 2, chunks[1].Metadata.Extra["chunk_index"])
	assert.Equal(t, 2, chunks[0].Metadata.Extra["chunk_count"])
}

func TestParseHashStableAcrossParses(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "x")
	path := saveWorkbook(t, f, "stable.xlsx")

	parser := NewParser(DefaultOptions())
	first, err := parser.Parse(path)
	require.NoError(t, err)
	second, err := parser.Parse(path)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.Equal(t, first[0].Metadata.FileHash, second[0].Metadata.FileHash)
}

func TestParseSheetRecoversFromPanic(t *testing.T) {
	p := NewParser(DefaultOptions())

	// A nil workbook handle panics inside the cell reader; the boundary
	// must absorb it and surrender only that sheet's fragments.
	var fragments []models.Fragment
	require.NotPanics(t, func() {
		fragments = p.parseSheetSafe(nil, "x.xlsx", "hash", "Sheet1", 1, nil, parser.SheetDrawing{})
	})
	assert.Nil(t, fragments)
}

func TestParseMissingFile(t *testing.T) {
	parser := NewParser(DefaultOptions())
	_, err := parser.Parse(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)

	var loadErr *DocumentLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestParseCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0644))

	parser := NewParser(DefaultOptions())
	_, err := parser.Parse(path)
	require.Error(t, err)

	var loadErr *DocumentLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("a/b/report.xlsx"))
	assert.True(t, IsSupportedFile("macro.XLSM"))
	assert.False(t, IsSupportedFile("notes.txt"))
	assert.False(t, IsSupportedFile("legacy.xls"))
}
