package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

func fullRegion(sheet *models.Sheet) models.Region {
	bounds, _ := sheet.UsedRange()
	return bounds
}

func TestRenderTableDropsUnlabeledEmptyColumn(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Name", "Unnamed: 1", "Age"},
		{"Alice", "", "30"},
		{"Bob", "", "25"},
	})

	out := RenderTable(sheet, fullRegion(sheet))
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	assert.Equal(t, "| Name | Age |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
	assert.Equal(t, "| Alice | 30 |", lines[2])
	assert.Equal(t, "| Bob | 25 |", lines[3])
}

func TestRenderTableKeepsUnlabeledColumnWithData(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Name", "Unnamed: 1", "Age"},
		{"Alice", "note", "30"},
	})

	out := RenderTable(sheet, fullRegion(sheet))
	lines := strings.Split(out, "\n")

	// The unlabeled column has data below, so it survives with a
	// synthesized name keyed to its position in the region.
	assert.Equal(t, "| Name | Column 2 | Age |", lines[0])
	assert.Equal(t, "| Alice | note | 30 |", lines[2])
}

func TestRenderTableEmptyHeaderWithData(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Name", "", "Age"},
		{"Alice", "note", "30"},
	})

	out := RenderTable(sheet, fullRegion(sheet))
	assert.True(t, strings.HasPrefix(out, "| Name | Column 2 | Age |"), out)
}

func TestRenderTableHeaderOnly(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Name", "Age"},
	})

	out := RenderTable(sheet, fullRegion(sheet))
	assert.Equal(t, "| Name | Age |\n| --- | --- |", out)
}

func TestRenderTableEscapesPipesAndNewlines(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Col"},
		{"a|b"},
		{"line1\nline2"},
	})

	out := RenderTable(sheet, fullRegion(sheet))
	assert.Contains(t, out, `| a\|b |`)
	assert.Contains(t, out, "| line1 line2 |")
	assert.NotContains(t, out, "line1\nline2")
}

func TestRenderTableAllUnlabeledAndEmpty(t *testing.T) {
	sheet := gridSheet([][]string{
		{"Unnamed", "Unnamed: 1"},
	})

	assert.Equal(t, "", RenderTable(sheet, fullRegion(sheet)))
}

func TestFormatCellValuePercent(t *testing.T) {
	cell := models.Cell{Raw: "0.256", Display: "25.60%", NumberFormat: "0.00%"}
	assert.Equal(t, "25.6%", formatCellValue(cell))
}

func TestFormatCellValueCurrency(t *testing.T) {
	cell := models.Cell{Raw: "1234567.89", Display: "$1,234,567.89", NumberFormat: "$#,##0.00"}
	assert.Equal(t, "$1,234,568", formatCellValue(cell))

	neg := models.Cell{Raw: "-500", Display: "($500)", NumberFormat: "$#,##0"}
	assert.Equal(t, "$-500", formatCellValue(neg))
}

func TestFormatCellValueForeignCurrency(t *testing.T) {
	euro := models.Cell{Raw: "1234567.89", Display: "1.234.567,89 €", NumberFormat: "#,##0.00 €"}
	assert.Equal(t, "€1,234,568", formatCellValue(euro))

	pound := models.Cell{Raw: "42", Display: "£42.00", NumberFormat: "£#,##0.00"}
	assert.Equal(t, "£42", formatCellValue(pound))

	yen := models.Cell{Raw: "9000", Display: "¥9,000", NumberFormat: "¥#,##0"}
	assert.Equal(t, "¥9,000", formatCellValue(yen))
}

func TestFormatCellValuePlainString(t *testing.T) {
	cell := models.Cell{Raw: "hello", Display: "hello"}
	assert.Equal(t, "hello", formatCellValue(cell))
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in), "groupThousands(%v)", tt.in)
	}
}

func TestTableChunks(t *testing.T) {
	rows := [][]string{{"ID", "Value"}}
	for i := 1; i <= 95; i++ {
		rows = append(rows, []string{fmt.Sprintf("%d", i), fmt.Sprintf("v%d", i)})
	}
	sheet := gridSheet(rows)

	chunks := TableChunks(sheet, fullRegion(sheet))
	require.Len(t, chunks, 3) // 40 + 40 + 15

	for _, chunk := range chunks {
		lines := strings.Split(chunk, "\n")
		assert.Equal(t, "| ID | Value |", lines[0], "every chunk repeats the header")
		assert.LessOrEqual(t, len(lines)-2, maxChunkRows)
	}

	// First data row of the second chunk continues where the first ended.
	secondLines := strings.Split(chunks[1], "\n")
	assert.Equal(t, "| 41 | v41 |", secondLines[2])
}

func TestTableChunksSmallTableIsNil(t *testing.T) {
	sheet := gridSheet([][]string{
		{"ID"},
		{"1"},
		{"2"},
	})

	assert.Nil(t, TableChunks(sheet, fullRegion(sheet)))
}
