package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// maxChunkRows is the data-row budget for one table chunk.
const maxChunkRows = 40

// unnamedHeaderPattern matches placeholder headers emitted for unlabeled
// columns ("Unnamed", "Unnamed: 3").
var unnamedHeaderPattern = regexp.MustCompile(`^Unnamed(:\s*\d+)?$`)

// RenderTable renders a region as one markdown table: first non-empty row
// as header, unlabeled columns elided unless they carry data. Returns ""
// when no column survives selection.
func RenderTable(sheet *models.Sheet, region models.Region) string {
	headers, rows := tableData(sheet, region)
	if len(headers) == 0 {
		return ""
	}
	return markdownTable(headers, rows)
}

// TableChunks splits a large region into header-repeating markdown tables
// of at most maxChunkRows data rows each. Returns nil when the region fits
// in a single table.
func TableChunks(sheet *models.Sheet, region models.Region) []string {
	headers, rows := tableData(sheet, region)
	if len(headers) == 0 || len(rows) <= maxChunkRows {
		return nil
	}

	var chunks []string
	for start := 0; start < len(rows); start += maxChunkRows {
		end := start + maxChunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, markdownTable(headers, rows[start:end]))
	}
	return chunks
}

// tableData stringifies a region, drops empty rows, and applies header
// selection. The returned rows are projected onto the surviving columns.
func tableData(sheet *models.Sheet, region models.Region) ([]string, [][]string) {
	var raw [][]string
	for r := region.MinRow; r <= region.MaxRow; r++ {
		row := make([]string, 0, region.Cols())
		empty := true
		for c := region.MinCol; c <= region.MaxCol; c++ {
			v := formatCellValue(sheet.Cell(r, c))
			if v != "" {
				empty = false
			}
			row = append(row, v)
		}
		if !empty {
			raw = append(raw, row)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	headerRow := raw[0]
	dataRows := raw[1:]

	var headers []string
	var keep []int
	for i, h := range headerRow {
		labeled := h != "" && !unnamedHeaderPattern.MatchString(h)
		if labeled {
			headers = append(headers, h)
			keep = append(keep, i)
			continue
		}
		if columnHasData(dataRows, i) {
			headers = append(headers, fmt.Sprintf("Column %d", i+1))
			keep = append(keep, i)
		}
	}
	if len(headers) == 0 {
		return nil, nil
	}

	rows := make([][]string, 0, len(dataRows))
	for _, row := range dataRows {
		projected := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				projected[j] = row[i]
			}
		}
		rows = append(rows, projected)
	}

	return headers, rows
}

func columnHasData(rows [][]string, col int) bool {
	for _, row := range rows {
		if col < len(row) && row[col] != "" {
			return true
		}
	}
	return false
}

// markdownTable emits a header row, a separator, and one line per data row.
func markdownTable(headers []string, rows [][]string) string {
	var b strings.Builder

	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")

	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatCellValue stringifies one cell for markdown output. Percent formats
// render as value*100 with one decimal; currency formats render with the
// symbol taken from the format code and thousands separators. Pipes are
// escaped and newlines collapse to a single space so a cell never breaks
// table geometry.
func formatCellValue(cell models.Cell) string {
	s := cell.Display
	if s == "" {
		s = cell.Raw
	}

	if n, ok := cell.Number(); ok && cell.NumberFormat != "" {
		if strings.Contains(cell.NumberFormat, "%") {
			s = strconv.FormatFloat(n*100, 'f', 1, 64) + "%"
		} else if sym := currencySymbol(cell.NumberFormat); sym != "" {
			s = sym + groupThousands(n)
		}
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return s
}

// currencySymbol returns the currency symbol of a number format code, or ""
// when the format is not a currency format.
func currencySymbol(format string) string {
	for _, sym := range []string{"$", "€", "£", "¥"} {
		if strings.Contains(format, sym) {
			return sym
		}
	}
	return ""
}

// groupThousands formats a float with zero decimals and comma separators.
func groupThousands(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', 0, 64)

	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		s = s + "," + strings.Join(parts, ",")
	}

	if neg {
		return "-" + s
	}
	return s
}
