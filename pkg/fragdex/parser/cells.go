package parser

import (
	"github.com/xuri/excelize/v2"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// builtinNumFmt holds the builtin number format codes that matter for
// rendering. Custom formats come from the workbook's style table; format IDs
// outside this map render through excelize's formatted value.
var builtinNumFmt = map[int]string{
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	5:  "$#,##0_);($#,##0)",
	6:  "$#,##0_);[Red]($#,##0)",
	7:  "$#,##0.00_);($#,##0.00)",
	8:  "$#,##0.00_);[Red]($#,##0.00)",
	9:  "0%",
	10: "0.00%",
	44: `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`,
}

// ReadSheet loads one worksheet into a dense cell grid. Merged ranges are
// resolved at read time: every member cell receives the top-left value.
func ReadSheet(f *excelize.File, sheetName string, index int) (*models.Sheet, error) {
	rawRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	displayRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	sheet := &models.Sheet{
		Name:  sheetName,
		Index: index,
		Grid:  make([][]models.Cell, len(rawRows)),
	}

	for ri, rawRow := range rawRows {
		row := make([]models.Cell, len(rawRow))
		for ci, raw := range rawRow {
			cell := models.Cell{Row: ri + 1, Col: ci + 1, Raw: raw}
			if ri < len(displayRows) && ci < len(displayRows[ri]) {
				cell.Display = displayRows[ri][ci]
			}
			if raw != "" {
				fillCellDetail(f, sheetName, &cell)
			}
			row[ci] = cell
		}
		sheet.Grid[ri] = row
	}

	if err := resolveMergedRanges(f, sheetName, sheet); err != nil {
		return nil, err
	}

	return sheet, nil
}

// fillCellDetail looks up the number format code and formula flag for a
// non-empty cell.
func fillCellDetail(f *excelize.File, sheetName string, cell *models.Cell) {
	cellName, err := excelize.CoordinatesToCellName(cell.Col, cell.Row)
	if err != nil {
		return
	}

	if styleID, err := f.GetCellStyle(sheetName, cellName); err == nil && styleID > 0 {
		if style, err := f.GetStyle(styleID); err == nil && style != nil {
			if style.CustomNumFmt != nil {
				cell.NumberFormat = *style.CustomNumFmt
			} else if code, ok := builtinNumFmt[style.NumFmt]; ok {
				cell.NumberFormat = code
			}
		}
	}

	if formula, err := f.GetCellFormula(sheetName, cellName); err == nil && formula != "" {
		cell.IsFormula = true
	}
}

// resolveMergedRanges overlays the top-left value of each merged range onto
// its member cells, growing the grid when a range extends past stored rows.
func resolveMergedRanges(f *excelize.File, sheetName string, sheet *models.Sheet) error {
	merged, err := f.GetMergeCells(sheetName)
	if err != nil {
		return err
	}

	for _, mc := range merged {
		minCol, minRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		if maxRow < minRow {
			minRow, maxRow = maxRow, minRow
		}
		if maxCol < minCol {
			minCol, maxCol = maxCol, minCol
		}

		growGrid(sheet, maxRow, maxCol)
		topLeft := sheet.Cell(minRow, minCol)

		for r := minRow; r <= maxRow; r++ {
			for c := minCol; c <= maxCol; c++ {
				if r == minRow && c == minCol {
					continue
				}
				target := &sheet.Grid[r-1][c-1]
				if !target.IsBlank() {
					continue
				}
				target.Raw = topLeft.Raw
				target.Display = topLeft.Display
				target.NumberFormat = topLeft.NumberFormat
			}
		}

		sheet.Merged = append(sheet.Merged, models.MergedRange{
			MinRow: minRow, MinCol: minCol, MaxRow: maxRow, MaxCol: maxCol,
		})
	}

	return nil
}

// growGrid ensures the grid covers 1-based (row, col).
func growGrid(sheet *models.Sheet, row, col int) {
	for len(sheet.Grid) < row {
		sheet.Grid = append(sheet.Grid, make([]models.Cell, 0, col))
	}
	for ri := 0; ri < row; ri++ {
		for len(sheet.Grid[ri]) < col {
			sheet.Grid[ri] = append(sheet.Grid[ri], models.Cell{Row: ri + 1, Col: len(sheet.Grid[ri]) + 1})
		}
	}
}
