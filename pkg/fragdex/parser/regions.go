package parser

import (
	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// DetectRegions splits the bounded area of a sheet into contiguous table
// regions. Rows that are blank across the full column span act as
// separators; every region spans the full column range of the bounds.
// Side-by-side tables separated only by blank columns therefore land in a
// single region.
func DetectRegions(sheet *models.Sheet, bounds models.Region) []models.Region {
	var regions []models.Region
	start := -1

	// One row past the end acts as a sentinel so a trailing region closes.
	for row := bounds.MinRow; row <= bounds.MaxRow+1; row++ {
		blank := row > bounds.MaxRow || rowIsBlank(sheet, row, bounds.MinCol, bounds.MaxCol)
		if blank {
			if start >= 0 {
				regions = append(regions, models.Region{
					MinRow: start,
					MaxRow: row - 1,
					MinCol: bounds.MinCol,
					MaxCol: bounds.MaxCol,
				})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = row
		}
	}

	return regions
}

// rowIsBlank reports whether every cell of the row is blank within the
// column span.
func rowIsBlank(sheet *models.Sheet, row, minCol, maxCol int) bool {
	for col := minCol; col <= maxCol; col++ {
		if !sheet.Cell(row, col).IsBlank() {
			return false
		}
	}
	return true
}
