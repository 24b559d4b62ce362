package models

import (
	"strconv"
	"strings"
)

// Cell is a single resolved cell in a sheet grid.
// Raw holds the stored value before number formatting; Display holds the
// value with the cell's number format applied. Merged-range members carry
// the top-left cell's values after resolution.
type Cell struct {
	Row          int    `json:"row"`
	Col          int    `json:"col"`
	Raw          string `json:"raw"`
	Display      string `json:"display"`
	NumberFormat string `json:"number_format,omitempty"`
	IsFormula    bool   `json:"is_formula,omitempty"`
}

// IsBlank reports whether the cell holds no value.
func (c Cell) IsBlank() bool {
	return strings.TrimSpace(c.Raw) == "" && strings.TrimSpace(c.Display) == ""
}

// Number returns the raw value parsed as a float, if it is numeric.
func (c Cell) Number() (float64, bool) {
	s := strings.TrimSpace(c.Raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MergedRange is a merged cell range in 1-based coordinates.
type MergedRange struct {
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Contains reports whether the 1-based coordinate lies inside the range.
func (m MergedRange) Contains(row, col int) bool {
	return row >= m.MinRow && row <= m.MaxRow && col >= m.MinCol && col <= m.MaxCol
}
