package models

// Sheet is one worksheet as a dense cell grid.
// Grid is indexed [row-1][col-1]; rows may be shorter than the widest row.
type Sheet struct {
	Name   string        `json:"name"`
	Index  int           `json:"index"` // 1-based position in the workbook
	Grid   [][]Cell      `json:"-"`
	Merged []MergedRange `json:"merged,omitempty"`
}

// Cell returns the cell at 1-based (row, col), or a zero Cell when the
// coordinate lies outside the grid.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 1 || row > len(s.Grid) {
		return Cell{Row: row, Col: col}
	}
	r := s.Grid[row-1]
	if col < 1 || col > len(r) {
		return Cell{Row: row, Col: col}
	}
	return r[col-1]
}

// MaxRow returns the number of grid rows.
func (s *Sheet) MaxRow() int {
	return len(s.Grid)
}

// MaxCol returns the widest row length in the grid.
func (s *Sheet) MaxCol() int {
	max := 0
	for _, r := range s.Grid {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// UsedRange returns the bounding box of non-blank cells after merged-range
// resolution. ok is false when the sheet holds no data.
func (s *Sheet) UsedRange() (Region, bool) {
	reg := Region{MinRow: -1}
	for ri, row := range s.Grid {
		for ci, cell := range row {
			if cell.IsBlank() {
				continue
			}
			r, c := ri+1, ci+1
			if reg.MinRow < 0 {
				reg = Region{MinRow: r, MaxRow: r, MinCol: c, MaxCol: c}
				continue
			}
			if r < reg.MinRow {
				reg.MinRow = r
			}
			if r > reg.MaxRow {
				reg.MaxRow = r
			}
			if c < reg.MinCol {
				reg.MinCol = c
			}
			if c > reg.MaxCol {
				reg.MaxCol = c
			}
		}
	}
	if reg.MinRow < 0 {
		return Region{}, false
	}
	return reg, true
}

// Region is a rectangular block of cells in 1-based inclusive coordinates.
type Region struct {
	MinRow int `json:"min_row"`
	MaxRow int `json:"max_row"`
	MinCol int `json:"min_col"`
	MaxCol int `json:"max_col"`
}

// Rows returns the number of rows covered by the region.
func (r Region) Rows() int {
	return r.MaxRow - r.MinRow + 1
}

// Cols returns the number of columns covered by the region.
func (r Region) Cols() int {
	return r.MaxCol - r.MinCol + 1
}
