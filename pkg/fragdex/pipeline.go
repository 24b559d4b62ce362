package fragdex

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
	"github.com/fragdex/fragdex/pkg/fragdex/parser"
)

// Parser turns workbook files into normalized text fragments.
type Parser struct {
	opts Options
	log  *zap.Logger
}

// NewParser creates a Parser with the given options.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts, log: opts.logger()}
}

// Parse extracts every fragment of one workbook. The file is opened and
// hashed exactly once; every returned fragment carries the same file hash.
// A workbook that cannot be opened or hashed returns a DocumentLoadError
// and no fragments. Failures inside a single sheet or component are logged
// and absorbed so the rest of the workbook still contributes fragments.
func (p *Parser) Parse(path string) ([]models.Fragment, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &DocumentLoadError{Path: path, Err: ErrFileNotFound}
	}

	hash, err := ComputeFileHash(path)
	if err != nil {
		return nil, &DocumentLoadError{Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DocumentLoadError{Path: path, Err: err}
	}
	defer f.Close()

	charts, err := parser.ExtractCharts(path)
	if err != nil {
		p.log.Warn("chart extraction failed",
			zap.String("file_path", path), zap.Error(err))
	}

	drawings, err := parser.ExtractDrawings(path)
	if err != nil {
		p.log.Warn("drawing extraction failed",
			zap.String("file_path", path), zap.Error(err))
	}

	var fragments []models.Fragment
	for idx, sheetName := range f.GetSheetList() {
		sheetNo := idx + 1
		frags := p.parseSheetSafe(f, path, hash, sheetName, sheetNo,
			charts[sheetName], drawings[sheetName])
		fragments = append(fragments, frags...)
	}

	if frag := p.macroNotice(path, hash); frag != nil {
		fragments = append(fragments, *frag)
	}

	return fragments, nil
}

// parseSheetSafe guards one sheet's processing. A panic on a malformed
// sheet costs that sheet's fragments only; the rest of the workbook still
// parses.
func (p *Parser) parseSheetSafe(f *excelize.File, path, hash, sheetName string, sheetNo int,
	charts []parser.RawChart, drawing parser.SheetDrawing) (fragments []models.Fragment) {

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("sheet processing panicked",
				zap.String("file_path", path),
				zap.String("sheet_name", sheetName),
				zap.Error(NewSheetError(sheetName, "sheet", fmt.Errorf("panic: %v", r))))
			fragments = nil
		}
	}()

	return p.parseSheet(f, path, hash, sheetName, sheetNo, charts, drawing)
}

// parseSheet produces the fragments of one sheet: region tables, named
// tables, charts, and auxiliary drawing content. Sheets that yield nothing
// contribute no fragments.
func (p *Parser) parseSheet(f *excelize.File, path, hash, sheetName string, sheetNo int,
	charts []parser.RawChart, drawing parser.SheetDrawing) []models.Fragment {

	meta := func(t models.FragmentType, extra map[string]any) models.Metadata {
		return models.Metadata{
			FilePath:    path,
			SheetName:   sheetName,
			SheetNumber: sheetNo,
			Type:        t,
			FileHash:    hash,
			Extra:       extra,
		}
	}

	sheet, err := parser.ReadSheet(f, sheetName, sheetNo)
	if err != nil {
		p.log.Warn("sheet read failed",
			zap.String("file_path", path),
			zap.String("sheet_name", sheetName),
			zap.Error(NewSheetError(sheetName, "cells", err)))
		// Charts may still resolve from cached points.
		sheet = &models.Sheet{Name: sheetName, Index: sheetNo}
	}

	var fragments []models.Fragment

	if bounds, ok := sheet.UsedRange(); ok {
		for i, region := range parser.DetectRegions(sheet, bounds) {
			content := parser.RenderTable(sheet, region)
			if content == "" {
				continue
			}
			extra := regionExtra(region)
			extra["table_index"] = i + 1
			fragments = append(fragments, models.Fragment{
				Content:  content,
				Metadata: meta(models.FragmentFullTable, extra),
			})

			chunks := parser.TableChunks(sheet, region)
			for j, chunk := range chunks {
				extra := regionExtra(region)
				extra["table_index"] = i + 1
				extra["chunk_index"] = j + 1
				extra["chunk_count"] = len(chunks)
				fragments = append(fragments, models.Fragment{
					Content:  chunk,
					Metadata: meta(models.FragmentTableChunk, extra),
				})
			}
		}
	}

	fragments = append(fragments, p.namedTableFragments(f, sheet, meta)...)

	for _, raw := range charts {
		chart := raw.Resolve(sheet)
		content := parser.RenderChart(chart)
		if content == "" {
			continue
		}
		extra := map[string]any{"chart_kind": string(chart.Kind)}
		if chart.Name != "" {
			extra["chart_name"] = chart.Name
		}
		fragments = append(fragments, models.Fragment{
			Content:  content,
			Metadata: meta(models.FragmentChart, extra),
		})
	}

	if content := p.auxiliaryContent(drawing); content != "" {
		fragments = append(fragments, models.Fragment{
			Content:  content,
			Metadata: meta(models.FragmentImage, nil),
		})
	}

	return fragments
}

// namedTableFragments renders the formally defined Excel tables of a sheet.
func (p *Parser) namedTableFragments(f *excelize.File, sheet *models.Sheet,
	meta func(models.FragmentType, map[string]any) models.Metadata) []models.Fragment {

	tables, err := f.GetTables(sheet.Name)
	if err != nil {
		p.log.Warn("named table listing failed",
			zap.String("sheet_name", sheet.Name),
			zap.Error(NewSheetError(sheet.Name, "tables", err)))
		return nil
	}

	var fragments []models.Fragment
	for _, tbl := range tables {
		region, ok := regionFromRange(tbl.Range)
		if !ok {
			continue
		}
		content := parser.RenderTable(sheet, region)
		if content == "" {
			continue
		}
		extra := regionExtra(region)
		extra["table_name"] = tbl.Name
		extra["table_range"] = tbl.Range
		fragments = append(fragments, models.Fragment{
			Content:  fmt.Sprintf("### Table: %s\n\n%s", tbl.Name, content),
			Metadata: meta(models.FragmentNamedTable, extra),
		})
	}

	return fragments
}

// auxiliaryContent renders the drawing content of a sheet: a table of
// embedded images above the area threshold, then any shape text.
func (p *Parser) auxiliaryContent(drawing parser.SheetDrawing) string {
	minArea := p.opts.minImageArea()

	var images []parser.ImageInfo
	for _, img := range drawing.Images {
		if img.Width*img.Height < minArea {
			continue
		}
		images = append(images, img)
	}

	texts := drawing.TextBoxes
	if !p.opts.includeShapeText() {
		texts = nil
	}

	if len(images) == 0 && len(texts) == 0 {
		return ""
	}

	var b strings.Builder
	if len(images) > 0 {
		b.WriteString("### Embedded images\n\n")
		b.WriteString("| # | Name | Format | Dimensions |\n| --- | --- | --- | --- |\n")
		for i, img := range images {
			name := img.Name
			if name == "" {
				name = fmt.Sprintf("Image %d", i+1)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %dx%d |\n",
				i+1, name, img.Format, img.Width, img.Height)
		}
	}
	if len(texts) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### Shape text\n\n")
		for _, t := range texts {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(t, "\n", " "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// macroNotice emits at most one workbook-level macro fragment. The notice
// names the module streams without decoding any macro code.
func (p *Parser) macroNotice(path, hash string) *models.Fragment {
	hasMacros, modules, err := parser.MacroModules(path)
	if err != nil {
		p.log.Warn("macro detection failed",
			zap.String("file_path", path), zap.Error(err))
		return nil
	}
	if !hasMacros {
		return nil
	}

	content := "This workbook contains VBA macros. Macro code was not extracted."
	if len(modules) > 0 {
		content = fmt.Sprintf(
			"This workbook contains VBA macros (modules: %s). Macro code was not extracted.",
			strings.Join(modules, ", "))
	}

	return &models.Fragment{
		Content: content,
		Metadata: models.Metadata{
			FilePath:    path,
			SheetName:   "(workbook)",
			SheetNumber: 0,
			Type:        models.FragmentMacroNotice,
			FileHash:    hash,
		},
	}
}

func regionExtra(region models.Region) map[string]any {
	return map[string]any{
		"min_row": region.MinRow,
		"max_row": region.MaxRow,
		"min_col": region.MinCol,
		"max_col": region.MaxCol,
	}
}

// regionFromRange parses an A1-style range like "A1:D5" into a Region.
func regionFromRange(rangeRef string) (models.Region, bool) {
	ref := rangeRef
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(ref, "$", "")

	parts := strings.SplitN(ref, ":", 2)
	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return models.Region{}, false
	}
	endCol, endRow := startCol, startRow
	if len(parts) == 2 {
		endCol, endRow, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return models.Region{}, false
		}
	}

	region := models.Region{
		MinRow: startRow, MaxRow: endRow,
		MinCol: startCol, MaxCol: endCol,
	}
	if region.MaxRow < region.MinRow {
		region.MinRow, region.MaxRow = region.MaxRow, region.MinRow
	}
	if region.MaxCol < region.MinCol {
		region.MinCol, region.MaxCol = region.MaxCol, region.MinCol
	}
	return region, true
}
