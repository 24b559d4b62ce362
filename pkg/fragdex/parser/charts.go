package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// chartKindMap maps OOXML plot element tags to chart kinds. Tags outside
// this map become ChartKindUnsupported with the tag preserved.
var chartKindMap = map[string]models.ChartKind{
	"pieChart":      models.ChartKindPie,
	"pie3DChart":    models.ChartKindPie,
	"ofPieChart":    models.ChartKindPie,
	"doughnutChart": models.ChartKindDoughnut,
	"barChart":      models.ChartKindBar,
	"bar3DChart":    models.ChartKindBar,
	"lineChart":     models.ChartKindLine,
	"line3DChart":   models.ChartKindLine,
	"areaChart":     models.ChartKindArea,
	"area3DChart":   models.ChartKindArea,
	"radarChart":    models.ChartKindRadar,
	"scatterChart":  models.ChartKindScatter,
	"bubbleChart":   models.ChartKindBubble,
}

// seriesRef is one data reference of a series: the formula from c:f plus
// any cached point values the writer stored next to it.
type seriesRef struct {
	formula string
	cached  []string
}

// rawSeries holds the unresolved references of one c:ser element.
type rawSeries struct {
	name    string
	nameRef seriesRef
	cat     seriesRef
	val     seriesRef
	xVal    seriesRef
	yVal    seriesRef
	bubble  seriesRef
}

// RawChart is a chart part before its references are resolved against the
// host sheet.
type RawChart struct {
	name   string
	title  string
	kind   models.ChartKind
	rawTag string
	series []rawSeries
}

// ExtractCharts reads every chart part of the workbook container and
// returns unresolved charts keyed by sheet name.
func ExtractCharts(xlsxPath string) (map[string][]RawChart, error) {
	r, err := zip.OpenReader(xlsxPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	result := make(map[string][]RawChart)

	sheetDrawings, err := getSheetDrawingMap(&r.Reader)
	if err != nil {
		return result, nil
	}

	for sheetName, drawingPath := range sheetDrawings {
		for _, ci := range chartPartsFromDrawing(&r.Reader, drawingPath) {
			chartXML, err := readZipFile(&r.Reader, ci.chartPath)
			if err != nil || chartXML == nil {
				continue
			}
			if chart := parseChartXML(chartXML, ci.name); chart != nil {
				result[sheetName] = append(result[sheetName], *chart)
			}
		}
	}

	return result, nil
}

// chartPart is a chart reference found in a drawing part.
type chartPart struct {
	name      string
	chartPath string
}

// chartPartsFromDrawing resolves the chart parts referenced by one drawing.
func chartPartsFromDrawing(r *zip.Reader, drawingPath string) []chartPart {
	drawingXML, err := readZipFile(r, drawingPath)
	if err != nil || drawingXML == nil {
		return nil
	}

	refs := parseDrawingChartRefs(drawingXML)
	if len(refs) == 0 {
		return nil
	}

	relsXML, err := readZipFile(r, drawingRelsPath(drawingPath))
	if err != nil || relsXML == nil {
		return nil
	}
	chartTargets := parseRelationships(relsXML, "chart")

	var result []chartPart
	for _, ref := range refs {
		if target, ok := chartTargets[ref.rID]; ok {
			result = append(result, chartPart{
				name:      ref.name,
				chartPath: resolveRelativePath(target, "xl/drawings"),
			})
		}
	}

	return result
}

// chartRef is a graphic frame's chart relationship within a drawing.
type chartRef struct {
	rID  string
	name string
}

// parseDrawingChartRefs finds chart references inside anchor elements.
func parseDrawingChartRefs(data []byte) []chartRef {
	var result []chartRef
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok {
			switch se.Name.Local {
			case "twoCellAnchor", "oneCellAnchor", "absoluteAnchor":
				if ref := parseAnchorForChart(decoder); ref.rID != "" {
					result = append(result, ref)
				}
			}
		}
	}

	return result
}

// parseAnchorForChart walks one anchor looking for a graphicFrame that
// references a chart part.
func parseAnchorForChart(decoder *xml.Decoder) chartRef {
	var ref chartRef
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "cNvPr":
				for _, attr := range t.Attr {
					if attr.Name.Local == "name" && ref.name == "" {
						ref.name = attr.Value
					}
				}
			case "chart":
				for _, attr := range t.Attr {
					if attr.Name.Local == "id" {
						ref.rID = attr.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	return ref
}

// parseChartXML parses one chart part.
func parseChartXML(data []byte, name string) *RawChart {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	chart := &RawChart{name: name, kind: models.ChartKindUnsupported}

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "chart" {
			parseChartElement(decoder, chart)
		}
	}

	return chart
}

// parseChartElement parses the c:chart element.
func parseChartElement(decoder *xml.Decoder, chart *RawChart) {
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "title":
				chart.title = parseChartTitle(decoder)
				depth--
			case "plotArea":
				parsePlotArea(decoder, chart)
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
}

// parseChartTitle parses a title element down to its first text run.
func parseChartTitle(decoder *xml.Decoder) string {
	var title string
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				if txt, err := readElementText(decoder); err == nil && title == "" {
					title = strings.TrimSpace(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return title
}

// parsePlotArea identifies the plot element and collects its series. The
// first recognized plot element decides the chart kind.
func parsePlotArea(decoder *xml.Decoder, chart *RawChart) {
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if kind, ok := chartKindMap[t.Name.Local]; ok {
				if chart.kind == models.ChartKindUnsupported {
					chart.kind = kind
					chart.rawTag = ""
				}
				chart.series = append(chart.series, parsePlotSeries(decoder)...)
				depth--
			} else if strings.HasSuffix(t.Name.Local, "Chart") {
				if chart.kind == models.ChartKindUnsupported && chart.rawTag == "" {
					chart.rawTag = t.Name.Local
				}
				skipElement(decoder)
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
}

// parsePlotSeries collects every c:ser under a plot element.
func parsePlotSeries(decoder *xml.Decoder) []rawSeries {
	var series []rawSeries
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "ser" {
				series = append(series, parseSingleSeries(decoder))
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return series
}

// parseSingleSeries parses one c:ser element.
func parseSingleSeries(decoder *xml.Decoder) rawSeries {
	var s rawSeries
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tx":
				s.name, s.nameRef = parseSeriesName(decoder)
				depth--
			case "cat":
				s.cat = parseSeriesRef(decoder)
				depth--
			case "val":
				s.val = parseSeriesRef(decoder)
				depth--
			case "xVal":
				s.xVal = parseSeriesRef(decoder)
				depth--
			case "yVal":
				s.yVal = parseSeriesRef(decoder)
				depth--
			case "bubbleSize":
				s.bubble = parseSeriesRef(decoder)
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return s
}

// parseSeriesName parses the tx element: a literal name or a reference.
func parseSeriesName(decoder *xml.Decoder) (string, seriesRef) {
	var name string
	var ref seriesRef
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "f":
				if txt, err := readElementText(decoder); err == nil {
					ref.formula = strings.TrimSpace(txt)
				}
				depth--
			case "v":
				if txt, err := readElementText(decoder); err == nil && name == "" {
					name = strings.TrimSpace(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return name, ref
}

// parseSeriesRef parses a cat/val/xVal/yVal/bubbleSize element: the c:f
// formula plus any numCache/strCache point values.
func parseSeriesRef(decoder *xml.Decoder) seriesRef {
	var ref seriesRef
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "f":
				if txt, err := readElementText(decoder); err == nil {
					ref.formula = strings.TrimSpace(txt)
				}
				depth--
			case "pt":
				if v := parseCachedPoint(decoder); v != "" {
					ref.cached = append(ref.cached, v)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return ref
}

// parseCachedPoint reads the v value of one cached pt element.
func parseCachedPoint(decoder *xml.Decoder) string {
	var value string
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "v" {
				if txt, err := readElementText(decoder); err == nil {
					value = strings.TrimSpace(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return value
}

// Resolve turns the raw chart into a models.Chart by resolving every series
// reference against the host sheet. Cached points win over formula ranges;
// a reference with neither resolves to an empty list.
func (rc RawChart) Resolve(sheet *models.Sheet) models.Chart {
	chart := models.Chart{
		Name:   rc.name,
		Kind:   rc.kind,
		RawTag: rc.rawTag,
		Title:  rc.title,
	}

	for i, s := range rc.series {
		rs := models.ChartSeries{Name: s.name}
		if rs.Name == "" {
			if vals := resolveRef(s.nameRef, sheet); len(vals) > 0 {
				rs.Name = vals[0]
			}
		}
		if rs.Name == "" {
			rs.Name = fmt.Sprintf("Series %d", i+1)
		}

		switch rc.kind {
		case models.ChartKindScatter, models.ChartKindBubble:
			rs.XValues = resolveRef(s.xVal, sheet)
			rs.YValues = resolveRef(s.yVal, sheet)
			rs.Sizes = resolveRef(s.bubble, sheet)
		default:
			rs.Values = resolveRef(s.val, sheet)
			rs.Categories = resolveRef(s.cat, sheet)
		}

		chart.Series = append(chart.Series, rs)
	}

	return chart
}

// resolveRef applies the resolution priority: cached points verbatim when
// present, else the formula range read from the sheet grid, else empty.
func resolveRef(ref seriesRef, sheet *models.Sheet) []string {
	if len(ref.cached) > 0 {
		return ref.cached
	}
	if ref.formula != "" && sheet != nil {
		return valuesFromRange(ref.formula, sheet)
	}
	return nil
}

// valuesFromRange reads the non-blank cells of a range reference like
// "Sheet1!$B$2:$B$9" from the sheet grid, in row-major order.
func valuesFromRange(formula string, sheet *models.Sheet) []string {
	ref := formula
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(ref, "$", "")

	parts := strings.SplitN(ref, ":", 2)
	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return nil
	}
	endCol, endRow := startCol, startRow
	if len(parts) == 2 {
		c, r, err := excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return nil
		}
		endCol, endRow = c, r
	}
	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	var values []string
	for r := startRow; r <= endRow; r++ {
		for c := startCol; c <= endCol; c++ {
			cell := sheet.Cell(r, c)
			if cell.IsBlank() {
				continue
			}
			values = append(values, formatCellValue(cell))
		}
	}

	return values
}
