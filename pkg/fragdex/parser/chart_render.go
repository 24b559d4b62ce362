package parser

import (
	"fmt"
	"strings"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// chartRenderer renders one resolved chart as markdown.
type chartRenderer func(models.Chart) string

var chartRenderers = map[models.ChartKind]chartRenderer{
	models.ChartKindPie:      renderPieChart,
	models.ChartKindDoughnut: renderPieChart,
	models.ChartKindBar:      renderCategoryChart,
	models.ChartKindLine:     renderCategoryChart,
	models.ChartKindArea:     renderCategoryChart,
	models.ChartKindRadar:    renderCategoryChart,
	models.ChartKindScatter:  renderPointChart,
	models.ChartKindBubble:   renderPointChart,
}

// RenderChart renders a resolved chart as markdown. Unsupported kinds get a
// one-line notice naming the chart and its plot element so the reader knows
// the chart exists even though its data was not extracted.
func RenderChart(chart models.Chart) string {
	if render, ok := chartRenderers[chart.Kind]; ok {
		return render(chart)
	}

	tag := chart.RawTag
	if tag == "" {
		tag = "unknown"
	}
	return fmt.Sprintf("Chart %q has an unsupported type (%s); its data was not extracted.",
		chartLabel(chart), tag)
}

// chartLabel prefers the chart title, then the drawing name.
func chartLabel(chart models.Chart) string {
	if chart.Title != "" {
		return chart.Title
	}
	if chart.Name != "" {
		return chart.Name
	}
	return "Chart"
}

// renderPieChart renders pie and doughnut charts as a label/value table.
// A pie whose values resolve to nothing gets an explicit notice rather than
// an empty table.
func renderPieChart(chart models.Chart) string {
	var series *models.ChartSeries
	for i := range chart.Series {
		if len(chart.Series[i].Values) > 0 {
			series = &chart.Series[i]
			break
		}
	}

	header := fmt.Sprintf("### Chart: %s (%s)\n\n", chartLabel(chart), chart.Kind)

	if series == nil {
		return header + "Unable to extract data from this chart."
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("| Slice Label | Value |\n| --- | --- |\n")
	for i, v := range series.Values {
		label := fmt.Sprintf("Row %d", i+1)
		if i < len(series.Categories) && series.Categories[i] != "" {
			label = series.Categories[i]
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, v)
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderCategoryChart renders bar, line, area and radar charts as one table
// with a category column and one column per series. The row count is the
// longest of the category list and any series; missing categories are
// synthesized as "Row N".
func renderCategoryChart(chart models.Chart) string {
	var categories []string
	rows := 0
	for _, s := range chart.Series {
		if len(categories) == 0 && len(s.Categories) > 0 {
			categories = s.Categories
		}
		if len(s.Values) > rows {
			rows = len(s.Values)
		}
	}
	if len(categories) > rows {
		rows = len(categories)
	}

	header := fmt.Sprintf("### Chart: %s (%s)\n\n", chartLabel(chart), chart.Kind)
	if rows == 0 {
		return header + "Unable to extract data from this chart."
	}

	var b strings.Builder
	b.WriteString(header)

	b.WriteString("| Category |")
	for _, s := range chart.Series {
		fmt.Fprintf(&b, " %s |", s.Name)
	}
	b.WriteString("\n| --- |")
	for range chart.Series {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for i := 0; i < rows; i++ {
		label := fmt.Sprintf("Row %d", i+1)
		if i < len(categories) && categories[i] != "" {
			label = categories[i]
		}
		fmt.Fprintf(&b, "| %s |", label)
		for _, s := range chart.Series {
			v := ""
			if i < len(s.Values) {
				v = s.Values[i]
			}
			fmt.Fprintf(&b, " %s |", v)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderPointChart renders scatter and bubble charts, one X/Y table per
// series, with a size column when bubble sizes are present.
func renderPointChart(chart models.Chart) string {
	header := fmt.Sprintf("### Chart: %s (%s)\n\n", chartLabel(chart), chart.Kind)

	var b strings.Builder
	b.WriteString(header)
	rendered := false

	for _, s := range chart.Series {
		rows := len(s.YValues)
		if len(s.XValues) > rows {
			rows = len(s.XValues)
		}
		if rows == 0 {
			continue
		}
		rendered = true

		fmt.Fprintf(&b, "Series: %s\n\n", s.Name)
		hasSize := len(s.Sizes) > 0
		if hasSize {
			b.WriteString("| X | Y | Size |\n| --- | --- | --- |\n")
		} else {
			b.WriteString("| X | Y |\n| --- | --- |\n")
		}

		for i := 0; i < rows; i++ {
			x, y, size := "", "", ""
			if i < len(s.XValues) {
				x = s.XValues[i]
			}
			if i < len(s.YValues) {
				y = s.YValues[i]
			}
			if i < len(s.Sizes) {
				size = s.Sizes[i]
			}
			if hasSize {
				fmt.Fprintf(&b, "| %s | %s | %s |\n", x, y, size)
			} else {
				fmt.Fprintf(&b, "| %s | %s |\n", x, y)
			}
		}
		b.WriteString("\n")
	}

	if !rendered {
		return header + "Unable to extract data from this chart."
	}

	return strings.TrimRight(b.String(), "\n")
}
