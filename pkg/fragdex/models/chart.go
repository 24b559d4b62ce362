package models

// ChartKind classifies a chart by its plot element.
type ChartKind string

const (
	ChartKindPie         ChartKind = "pie"
	ChartKindDoughnut    ChartKind = "doughnut"
	ChartKindBar         ChartKind = "bar"
	ChartKindLine        ChartKind = "line"
	ChartKindArea        ChartKind = "area"
	ChartKindRadar       ChartKind = "radar"
	ChartKindScatter     ChartKind = "scatter"
	ChartKindBubble      ChartKind = "bubble"
	ChartKindUnsupported ChartKind = "unsupported"
)

// ChartSeries is one data series with references resolved to value lists.
// Categories and Values apply to category charts and pies; XValues, YValues
// and Sizes apply to scatter and bubble charts.
type ChartSeries struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories,omitempty"`
	Values     []string `json:"values,omitempty"`
	XValues    []string `json:"x_values,omitempty"`
	YValues    []string `json:"y_values,omitempty"`
	Sizes      []string `json:"sizes,omitempty"`
}

// Chart is a chart with its series resolved against the host sheet.
// RawTag keeps the OOXML plot element name for unsupported kinds.
type Chart struct {
	Name   string        `json:"name"`
	Kind   ChartKind     `json:"kind"`
	RawTag string        `json:"raw_tag,omitempty"`
	Title  string        `json:"title,omitempty"`
	Series []ChartSeries `json:"series,omitempty"`
}
