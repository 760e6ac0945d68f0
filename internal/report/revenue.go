package report

import "github.com/signalrefinery/refinery/pkg/models"

// ChartPoint pairs a category label with its value.
type ChartPoint struct {
	Label string
	Value float64
}

// ChartData is a single-series category chart. Labels and values are only
// ever derived from Points, so they cannot drift apart.
type ChartData struct {
	Title  string
	Series string
	Points []ChartPoint
}

// Labels returns the category axis in point order.
func (c ChartData) Labels() []string {
	out := make([]string, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Label
	}
	return out
}

// Values returns the series values in point order.
func (c ChartData) Values() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Value
	}
	return out
}

// Empty reports whether there is nothing to plot.
func (c ChartData) Empty() bool {
	return len(c.Points) == 0
}

// AdaptRevenue turns a revenue series into chart data. Order is kept as
// delivered; duplicate periods are kept.
func AdaptRevenue(symbol string, form models.FilingType, items []models.RevenueDataItem) ChartData {
	data := ChartData{
		Title:  revenueTitle(symbol, form),
		Series: "Revenue",
		Points: make([]ChartPoint, len(items)),
	}
	for i, item := range items {
		data.Points[i] = ChartPoint{Label: item.PeriodEnd.String(), Value: item.Revenue}
	}
	return data
}

func revenueTitle(symbol string, form models.FilingType) string {
	title := "Revenue"
	if symbol != "" {
		title = symbol + " " + title
	}
	if form != "" {
		title += " (" + string(form) + ")"
	}
	return title
}
