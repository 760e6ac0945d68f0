// Package report turns backend payloads into display-ready panels and
// renders them as HTML fragments, a full dashboard page, plain text, or SVG.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/signalrefinery/refinery/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 30)
	MarginBottom int    // bottom margin (default: 70)
	MarginLeft   int    // left margin (default: 80)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	BarColor     string // bar fill (default: "#3b82f6")
	FontSize     int    // axis label font size (default: 11)
	MaxLabels    int    // x-axis labels drawn before thinning (default: 12)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  30,
		MarginBottom: 70,
		MarginLeft:   80,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		BarColor:     "#3b82f6",
		FontSize:     11,
		MaxLabels:    12,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Bar Chart (Vertical)
// ════════════════════════════════════════════════════════════════════

// BarChart draws one vertical bar per point, left to right in point order.
// The y axis is labelled in compact dollars.
func BarChart(data ChartData, cfg ChartConfig) string {
	if cfg.Width == 0 {
		title := cfg.Title
		cfg = DefaultChartConfig()
		cfg.Title = title
	}
	if cfg.Title == "" {
		cfg.Title = data.Title
	}
	if data.Empty() {
		return emptySVG(cfg, "No revenue data")
	}

	px, py, pw, ph := cfg.plotArea()
	values := data.Values()
	labels := data.Labels()

	minVal, maxVal := 0.0, 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
		minVal = math.Min(minVal, v)
	}
	valRange := maxVal - minVal
	if valRange < 0.001 {
		valRange = 1
	}
	// 5% headroom above the tallest bar
	maxVal += valRange * 0.05
	valRange = maxVal - minVal

	valueToY := func(v float64) float64 {
		return float64(py+ph) - (v-minVal)/valRange*float64(ph)
	}

	n := len(values)
	slot := float64(pw) / float64(n)
	barW := slot * 0.7
	if barW > 60 {
		barW = 60
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y-axis grid lines and labels
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		v := minVal + valRange*float64(i)/float64(gridLines)
		y := valueToY(v)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, escapeXML(utils.FormatUSDCompact(v))))
	}

	// Zero line for mixed positive/negative
	zeroY := valueToY(0)
	if minVal < 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#999" stroke-width="1"/>`,
			px, zeroY, px+pw, zeroY))
	}

	step := 1
	if cfg.MaxLabels > 0 && n > cfg.MaxLabels {
		step = int(math.Ceil(float64(n) / float64(cfg.MaxLabels)))
	}

	for i, v := range values {
		cx := float64(px) + slot*float64(i) + slot/2
		top, bottom := valueToY(v), zeroY
		if v < 0 {
			top, bottom = zeroY, valueToY(v)
		}
		color := cfg.BarColor
		if v < 0 {
			color = "#ef5350"
		}
		sb.WriteString(fmt.Sprintf(`<rect class="bar" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"><title>%s: %s</title></rect>`,
			cx-barW/2, top, barW, bottom-top, color,
			escapeXML(labels[i]), escapeXML(utils.FormatUSDCompact(v))))

		if i%step == 0 {
			ly := py + ph + 14
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="end" transform="rotate(-35 %.1f %d)">%s</text>`,
				cx, ly, cfg.FontSize, cfg.TextColor, cx, ly, escapeXML(labels[i])))
		}
	}

	// Axes
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
		px, py, px, py+ph, cfg.TextColor))
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
		px, py+ph, px+pw, py+ph, cfg.TextColor))

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
