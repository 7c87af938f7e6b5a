package chart

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

// SVG layout in pixels.
const (
	SVGWidth        = 900
	SVGBarHeight    = 24
	SVGGap          = 10
	SVGMarginLeft   = 180
	SVGMarginRight  = 40
	SVGMarginTop    = 60
	SVGMarginBottom = 40
	SVGBarArea      = SVGWidth - SVGMarginLeft - SVGMarginRight
	SVGFill         = "#155dfc"

	// svgLabelCells bounds a label to what fits left of the bars at 12px.
	svgLabelCells = 28
)

const svgStyle = "<style>text{font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, " +
	"'Helvetica Neue', Arial; font-size: 12px;} .title{font-size:16px;font-weight:bold}</style>"

// RenderSVG draws a horizontal bar chart. The output depends only on its arguments.
func RenderSVG(title string, bars []Bar) []byte {
	widths := Scale(bars, SVGBarArea)

	chartHeight := 0
	if len(bars) > 0 {
		chartHeight = len(bars)*(SVGBarHeight+SVGGap) - SVGGap
	}

	height := SVGMarginTop + chartHeight + SVGMarginBottom

	var sb strings.Builder

	fmt.Fprintf(&sb, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d'>", SVGWidth, height)
	sb.WriteString(svgStyle)

	if title != "" {
		fmt.Fprintf(&sb, "<text class='title' x='%d' y='30'>%s</text>", SVGMarginLeft, html.EscapeString(title))
	}

	y := SVGMarginTop
	for i, b := range bars {
		label := runewidth.Truncate(b.Name, svgLabelCells, "…")
		baseline := y + SVGBarHeight - 6

		fmt.Fprintf(&sb, "<rect x='%d' y='%d' width='%d' height='%d' fill='%s' />",
			SVGMarginLeft, y, widths[i], SVGBarHeight, SVGFill)
		fmt.Fprintf(&sb, "<text x='%d' y='%d' text-anchor='end'>%s</text>",
			SVGMarginLeft-8, baseline, html.EscapeString(label))
		fmt.Fprintf(&sb, "<text x='%d' y='%d'>%s</text>",
			SVGMarginLeft+widths[i]+6, baseline, b.Value.StringFixed(0))

		y += SVGBarHeight + SVGGap
	}

	sb.WriteString("</svg>\n")

	return []byte(sb.String())
}
