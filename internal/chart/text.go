package chart

import "strings"

// Text chart layout.
const (
	TextWidth = 40
	TextBlock = "█"
)

// RenderText draws one line per bar: the padded name, the bar, and the value.
func RenderText(bars []Bar) string {
	widths := Scale(bars, TextWidth)
	nameWidth := labelWidth(bars)

	lines := make([]string, 0, len(bars))
	for i, b := range bars {
		var sb strings.Builder

		sb.WriteString(padLabel(b.Name, nameWidth))
		sb.WriteString(" | ")
		sb.WriteString(strings.Repeat(TextBlock, widths[i]))
		sb.WriteString(" ")
		sb.WriteString(b.Value.String())

		lines = append(lines, sb.String())
	}

	return joinLines(lines)
}
