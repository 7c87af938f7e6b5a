// Package chart ranks sales figures and renders proportional bar charts.
package chart

import (
	"sort"
	"strings"

	"azsales/internal/models"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

// TopN is the number of entries shown in ranking tables and charts.
const TopN = 10

// Bar is one named value in a ranked chart.
type Bar struct {
	Name  string
	Value decimal.Decimal
}

// Top returns the n largest records as bars, by value descending then name ascending.
func Top(records []models.SalesRecord, n int) []Bar {
	bars := make([]Bar, 0, len(records))
	for _, rec := range records {
		bars = append(bars, Bar{Name: rec.EntityName, Value: rec.SalesWan})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if c := bars[i].Value.Cmp(bars[j].Value); c != 0 {
			return c > 0
		}

		return bars[i].Name < bars[j].Name
	})

	if n >= 0 && len(bars) > n {
		bars = bars[:n]
	}

	return bars
}

// Scale maps each value to a bar length in [0, maxWidth].
// The largest value spans maxWidth exactly; a non-positive maximum yields zero lengths.
func Scale(bars []Bar, maxWidth int) []int {
	widths := make([]int, len(bars))

	peak := decimal.Zero
	for _, b := range bars {
		if b.Value.GreaterThan(peak) {
			peak = b.Value
		}
	}

	if !peak.IsPositive() {
		return widths
	}

	w := decimal.NewFromInt(int64(maxWidth))

	for i, b := range bars {
		if !b.Value.IsPositive() {
			continue
		}

		widths[i] = int(b.Value.Mul(w).DivRound(peak, 8).Round(0).IntPart())
	}

	return widths
}

// labelWidth returns the widest display width among the bar names.
func labelWidth(bars []Bar) int {
	width := 0
	for _, b := range bars {
		width = max(width, runewidth.StringWidth(b.Name))
	}

	return width
}

// padLabel right-pads name to width display cells.
func padLabel(name string, width int) string {
	return runewidth.FillRight(name, width)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}
