// Package formatter renders the sales report as markdown.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Align is the horizontal alignment of a table column.
type Align int

// Column alignments.
const (
	AlignLeft Align = iota
	AlignRight
)

// Table renders a markdown table with columns padded to equal display width.
// aligns may be shorter than headers; missing entries default to AlignLeft.
func Table(headers []string, aligns []Align, rows [][]string) string {
	separator := make([]string, len(headers))
	for i := range headers {
		separator[i] = "---"
		if i < len(aligns) && aligns[i] == AlignRight {
			separator[i] = "---:"
		}
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	lines = append(lines, "| "+strings.Join(separator, " | ")+" |")

	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(escapeCells(row), " | ")+" |")
	}

	return strings.Join(processTable(lines), "\n")
}

// FormatMarkdown aligns every table found in content.
// A table is a run of lines that start and end with a pipe.
func FormatMarkdown(content string) string {
	lines := strings.Split(content, "\n")

	var formattedLines []string

	var tableBuffer []string

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)

		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			tableBuffer = append(tableBuffer, line)

			continue
		}

		if len(tableBuffer) > 0 {
			formattedLines = append(formattedLines, processTable(tableBuffer)...)
			tableBuffer = nil
		}

		formattedLines = append(formattedLines, line)
	}

	if len(tableBuffer) > 0 {
		formattedLines = append(formattedLines, processTable(tableBuffer)...)
	}

	return strings.Join(formattedLines, "\n")
}

func escapeCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ReplaceAll(cell, "|", `\|`)
	}

	return out
}

// splitRow splits a table row on unescaped pipes.
func splitRow(row string) []string {
	trimmed := strings.TrimSpace(row)
	trimmed = strings.TrimPrefix(trimmed, "|")

	if strings.HasSuffix(trimmed, "|") && !strings.HasSuffix(trimmed, `\|`) {
		trimmed = trimmed[:len(trimmed)-1]
	}

	var (
		cells []string
		cur   strings.Builder
	)

	for i := 0; i < len(trimmed); i++ {
		switch {
		case trimmed[i] == '\\' && i+1 < len(trimmed) && trimmed[i+1] == '|':
			cur.WriteString(`\|`)
			i++
		case trimmed[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(trimmed[i])
		}
	}

	return append(cells, strings.TrimSpace(cur.String()))
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		trim := strings.NewReplacer("-", "", ":", "", " ", "").Replace(cell)
		if trim != "" || !strings.Contains(cell, "-") {
			return false
		}
	}

	return true
}

func processTable(rows []string) []string {
	// A header without a separator is not a table we can align.
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, splitRow(row))
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	separatorRowIdx := -1
	if isSeparatorRow(table[1]) {
		separatorRowIdx = 1
	}

	aligns := make([]Align, colCount)

	if separatorRowIdx >= 0 {
		for i, cell := range table[separatorRowIdx] {
			if strings.HasSuffix(cell, ":") && !strings.HasPrefix(cell, ":") {
				aligns[i] = AlignRight
			}
		}
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			content := ""
			if j < len(row) {
				content = row[j]
			}

			switch {
			case i == separatorRowIdx && aligns[j] == AlignRight:
				sb.WriteString(strings.Repeat("-", colWidths[j]-1) + ":")
			case i == separatorRowIdx:
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			case aligns[j] == AlignRight:
				sb.WriteString(runewidth.FillLeft(content, colWidths[j]))
			default:
				sb.WriteString(runewidth.FillRight(content, colWidths[j]))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
