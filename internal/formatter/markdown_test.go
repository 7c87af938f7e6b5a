package formatter

import (
	"strings"
	"testing"
)

func TestFormatMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "Basic table formatting",
			input: `
| Header 1 | Header 2 |
| --- | --- |
| val 1 | val 2 |
`,
			expected: `
| Header 1 | Header 2 |
| -------- | -------- |
| val 1    | val 2    |
`,
		},
		{
			name: "Fix excessive dashes",
			input: `
| Col A | Col B |
| ---------------------- | ---------------------------------- |
| A | B |
`,
			expected: `
| Col A | Col B |
| ----- | ----- |
| A     | B     |
`,
		},
		{
			name: "Trim spaces in cells",
			input: `
|   Col A   |   Col B   |
| --- | --- |
|   val A   |   val B   |
`,
			expected: `
| Col A | Col B |
| ----- | ----- |
| val A | val B |
`,
		},
		{
			name: "Mixed content",
			input: `
# Title

| H1 | H2 |
| -- | -- |
| v1 | v2 |

Text after table.
`,
			expected: `
# Title

| H1  | H2  |
| --- | --- |
| v1  | v2  |

Text after table.
`,
		},
		{
			name: "Mixed CJK and ASCII",
			input: `
| Date | Note |
| --- | --- |
| 2024-06-01 | 门店：月度累计83万。 |
| 2024-06-02 | Short text |
`,
			// Each CJK character and full-width punctuation mark is two cells wide.
			expected: `
| Date       | Note                 |
| ---------- | -------------------- |
| 2024-06-01 | 门店：月度累计83万。 |
| 2024-06-02 | Short text           |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMarkdown(strings.TrimSpace(tt.input))

			if got != strings.TrimSpace(tt.expected) {
				t.Errorf("FormatMarkdown() = \n%v\nwant \n%v", got, tt.expected)
			}
		})
	}
}

func TestFormatMarkdown_PreservesRightAlignment(t *testing.T) {
	input := "| name | sales_wan |\n| --- | ---: |\n| Store A | 150.25 |\n| B | 5 |"

	want := "| name    | sales_wan |\n| ------- | --------: |\n| Store A |    150.25 |\n| B       |         5 |"

	if got := FormatMarkdown(input); got != want {
		t.Errorf("FormatMarkdown() = \n%s\nwant \n%s", got, want)
	}
}

func TestTable(t *testing.T) {
	got := Table([]string{"rank", "store_name"}, []Align{AlignRight}, [][]string{{"1", "门店|A"}})

	want := "| rank | store_name |\n| ---: | ---------- |\n|    1 | 门店\\|A    |"
	if got != want {
		t.Errorf("Table() = \n%s\nwant \n%s", got, want)
	}
}
