package chart

import (
	"strings"
	"testing"

	"azsales/internal/models"

	"github.com/shopspring/decimal"
)

func bar(name, value string) Bar {
	return Bar{Name: name, Value: decimal.RequireFromString(value)}
}

func record(name, value string) models.SalesRecord {
	return models.SalesRecord{EntityName: name, SalesWan: decimal.RequireFromString(value)}
}

func TestTop_OrdersByValueThenName(t *testing.T) {
	records := []models.SalesRecord{
		record("Store C", "10"),
		record("Store B", "30"),
		record("Store A", "10"),
		record("Store D", "5"),
	}

	got := Top(records, 3)

	want := []string{"Store B", "Store A", "Store C"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d bars, got %d", len(want), len(got))
	}

	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Top[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestTop_LimitsToN(t *testing.T) {
	var records []models.SalesRecord
	for i := 0; i < 15; i++ {
		records = append(records, record(string(rune('A'+i)), "1"))
	}

	if got := Top(records, TopN); len(got) != TopN {
		t.Errorf("Expected %d bars, got %d", TopN, len(got))
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name  string
		bars  []Bar
		width int
		want  []int
	}{
		{"single bar spans width", []Bar{bar("A", "150.25")}, 40, []int{40}},
		{"proportional", []Bar{bar("A", "100"), bar("B", "50"), bar("C", "25")}, 40, []int{40, 20, 10}},
		{"rounds to nearest", []Bar{bar("A", "3"), bar("B", "1")}, 40, []int{40, 13}},
		{"all zero", []Bar{bar("A", "0"), bar("B", "0")}, 40, []int{0, 0}},
		{"empty", nil, 40, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scale(tt.bars, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("Scale() returned %d widths, want %d", len(got), len(tt.want))
			}

			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Scale()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	out := RenderText([]Bar{bar("门店一A", "100"), bar("Store B", "50")})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", out)
	}

	if strings.Count(lines[0], TextBlock) != TextWidth {
		t.Errorf("Expected top bar at full width, got %q", lines[0])
	}

	if strings.Count(lines[1], TextBlock) != TextWidth/2 {
		t.Errorf("Expected half-width bar, got %q", lines[1])
	}

	// "门店一A" and "Store B" both occupy 7 display cells.
	if !strings.HasPrefix(lines[0], "门店一A | ") || !strings.HasPrefix(lines[1], "Store B | ") {
		t.Errorf("Labels not aligned: %q", lines)
	}

	if RenderText(nil) != "" {
		t.Error("Expected empty output for no bars")
	}
}

func TestRenderSVG(t *testing.T) {
	bars := []Bar{bar("A&B", "200"), bar("C", "100")}

	out := string(RenderSVG("门店月度累计TOP10 2024-06-01", bars))

	if !strings.HasPrefix(out, "<svg xmlns='http://www.w3.org/2000/svg' width='900' height='158'>") {
		t.Errorf("Unexpected SVG header: %.80s", out)
	}

	if !strings.Contains(out, "width='680' height='24'") || !strings.Contains(out, "width='340' height='24'") {
		t.Errorf("Expected bars of 680 and 340 pixels, got %s", out)
	}

	if !strings.Contains(out, "A&amp;B") {
		t.Error("Expected escaped label")
	}

	if out != string(RenderSVG("门店月度累计TOP10 2024-06-01", bars)) {
		t.Error("RenderSVG is not deterministic")
	}
}

func TestRenderSVG_Empty(t *testing.T) {
	out := string(RenderSVG("", nil))

	if !strings.Contains(out, "height='100'") || strings.Contains(out, "<rect") {
		t.Errorf("Unexpected empty chart %s", out)
	}
}

func TestFileNameAndTitle(t *testing.T) {
	if got := FileName(models.EntityStore, models.PeriodMonthly); got != "store_monthly_top10.svg" {
		t.Errorf("FileName() = %s", got)
	}

	if got := FileName(models.EntityBusinessType, models.PeriodDaily); got != "bu_daily_top10.svg" {
		t.Errorf("FileName() = %s", got)
	}

	if got := Title(models.EntityBusinessType, models.PeriodYearly, "2024-06-01"); got != "业态年度累计TOP10 2024-06-01" {
		t.Errorf("Title() = %s", got)
	}
}
