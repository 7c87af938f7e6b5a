package crawler

import (
	"errors"
	"testing"
	"time"

	"azsales/internal/models"
)

const inlinePage = `<html><head>
<script>
var data = {"buData":[{"业态":"Retail","销售":"100.5","月度累计销售金额":"2,000","年度累计销售金额":30000,"销售发生时间":1717200000000}],
"shopData":[{"门店名称":"Store A","门店":"S001","record_id":"R1","销售":"50","月度累计销售":"800","年度累计销售金额":"9000"}]};
</script>
</head><body>
<div>集团合计销售【2024年06月01日】</div>
<div>（万元）</div>
<div>1,234.5</div>
<div>本月集团合计销售</div>
<div>12,345.6</div>
<div>本年集团合计销售</div>
<div>98,765.4</div>
</body></html>`

const markupPage = `<html><body>
<p>集团合计销售【2024年06月01日】</p><p>1234.5</p>
<p>本月集团合计销售</p><p>12345.6</p>
<p>本年集团合计销售</p><p>98765.4</p>
<h3>各业态销售【2024年06月01日】</h3>
<p>Retail 100.5万元</p>
<p>Dine-in: 80</p>
<h3>本月各业态销售</h3>
<p>Retail</p>
<p>2000</p>
<h3>各门店销售【2024年06月01日】</h3>
<p>Store A 50</p>
</body></html>`

const groupOnlyBody = `<div>集团合计销售【2024年06月01日】</div><div>1</div>
<div>本月集团合计销售</div><div>2</div>
<div>本年集团合计销售</div><div>3</div>`

var fetchTime = time.Date(2024, 6, 2, 9, 30, 0, 0, models.Shanghai)

func TestParser_Parse_InlineData(t *testing.T) {
	payload, err := NewParser().Parse(inlinePage, fetchTime)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if payload.Source != models.SourceInline {
		t.Errorf("Expected inline source, got %s", payload.Source)
	}

	if got := models.FormatDate(payload.ReportDate); got != "2024-06-01" {
		t.Errorf("Expected report date 2024-06-01, got %s", got)
	}

	wantGroup := []string{"1,234.5", "12,345.6", "98,765.4"}
	if len(payload.Group) != len(wantGroup) {
		t.Fatalf("Expected %d group figures, got %d", len(wantGroup), len(payload.Group))
	}

	midnight := time.Date(2024, 6, 1, 0, 0, 0, 0, models.Shanghai).UnixMilli()

	for i, fig := range payload.Group {
		if fig.Period != models.Periods[i] || fig.Sales != wantGroup[i] {
			t.Errorf("Group[%d] = %s/%s, want %s/%s", i, fig.Period, fig.Sales, models.Periods[i], wantGroup[i])
		}

		if fig.OccurredAtMs == nil || *fig.OccurredAtMs != midnight {
			t.Errorf("Group[%d] should occur at report midnight", i)
		}
	}

	wantBT := []string{"100.5", "2,000", "30000"}
	if len(payload.BusinessTypes) != len(wantBT) {
		t.Fatalf("Expected %d business type figures, got %d", len(wantBT), len(payload.BusinessTypes))
	}

	for i, fig := range payload.BusinessTypes {
		if fig.Name != "Retail" || fig.Sales != wantBT[i] || fig.Period != models.Periods[i] {
			t.Errorf("BusinessTypes[%d] = %+v", i, fig)
		}

		if fig.OccurredAtMs == nil || *fig.OccurredAtMs != 1717200000000 {
			t.Errorf("BusinessTypes[%d] should keep published timestamp", i)
		}
	}

	wantStore := []string{"50", "800", "9000"}
	if len(payload.Stores) != len(wantStore) {
		t.Fatalf("Expected %d store figures, got %d", len(wantStore), len(payload.Stores))
	}

	for i, fig := range payload.Stores {
		if fig.Name != "Store A" || fig.StoreCode != "S001" || fig.RecordID != "R1" {
			t.Errorf("Stores[%d] identity = %+v", i, fig)
		}

		if fig.Sales != wantStore[i] {
			t.Errorf("Stores[%d].Sales = %s, want %s", i, fig.Sales, wantStore[i])
		}

		if fig.OccurredAtMs == nil || *fig.OccurredAtMs != midnight {
			t.Errorf("Stores[%d] without timestamp should fall back to report midnight", i)
		}
	}
}

func TestParser_Parse_MarkupFallback(t *testing.T) {
	payload, err := NewParser().Parse(markupPage, fetchTime)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if payload.Source != models.SourceMarkup {
		t.Errorf("Expected markup source, got %s", payload.Source)
	}

	want := []models.BusinessTypeFigure{
		{Period: models.PeriodDaily, Name: "Retail", Sales: "100.5"},
		{Period: models.PeriodDaily, Name: "Dine-in", Sales: "80"},
		{Period: models.PeriodMonthly, Name: "Retail", Sales: "2000"},
	}

	if len(payload.BusinessTypes) != len(want) {
		t.Fatalf("Expected %d business type rows, got %+v", len(want), payload.BusinessTypes)
	}

	for i, w := range want {
		got := payload.BusinessTypes[i]
		if got.Period != w.Period || got.Name != w.Name || got.Sales != w.Sales {
			t.Errorf("BusinessTypes[%d] = %+v, want %+v", i, got, w)
		}
	}

	if len(payload.Stores) != 1 {
		t.Fatalf("Expected 1 store row, got %d", len(payload.Stores))
	}

	if s := payload.Stores[0]; s.Name != "Store A" || s.Sales != "50" || s.StoreCode != "" || s.RecordID != "" {
		t.Errorf("Unexpected store row %+v", s)
	}
}

func TestParser_Parse_ReportDateFallback(t *testing.T) {
	page := `<div>集团合计销售</div><div>1</div>
<div>本月集团合计销售</div><div>2</div>
<div>本年集团合计销售</div><div>3</div>`

	// Without a dated label the daily group label cannot be found either.
	_, err := NewParser().Parse(page, fetchTime)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) || !errors.Is(err, ErrLabelNotFound) {
		t.Fatalf("Expected ParseError wrapping ErrLabelNotFound, got %v", err)
	}

	date, err := NewParser().parseReportDate([]string{"no label here"}, fetchTime)
	if err != nil {
		t.Fatalf("parseReportDate failed: %v", err)
	}

	if got := models.FormatDate(date); got != "2024-06-01" {
		t.Errorf("Expected day before fetch, got %s", got)
	}
}

func TestParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		wantErr error
		section string
	}{
		{"empty page", "   ", ErrEmptyPage, "page"},
		{
			"label without number",
			`<div>集团合计销售【2024年06月01日】</div><div>n/a</div>`,
			ErrNumberNotFound, "group_daily",
		},
		{
			"missing monthly label",
			`<div>集团合计销售【2024年06月01日】</div><div>1</div>`,
			ErrLabelNotFound, "group_monthly",
		},
		{
			"broken inline data",
			`<script>var data = {"buData": [oops]};</script>` + groupOnlyBody,
			ErrInvalidInlineData, "inline_data",
		},
		{
			"bad timestamp",
			`<script>var data = {"buData":[{"业态":"Retail","销售":"1","销售发生时间":"yesterday"}]};</script>` + groupOnlyBody,
			ErrInvalidTimestamp, "buData[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse(tt.page, fetchTime)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}

			if parseErr.Section != tt.section {
				t.Errorf("Section = %s, want %s", parseErr.Section, tt.section)
			}
		})
	}
}

func TestParser_Parse_InvalidCalendarDate(t *testing.T) {
	page := `<div>集团合计销售【2024年02月30日】</div><div>1</div>`

	_, err := NewParser().Parse(page, fetchTime)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Section != "report_date" {
		t.Fatalf("Expected report_date ParseError, got %v", err)
	}
}

func TestParser_Parse_TrailingCommas(t *testing.T) {
	page := `<script>var data = {"buData":[{"业态":"Retail","销售":"1",},],};</script>` + groupOnlyBody

	payload, err := NewParser().Parse(page, fetchTime)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(payload.BusinessTypes) != 1 || payload.BusinessTypes[0].Sales != "1" {
		t.Errorf("Expected one business type figure, got %+v", payload.BusinessTypes)
	}
}

func TestParser_Parse_AbsentPeriodsAreSkipped(t *testing.T) {
	page := `<script>var data = {"buData":[{"name":"Retail","月度累计销售金额":"5"},{"销售":"9"}],"shopData":[]};</script>` +
		groupOnlyBody

	payload, err := NewParser().Parse(page, fetchTime)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(payload.BusinessTypes) != 1 {
		t.Fatalf("Expected only the monthly figure of the named item, got %+v", payload.BusinessTypes)
	}

	if fig := payload.BusinessTypes[0]; fig.Period != models.PeriodMonthly || fig.Name != "Retail" {
		t.Errorf("Unexpected figure %+v", fig)
	}

	if payload.Len() != 4 {
		t.Errorf("Expected 4 figures in total, got %d", payload.Len())
	}
}

func TestParser_TextLines_SkipsScripts(t *testing.T) {
	lines, err := NewParser().TextLines(`<p>  a　 b </p><script>var x = 1;</script><style>p{}</style><p>c</p>`)
	if err != nil {
		t.Fatalf("TextLines failed: %v", err)
	}

	if len(lines) != 2 || lines[0] != "a b" || lines[1] != "c" {
		t.Errorf("Unexpected lines %q", lines)
	}
}

func TestParser_ParseBlockRows(t *testing.T) {
	rows := NewParser().parseBlockRows([]string{
		"Store A: 1,200.5万元",
		"Store B",
		"300",
		"orphan",
		"Store C － note",
		"超市 -35.2",
		"Dine-in: 80",
		"Store D - 50",
		"Store E: -1,000万元",
	})

	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows, got %+v", rows)
	}

	signed := []markupRow{
		{name: "超市", sales: "-35.2"},
		{name: "Dine-in", sales: "80"},
		{name: "Store D", sales: "50"},
		{name: "Store E", sales: "-1,000"},
	}
	for i, want := range signed {
		if rows[i+2] != want {
			t.Errorf("row %d = %+v, want %+v", i+2, rows[i+2], want)
		}
	}

	if rows[0].name != "Store A" || rows[0].sales != "1,200.5" {
		t.Errorf("Unexpected first row %+v", rows[0])
	}

	if rows[1].name != "Store B" || rows[1].sales != "300" {
		t.Errorf("Unexpected second row %+v", rows[1])
	}
}
