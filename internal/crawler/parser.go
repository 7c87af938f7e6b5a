// Package crawler retrieves the sales dashboard page and extracts its figures.
package crawler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"azsales/internal/models"
	"azsales/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// groupLabelWindow is how many lines after a group label are searched for its number.
const groupLabelWindow = 15

// ErrEmptyPage is returned when the fetched page has no content.
var ErrEmptyPage = errors.New("page is empty")

type groupLabel struct {
	pattern *regexp.Regexp
	period  models.Period
}

type sectionSpec struct {
	pattern    *regexp.Regexp
	key        string
	entityType models.EntityType
	period     models.Period
}

type markupRow struct {
	name  string
	sales string
}

// Parser extracts the three sales groupings from a dashboard page.
type Parser struct {
	inlinePattern      *regexp.Regexp
	inlinePatternLoose *regexp.Regexp
	trailingComma      *regexp.Regexp
	reportDatePattern  *regexp.Regexp
	numberPattern      *regexp.Regexp
	digitPattern       *regexp.Regexp
	rowPattern         *regexp.Regexp
	strings            *utils.StringHelper
	groupLabels        []groupLabel
	sections           []sectionSpec
}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{
		inlinePattern:      regexp.MustCompile(`var\s+data\s*=\s*(\{[\s\S]*?\});`),
		inlinePatternLoose: regexp.MustCompile(`\bdata\s*=\s*(\{[\s\S]*?\});`),
		trailingComma:      regexp.MustCompile(`,\s*([}\]])`),
		reportDatePattern:  regexp.MustCompile(`集团合计销售【(\d{4})年(\d{2})月(\d{2})日】`),
		numberPattern:      regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d+)?`),
		digitPattern:       regexp.MustCompile(`\d`),
		rowPattern: regexp.MustCompile(
			`^([^:：\-\s].*?)\s*(?:[:：]\s*|-\s+)?(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:万元)?$`),
		strings: utils.NewStringHelper(),
		groupLabels: []groupLabel{
			{period: models.PeriodDaily, pattern: regexp.MustCompile(`集团合计销售【\d{4}年\d{2}月\d{2}日】`)},
			{period: models.PeriodMonthly, pattern: regexp.MustCompile(`本月集团合计销售`)},
			{period: models.PeriodYearly, pattern: regexp.MustCompile(`本年集团合计销售`)},
		},
		sections: []sectionSpec{
			{key: "bt_daily", pattern: regexp.MustCompile(`各业态销售【\d{4}年\d{2}月\d{2}日】`),
				entityType: models.EntityBusinessType, period: models.PeriodDaily},
			{key: "bt_month", pattern: regexp.MustCompile(`本月各业态销售`),
				entityType: models.EntityBusinessType, period: models.PeriodMonthly},
			{key: "bt_year", pattern: regexp.MustCompile(`本年各业态销售`),
				entityType: models.EntityBusinessType, period: models.PeriodYearly},
			{key: "store_daily", pattern: regexp.MustCompile(`各门店销售【\d{4}年\d{2}月\d{2}日】`),
				entityType: models.EntityStore, period: models.PeriodDaily},
			{key: "store_month", pattern: regexp.MustCompile(`本月各门店销售`),
				entityType: models.EntityStore, period: models.PeriodMonthly},
			{key: "store_year", pattern: regexp.MustCompile(`本年各门店销售`),
				entityType: models.EntityStore, period: models.PeriodYearly},
		},
	}
}

// Parse extracts a provisional payload from a dashboard page.
// now is only used to derive the report date when the page does not state one.
func (p *Parser) Parse(page string, now time.Time) (*models.Payload, error) {
	if strings.TrimSpace(page) == "" {
		return nil, &ParseError{Section: "page", Err: ErrEmptyPage}
	}

	lines, err := p.TextLines(page)
	if err != nil {
		return nil, &ParseError{Section: "page", Err: err}
	}

	reportDate, err := p.parseReportDate(lines, now)
	if err != nil {
		return nil, &ParseError{Section: "report_date", Err: err}
	}

	midnight := models.MidnightMs(reportDate)
	payload := &models.Payload{ReportDate: reportDate}

	for _, label := range p.groupLabels {
		sales, labelErr := p.extractWithLabel(lines, label.pattern)
		if labelErr != nil {
			return nil, &ParseError{Section: "group_" + string(label.period), Err: labelErr}
		}

		payload.Group = append(payload.Group, models.GroupFigure{
			Period:       label.period,
			Sales:        sales,
			OccurredAtMs: msPtr(midnight),
		})
	}

	if raw, ok := p.extractInlineJSON(page); ok {
		payload.Source = models.SourceInline

		if err := p.parseInline(raw, payload, midnight); err != nil {
			return nil, err
		}

		return payload, nil
	}

	payload.Source = models.SourceMarkup
	p.parseMarkup(lines, payload, midnight)

	return payload, nil
}

// TextLines returns the visible text of the page, one trimmed non-empty line per entry.
func (p *Parser) TextLines(page string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}

		if n.Type == html.TextNode {
			for _, ln := range strings.Split(n.Data, "\n") {
				if text := p.strings.NormalizeWhitespace(ln); text != "" {
					lines = append(lines, text)
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return lines, nil
}

// parseReportDate reads the as-of date from the group label, defaulting to the day before now.
func (p *Parser) parseReportDate(lines []string, now time.Time) (time.Time, error) {
	for _, text := range []string{strings.Join(lines, "\n"), strings.Join(lines, "")} {
		m := p.reportDatePattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])

		date := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, models.Shanghai)
		if date.Year() != y || int(date.Month()) != mo || date.Day() != d {
			return time.Time{}, fmt.Errorf("invalid calendar date %s-%s-%s", m[1], m[2], m[3])
		}

		return date, nil
	}

	return models.DateOf(now).AddDate(0, 0, -1), nil
}

// extractWithLabel returns the first number within groupLabelWindow lines after the label.
func (p *Parser) extractWithLabel(lines []string, pattern *regexp.Regexp) (string, error) {
	for idx, line := range lines {
		if !pattern.MatchString(line) {
			continue
		}

		end := min(idx+groupLabelWindow, len(lines))
		for j := idx + 1; j < end; j++ {
			if num := p.numberPattern.FindString(lines[j]); num != "" {
				return num, nil
			}
		}

		return "", fmt.Errorf("%w: %s", ErrNumberNotFound, pattern.String())
	}

	return "", fmt.Errorf("%w: %s", ErrLabelNotFound, pattern.String())
}

func (p *Parser) extractInlineJSON(page string) (string, bool) {
	if m := p.inlinePattern.FindStringSubmatch(page); m != nil {
		return m[1], true
	}

	if m := p.inlinePatternLoose.FindStringSubmatch(page); m != nil {
		return m[1], true
	}

	return "", false
}

// flexText accepts a JSON string or number and keeps its text as published.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""

		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}

		*f = flexText(strings.TrimSpace(s))

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}

	*f = flexText(n.String())

	return nil
}

func (f *flexText) text() string {
	if f == nil {
		return ""
	}

	return string(*f)
}

type inlineData struct {
	BuData   []inlineItem `json:"buData"`
	ShopData []inlineItem `json:"shopData"`
}

type inlineItem struct {
	BusinessType  flexText  `json:"业态"`
	Name          flexText  `json:"name"`
	StoreName     flexText  `json:"门店名称"`
	Store         flexText  `json:"门店"`
	RecordID      flexText  `json:"record_id"`
	Daily         *flexText `json:"销售"`
	MonthlyAmount *flexText `json:"月度累计销售金额"`
	Monthly       *flexText `json:"月度累计销售"`
	YearlyAmount  *flexText `json:"年度累计销售金额"`
	Yearly        *flexText `json:"年度累计销售"`
	OccurredAt    *flexText `json:"销售发生时间"`
}

func (p *Parser) decodeInline(raw string) (*inlineData, error) {
	var data inlineData

	err := json.Unmarshal([]byte(raw), &data)
	if err == nil {
		return &data, nil
	}

	data = inlineData{}

	cleaned := p.trailingComma.ReplaceAllString(raw, "$1")
	if cleanErr := json.Unmarshal([]byte(cleaned), &data); cleanErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInlineData, err)
	}

	return &data, nil
}

func (p *Parser) parseInline(raw string, payload *models.Payload, midnight int64) error {
	data, err := p.decodeInline(raw)
	if err != nil {
		return &ParseError{Section: "inline_data", Err: err}
	}

	for i, item := range data.BuData {
		name := p.strings.FirstNonEmpty(item.BusinessType.text(), item.Name.text())
		if name == "" {
			continue
		}

		occurred, occErr := parseOccurred(item.OccurredAt, midnight)
		if occErr != nil {
			return &ParseError{Section: fmt.Sprintf("buData[%d]", i), Err: occErr}
		}

		for _, pf := range []struct {
			value  *flexText
			period models.Period
		}{
			{item.Daily, models.PeriodDaily},
			{item.MonthlyAmount, models.PeriodMonthly},
			{item.YearlyAmount, models.PeriodYearly},
		} {
			if pf.value == nil {
				continue
			}

			payload.BusinessTypes = append(payload.BusinessTypes, models.BusinessTypeFigure{
				Period:       pf.period,
				Name:         name,
				Sales:        pf.value.text(),
				OccurredAtMs: copyMs(occurred),
			})
		}
	}

	for i, item := range data.ShopData {
		name := p.strings.FirstNonEmpty(item.StoreName.text(), item.Store.text(), item.Name.text())
		if name == "" {
			continue
		}

		occurred, occErr := parseOccurred(item.OccurredAt, midnight)
		if occErr != nil {
			return &ParseError{Section: fmt.Sprintf("shopData[%d]", i), Err: occErr}
		}

		for _, pf := range []struct {
			value  *flexText
			period models.Period
		}{
			{item.Daily, models.PeriodDaily},
			{firstPresent(item.MonthlyAmount, item.Monthly), models.PeriodMonthly},
			{firstPresent(item.YearlyAmount, item.Yearly), models.PeriodYearly},
		} {
			if pf.value == nil {
				continue
			}

			payload.Stores = append(payload.Stores, models.StoreFigure{
				Period:       pf.period,
				Name:         name,
				StoreCode:    item.Store.text(),
				RecordID:     item.RecordID.text(),
				Sales:        pf.value.text(),
				OccurredAtMs: copyMs(occurred),
			})
		}
	}

	return nil
}

// parseMarkup slices the page text into sections by their headings and reads name/number rows.
func (p *Parser) parseMarkup(lines []string, payload *models.Payload, midnight int64) {
	type header struct {
		spec sectionSpec
		idx  int
	}

	var headers []header

	for i, line := range lines {
		for _, spec := range p.sections {
			if spec.pattern.MatchString(line) {
				headers = append(headers, header{idx: i, spec: spec})
			}
		}
	}

	for k, h := range headers {
		end := len(lines)
		if k+1 < len(headers) {
			end = headers[k+1].idx
		}

		for _, row := range p.parseBlockRows(lines[h.idx+1 : end]) {
			switch h.spec.entityType {
			case models.EntityBusinessType:
				payload.BusinessTypes = append(payload.BusinessTypes, models.BusinessTypeFigure{
					Period:       h.spec.period,
					Name:         row.name,
					Sales:        row.sales,
					OccurredAtMs: msPtr(midnight),
				})
			case models.EntityStore:
				payload.Stores = append(payload.Stores, models.StoreFigure{
					Period:       h.spec.period,
					Name:         row.name,
					Sales:        row.sales,
					OccurredAtMs: msPtr(midnight),
				})
			}
		}
	}
}

// parseBlockRows reads "name number" rows, or a name line followed by a number line.
func (p *Parser) parseBlockRows(block []string) []markupRow {
	var rows []markupRow

	for i := 0; i < len(block); {
		line := block[i]

		if m := p.rowPattern.FindStringSubmatch(line); m != nil {
			rows = append(rows, markupRow{name: strings.TrimSpace(m[1]), sales: m[2]})
			i++

			continue
		}

		if i+1 < len(block) && !p.digitPattern.MatchString(line) {
			if num := p.numberPattern.FindString(block[i+1]); num != "" {
				rows = append(rows, markupRow{name: line, sales: num})
				i += 2

				continue
			}
		}

		i++
	}

	return rows
}

func parseOccurred(v *flexText, fallback int64) (*int64, error) {
	if v.text() == "" {
		return msPtr(fallback), nil
	}

	d, err := decimal.NewFromString(v.text())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, v.text())
	}

	return msPtr(d.IntPart()), nil
}

func firstPresent(values ...*flexText) *flexText {
	for _, v := range values {
		if v != nil {
			return v
		}
	}

	return nil
}

func msPtr(v int64) *int64 {
	return &v
}

func copyMs(v *int64) *int64 {
	if v == nil {
		return nil
	}

	return msPtr(*v)
}
