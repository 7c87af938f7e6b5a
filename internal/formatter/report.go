package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"azsales/internal/chart"
	"azsales/internal/models"
	"azsales/pkg/metadata"
)

// ReportOptions controls optional report sections.
type ReportOptions struct {
	// Charts links the per-ranking SVG files next to each table.
	Charts bool
}

// BuildReport renders report.md for one partition.
// The result depends only on its arguments; the signature is stamped with set.FetchedAt.
func BuildReport(reportDate time.Time, set *models.SalesSet, opts ReportOptions) string {
	date := models.FormatDate(reportDate)

	var b strings.Builder

	fmt.Fprintf(&b, "# 销售日报 %s\n\n", date)

	b.WriteString("## 摘要\n\n")
	writeSummary(&b, set)

	b.WriteString("\n## 集团合计\n\n")
	writeGroupTable(&b, set)

	b.WriteString("\n## 业态明细\n\n")
	writeBreakdown(&b, set, models.EntityBusinessType, []string{"business_type"}, nil)

	b.WriteString("\n## 门店明细\n\n")
	writeBreakdown(&b, set, models.EntityStore, []string{"store_name", "store_code"},
		func(rec models.SalesRecord) []string { return []string{rec.EntityName, rec.StoreCode} })

	nameHeaders := map[models.EntityType]string{
		models.EntityBusinessType: "business_type",
		models.EntityStore:        "store_name",
	}

	for _, entityType := range chart.Ranked {
		fmt.Fprintf(&b, "\n## %s TOP%d\n", chart.EntityLabel(entityType), chart.TopN)

		for _, period := range models.Periods {
			fmt.Fprintf(&b, "\n### %s\n\n", chart.PeriodLabel(period))

			bars := chart.Top(set.Filter(entityType, period), chart.TopN)
			rows := make([][]string, 0, len(bars))

			for i, bar := range bars {
				rows = append(rows, []string{strconv.Itoa(i + 1), bar.Name, bar.Value.String()})
			}

			b.WriteString(Table([]string{"rank", nameHeaders[entityType], "sales_wan"},
				[]Align{AlignRight, AlignLeft, AlignRight}, rows))
			b.WriteString("\n")

			if opts.Charts {
				fmt.Fprintf(&b, "\n![](./%s)\n", chart.FileName(entityType, period))
			}
		}
	}

	fmt.Fprintf(&b, "\n## %s%sTOP%d 图\n\n", chart.EntityLabel(models.EntityStore),
		chart.PeriodLabel(models.PeriodMonthly), chart.TopN)
	b.WriteString("```text\n")
	b.WriteString(chart.RenderText(chart.Top(set.Filter(models.EntityStore, models.PeriodMonthly), chart.TopN)))
	b.WriteString("```\n")

	return metadata.Sign(b.String(), metadata.Metadata{
		Generated:  set.FetchedAt.In(models.Shanghai),
		ReportDate: date,
		Records:    len(set.Records),
	})
}

func writeSummary(b *strings.Builder, set *models.SalesSet) {
	fmt.Fprintf(b, "- 业态数: %d\n", distinctNames(set, models.EntityBusinessType))
	fmt.Fprintf(b, "- 门店数: %d\n", distinctNames(set, models.EntityStore))

	for _, entityType := range chart.Ranked {
		label := chart.EntityLabel(entityType)
		daily := chart.Top(set.Filter(entityType, models.PeriodDaily), -1)

		if len(daily) == 0 {
			fmt.Fprintf(b, "- %s日销最大: -\n", label)
			fmt.Fprintf(b, "- %s日销最小: -\n", label)

			continue
		}

		lowest := daily[len(daily)-1]
		for _, bar := range daily {
			if bar.Value.Equal(lowest.Value) {
				lowest = bar

				break
			}
		}

		fmt.Fprintf(b, "- %s日销最大: %s %s\n", label, daily[0].Name, daily[0].Value.String())
		fmt.Fprintf(b, "- %s日销最小: %s %s\n", label, lowest.Name, lowest.Value.String())
	}

	b.WriteString("- 同比: -\n")
	b.WriteString("- 环比: -\n")
}

func writeGroupTable(b *strings.Builder, set *models.SalesSet) {
	rows := make([][]string, 0, len(set.Group))
	for _, g := range set.Group {
		rows = append(rows, []string{string(g.Period), g.SalesWan.String()})
	}

	b.WriteString(Table([]string{"period", "sales_wan"}, []Align{AlignLeft, AlignRight}, rows))
	b.WriteString("\n")
}

// writeBreakdown renders one row per entity with its three period figures.
// Entities appear in long-form order; a missing period shows "-".
func writeBreakdown(b *strings.Builder, set *models.SalesSet, entityType models.EntityType,
	idHeaders []string, idCells func(models.SalesRecord) []string,
) {
	if idCells == nil {
		idCells = func(rec models.SalesRecord) []string { return []string{rec.EntityName} }
	}

	type entry struct {
		ids    []string
		values map[models.Period]string
	}

	var order []string

	entries := make(map[string]*entry)

	for _, rec := range set.Records {
		if rec.EntityType != entityType {
			continue
		}

		e, ok := entries[rec.EntityName]
		if !ok {
			e = &entry{ids: idCells(rec), values: make(map[models.Period]string, len(models.Periods))}
			entries[rec.EntityName] = e
			order = append(order, rec.EntityName)
		}

		e.values[rec.Period] = rec.SalesWan.String()
	}

	headers := append([]string{}, idHeaders...)
	aligns := make([]Align, len(idHeaders))

	for _, period := range models.Periods {
		headers = append(headers, string(period))
		aligns = append(aligns, AlignRight)
	}

	rows := make([][]string, 0, len(order))

	for _, name := range order {
		e := entries[name]
		row := append([]string{}, e.ids...)

		for _, period := range models.Periods {
			v, ok := e.values[period]
			if !ok {
				v = "-"
			}

			row = append(row, v)
		}

		rows = append(rows, row)
	}

	b.WriteString(Table(headers, aligns, rows))
	b.WriteString("\n")
}

func distinctNames(set *models.SalesSet, entityType models.EntityType) int {
	names := make(map[string]struct{})

	for _, rec := range set.Records {
		if rec.EntityType == entityType {
			names[rec.EntityName] = struct{}{}
		}
	}

	return len(names)
}
