package writer

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"azsales/internal/models"
)

// Tabular artifact names.
const (
	SalesFile        = "sales.csv"
	GroupFile        = "sales_group.csv"
	BusinessTypeFile = "sales_business_type.csv"
	StoreFile        = "sales_store.csv"
	ReportFile       = "report.md"
	WorkbookFile     = "sales.xlsx"
)

// Column sets of the tabular files.
var (
	SalesColumns = []string{
		"report_date", "period", "entity_type", "entity_name", "sales_wan",
		"occurred_at_ms", "store_code", "record_id", "fetched_at_shanghai",
	}
	GroupColumns = []string{
		"report_date", "period", "sales_wan", "occurred_at_ms", "fetched_at_shanghai",
	}
	BusinessTypeColumns = []string{
		"report_date", "period", "business_type", "sales_wan", "occurred_at_ms", "fetched_at_shanghai",
	}
	StoreColumns = []string{
		"report_date", "period", "store_name", "store_code", "record_id",
		"sales_wan", "occurred_at_ms", "fetched_at_shanghai",
	}
)

// table is one tabular view of the sales set.
type table struct {
	file    string
	sheet   string
	columns []string
	rows    [][]string
}

func formatMs(ms *int64) string {
	if ms == nil {
		return ""
	}

	return strconv.FormatInt(*ms, 10)
}

// buildTables projects the sales set into the four tabular views.
func buildTables(set *models.SalesSet) []table {
	sales := table{file: SalesFile, sheet: "sales", columns: SalesColumns}
	for _, r := range set.Records {
		sales.rows = append(sales.rows, []string{
			models.FormatDate(r.ReportDate), string(r.Period), string(r.EntityType), r.EntityName,
			r.SalesWan.String(), formatMs(r.OccurredAtMs), r.StoreCode, r.RecordID,
			models.FormatTimestamp(r.FetchedAt),
		})
	}

	group := table{file: GroupFile, sheet: "group", columns: GroupColumns}
	for _, r := range set.Group {
		group.rows = append(group.rows, []string{
			models.FormatDate(r.ReportDate), string(r.Period), r.SalesWan.String(),
			formatMs(r.OccurredAtMs), models.FormatTimestamp(r.FetchedAt),
		})
	}

	businessTypes := table{file: BusinessTypeFile, sheet: "business_type", columns: BusinessTypeColumns}
	for _, r := range set.BusinessTypes {
		businessTypes.rows = append(businessTypes.rows, []string{
			models.FormatDate(r.ReportDate), string(r.Period), r.BusinessType, r.SalesWan.String(),
			formatMs(r.OccurredAtMs), models.FormatTimestamp(r.FetchedAt),
		})
	}

	stores := table{file: StoreFile, sheet: "store", columns: StoreColumns}
	for _, r := range set.Stores {
		stores.rows = append(stores.rows, []string{
			models.FormatDate(r.ReportDate), string(r.Period), r.StoreName, r.StoreCode, r.RecordID,
			r.SalesWan.String(), formatMs(r.OccurredAtMs), models.FormatTimestamp(r.FetchedAt),
		})
	}

	return []table{sales, group, businessTypes, stores}
}

// encodeCSV renders a header row followed by the data rows with \n line endings.
func encodeCSV(t table) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(t.columns); err != nil {
		return nil, err
	}

	if err := w.WriteAll(t.rows); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
