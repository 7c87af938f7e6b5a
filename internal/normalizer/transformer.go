package normalizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"azsales/internal/models"

	"github.com/shopspring/decimal"
)

// Transformer turns a provisional payload into the ordered long-form record set.
type Transformer struct {
	numberPattern *regexp.Regexp
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		numberPattern: regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`),
	}
}

// ParseSales coerces a published sales text to a decimal number of wan.
// Surrounding space, thousands separators and a trailing 万元 unit are ignored.
// Exponent notation is accepted as JSON numbers may carry it.
func (t *Transformer) ParseSales(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "万元"))
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	if !t.numberPattern.MatchString(cleaned) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}

	return d, nil
}

// Transform stamps, coerces, orders and deduplicates the payload figures.
// Records are ordered group, business_type, store; within each by period, then source order.
// A repeated key keeps its first position and takes the later value.
func (t *Transformer) Transform(payload *models.Payload, fetchedAt time.Time) ([]models.SalesRecord, error) {
	if payload == nil {
		return nil, &ValidationError{Index: -1, Field: "payload", Err: ErrNilPayload}
	}

	reportDate := models.DateOf(payload.ReportDate)
	fetchedAt = fetchedAt.In(models.Shanghai)

	records := make([]models.SalesRecord, 0, payload.Len())

	add := func(entityType models.EntityType, period models.Period, name, sales string, occurred *int64) (*models.SalesRecord, error) {
		value, err := t.ParseSales(sales)
		if err != nil {
			return nil, &ValidationError{Index: len(records), Field: "sales_wan", Err: err}
		}

		records = append(records, models.SalesRecord{
			ReportDate:   reportDate,
			FetchedAt:    fetchedAt,
			OccurredAtMs: occurred,
			SalesWan:     value,
			Period:       period,
			EntityType:   entityType,
			EntityName:   strings.TrimSpace(name),
		})

		return &records[len(records)-1], nil
	}

	for _, fig := range payload.Group {
		if _, err := add(models.EntityGroup, fig.Period, models.GroupEntityName, fig.Sales, fig.OccurredAtMs); err != nil {
			return nil, err
		}
	}

	for _, fig := range payload.BusinessTypes {
		if _, err := add(models.EntityBusinessType, fig.Period, fig.Name, fig.Sales, fig.OccurredAtMs); err != nil {
			return nil, err
		}
	}

	for _, fig := range payload.Stores {
		rec, err := add(models.EntityStore, fig.Period, fig.Name, fig.Sales, fig.OccurredAtMs)
		if err != nil {
			return nil, err
		}

		rec.StoreCode = strings.TrimSpace(fig.StoreCode)
		rec.RecordID = strings.TrimSpace(fig.RecordID)
	}

	sort.SliceStable(records, func(i, j int) bool {
		ei, ej := entityRank(records[i].EntityType), entityRank(records[j].EntityType)
		if ei != ej {
			return ei < ej
		}

		return records[i].Period.Rank() < records[j].Period.Rank()
	})

	return t.Dedupe(records), nil
}

// Dedupe collapses records sharing a key, keeping the first position and the last value.
func (t *Transformer) Dedupe(records []models.SalesRecord) []models.SalesRecord {
	positions := make(map[models.Key]int, len(records))
	out := make([]models.SalesRecord, 0, len(records))

	for _, rec := range records {
		key := rec.Key()
		if idx, seen := positions[key]; seen {
			out[idx] = rec

			continue
		}

		positions[key] = len(out)
		out = append(out, rec)
	}

	return out
}

// Project builds the three narrow views from the long-form records.
func (t *Transformer) Project(records []models.SalesRecord) ([]models.GroupRow, []models.BusinessTypeRow, []models.StoreRow) {
	var (
		group         []models.GroupRow
		businessTypes []models.BusinessTypeRow
		stores        []models.StoreRow
	)

	for _, rec := range records {
		switch rec.EntityType {
		case models.EntityGroup:
			group = append(group, models.GroupRow{
				ReportDate:   rec.ReportDate,
				FetchedAt:    rec.FetchedAt,
				OccurredAtMs: rec.OccurredAtMs,
				SalesWan:     rec.SalesWan,
				Period:       rec.Period,
			})
		case models.EntityBusinessType:
			businessTypes = append(businessTypes, models.BusinessTypeRow{
				ReportDate:   rec.ReportDate,
				FetchedAt:    rec.FetchedAt,
				OccurredAtMs: rec.OccurredAtMs,
				SalesWan:     rec.SalesWan,
				Period:       rec.Period,
				BusinessType: rec.EntityName,
			})
		case models.EntityStore:
			stores = append(stores, models.StoreRow{
				ReportDate:   rec.ReportDate,
				FetchedAt:    rec.FetchedAt,
				OccurredAtMs: rec.OccurredAtMs,
				SalesWan:     rec.SalesWan,
				Period:       rec.Period,
				StoreName:    rec.EntityName,
				StoreCode:    rec.StoreCode,
				RecordID:     rec.RecordID,
			})
		}
	}

	return group, businessTypes, stores
}

func entityRank(entityType models.EntityType) int {
	for i, known := range models.EntityTypes {
		if entityType == known {
			return i
		}
	}

	return len(models.EntityTypes)
}
