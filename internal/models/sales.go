// Package models defines the sales records handled by the pipeline.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupEntityName is the fixed label carried by every group-level record.
const GroupEntityName = "集团合计"

// Period is the accumulation window a figure covers.
type Period string

// Periods.
const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods lists every period in output order.
var Periods = []Period{PeriodDaily, PeriodMonthly, PeriodYearly}

// Rank returns the output position of the period, or -1 when unknown.
func (p Period) Rank() int {
	for i, known := range Periods {
		if p == known {
			return i
		}
	}

	return -1
}

// EntityType is the aggregation level of a record.
type EntityType string

// Entity types.
const (
	EntityGroup        EntityType = "group"
	EntityBusinessType EntityType = "business_type"
	EntityStore        EntityType = "store"
)

// EntityTypes lists every entity type in output order.
var EntityTypes = []EntityType{EntityGroup, EntityBusinessType, EntityStore}

// SalesRecord is one row of the canonical long-form record set.
type SalesRecord struct {
	ReportDate   time.Time       `validate:"required"`
	FetchedAt    time.Time       `validate:"required"`
	OccurredAtMs *int64
	SalesWan     decimal.Decimal `validate:"-"`
	Period       Period          `validate:"required,oneof=daily monthly yearly"`
	EntityType   EntityType      `validate:"required,oneof=group business_type store"`
	EntityName   string          `validate:"required"`
	StoreCode    string
	RecordID     string
}

// Key identifies a record within one run.
type Key struct {
	ReportDate string
	Period     Period
	EntityType EntityType
	EntityName string
}

// Key returns the uniqueness key of the record.
func (r *SalesRecord) Key() Key {
	return Key{
		ReportDate: FormatDate(r.ReportDate),
		Period:     r.Period,
		EntityType: r.EntityType,
		EntityName: r.EntityName,
	}
}

// GroupRow is the group projection.
type GroupRow struct {
	ReportDate   time.Time
	FetchedAt    time.Time
	OccurredAtMs *int64
	SalesWan     decimal.Decimal
	Period       Period
}

// BusinessTypeRow is the business-type projection.
type BusinessTypeRow struct {
	ReportDate   time.Time
	FetchedAt    time.Time
	OccurredAtMs *int64
	SalesWan     decimal.Decimal
	Period       Period
	BusinessType string
}

// StoreRow is the store projection.
type StoreRow struct {
	ReportDate   time.Time
	FetchedAt    time.Time
	OccurredAtMs *int64
	SalesWan     decimal.Decimal
	Period       Period
	StoreName    string
	StoreCode    string
	RecordID     string
}

// SalesSet is the normalized output of one run.
type SalesSet struct {
	ReportDate    time.Time
	FetchedAt     time.Time
	Records       []SalesRecord
	Group         []GroupRow
	BusinessTypes []BusinessTypeRow
	Stores        []StoreRow
}

// Filter returns the records matching the entity type and period, in long-form order.
func (s *SalesSet) Filter(entityType EntityType, period Period) []SalesRecord {
	var out []SalesRecord

	for _, rec := range s.Records {
		if rec.EntityType == entityType && rec.Period == period {
			out = append(out, rec)
		}
	}

	return out
}

// CountByEntity returns how many records carry the given entity type.
func (s *SalesSet) CountByEntity(entityType EntityType) int {
	n := 0

	for _, rec := range s.Records {
		if rec.EntityType == entityType {
			n++
		}
	}

	return n
}
