package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"azsales/internal/models"

	"github.com/go-playground/validator/v10"
)

// Struct-level rule tags reported by the record validator.
const (
	tagStoreCodeRequired = "store_code_required"
	tagRecordIDRequired  = "record_id_required"
	tagStoreFieldsUnset  = "store_fields_unset"
	tagNonNegative       = "non_negative"
)

var fieldColumns = map[string]string{
	"ReportDate":   "report_date",
	"FetchedAt":    "fetched_at_shanghai",
	"OccurredAtMs": "occurred_at_ms",
	"SalesWan":     "sales_wan",
	"Period":       "period",
	"EntityType":   "entity_type",
	"EntityName":   "entity_name",
	"StoreCode":    "store_code",
	"RecordID":     "record_id",
}

// Validator checks records and record sets against their invariants.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(salesRecordRules, models.SalesRecord{})

	return &Validator{validate: v}
}

func salesRecordRules(sl validator.StructLevel) {
	rec, ok := sl.Current().Interface().(models.SalesRecord)
	if !ok {
		return
	}

	if rec.EntityType == models.EntityStore {
		if strings.TrimSpace(rec.StoreCode) == "" {
			sl.ReportError(rec.StoreCode, "StoreCode", "StoreCode", tagStoreCodeRequired, "")
		}

		if strings.TrimSpace(rec.RecordID) == "" {
			sl.ReportError(rec.RecordID, "RecordID", "RecordID", tagRecordIDRequired, "")
		}
	} else if rec.StoreCode != "" || rec.RecordID != "" {
		sl.ReportError(rec.StoreCode, "StoreCode", "StoreCode", tagStoreFieldsUnset, "")
	}

	if rec.SalesWan.IsNegative() {
		sl.ReportError(rec.SalesWan, "SalesWan", "SalesWan", tagNonNegative, "")
	}
}

// ValidateRecord checks one record. index is reported in the returned error.
func (v *Validator) ValidateRecord(index int, rec *models.SalesRecord) error {
	err := v.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Index: index, Field: "record", Err: fmt.Errorf("%w: %w", ErrInvalidField, err)}
	}

	fe := fieldErrs[0]
	field := fieldColumns[fe.StructField()]

	switch fe.Tag() {
	case tagStoreCodeRequired:
		return &ValidationError{Index: index, Field: field, Err: ErrMissingStoreCode}
	case tagRecordIDRequired:
		return &ValidationError{Index: index, Field: field, Err: ErrMissingRecordID}
	case tagStoreFieldsUnset:
		return &ValidationError{Index: index, Field: field, Err: ErrUnexpectedStoreFields}
	case tagNonNegative:
		return &ValidationError{Index: index, Field: field, Err: fmt.Errorf("%w: %s", ErrNegativeSales, rec.SalesWan)}
	}

	return &ValidationError{
		Index: index,
		Field: field,
		Err:   fmt.Errorf("%w: failed %q rule with value %v", ErrInvalidField, fe.Tag(), fe.Value()),
	}
}

// Validate checks every record and the set-wide invariants:
// unique keys, one fetch timestamp, and exactly one group record per period.
func (v *Validator) Validate(records []models.SalesRecord) error {
	seen := make(map[models.Key]int, len(records))
	groupCounts := make(map[models.Period]int, len(models.Periods))

	for i := range records {
		rec := &records[i]

		if err := v.ValidateRecord(i, rec); err != nil {
			return err
		}

		if !rec.FetchedAt.Equal(records[0].FetchedAt) {
			return &ValidationError{Index: i, Field: "fetched_at_shanghai", Err: ErrMixedFetchTime}
		}

		key := rec.Key()
		if first, dup := seen[key]; dup {
			return &ValidationError{
				Index: i,
				Field: "key",
				Err:   fmt.Errorf("%w: %s/%s/%s also at record %d", ErrDuplicateKey, key.Period, key.EntityType, key.EntityName, first),
			}
		}

		seen[key] = i

		if rec.EntityType == models.EntityGroup {
			groupCounts[rec.Period]++
		}
	}

	for _, period := range models.Periods {
		if n := groupCounts[period]; n != 1 {
			return &ValidationError{
				Index: -1,
				Field: "group",
				Err:   fmt.Errorf("%w: %s has %d", ErrGroupPeriodCount, period, n),
			}
		}
	}

	return nil
}
