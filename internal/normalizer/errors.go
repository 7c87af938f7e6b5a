package normalizer

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrNilPayload            = errors.New("payload is nil")
	ErrNotNumeric            = errors.New("sales value is not numeric")
	ErrNegativeSales         = errors.New("sales value is negative")
	ErrMissingStoreCode      = errors.New("store record requires store_code")
	ErrMissingRecordID       = errors.New("store record requires record_id")
	ErrUnexpectedStoreFields = errors.New("only store records may carry store_code or record_id")
	ErrInvalidField          = errors.New("invalid field")
	ErrDuplicateKey          = errors.New("duplicate record key")
	ErrGroupPeriodCount      = errors.New("group must have exactly one record per period")
	ErrMixedFetchTime        = errors.New("records carry different fetch timestamps")
)

// ValidationError reports a record that violates a record-set invariant.
// Index is the record position, or -1 when the violation concerns the whole set.
type ValidationError struct {
	Err   error
	Field string
	Index int
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("validation: record %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
