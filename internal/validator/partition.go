// Package validator checks published partitions for structural integrity.
package validator

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"azsales/internal/writer"
	"azsales/pkg/metadata"

	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrMissingFile     = errors.New("missing partition file")
	ErrHeaderMismatch  = errors.New("unexpected CSV header")
	ErrColumnCount     = errors.New("unexpected column count")
	ErrInvalidSales    = errors.New("sales_wan is not a non-negative number")
	ErrDateMismatch    = errors.New("report_date does not match the report")
	ErrRecordCount     = errors.New("record count does not match the report")
	ErrProjectionCount = errors.New("projections do not cover the long form")
)

// ValidationError locates one problem in a partition.
type ValidationError struct {
	Err  error
	File string
	Line int
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	Files       int
	Rows        int
	InvalidRows int
}

func (r *ValidationResult) fail(file string, line int, err error) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{File: file, Line: line, Err: err})
}

type tableSpec struct {
	file    string
	columns []string
}

var tableSpecs = []tableSpec{
	{file: writer.SalesFile, columns: writer.SalesColumns},
	{file: writer.GroupFile, columns: writer.GroupColumns},
	{file: writer.BusinessTypeFile, columns: writer.BusinessTypeColumns},
	{file: writer.StoreFile, columns: writer.StoreColumns},
}

// PartitionValidator checks the CSV tables and report of one date partition.
type PartitionValidator struct{}

// NewPartitionValidator creates a new validator.
func NewPartitionValidator() *PartitionValidator {
	return &PartitionValidator{}
}

// ValidatePartition reads every table and the report in dir and cross-checks them.
func (v *PartitionValidator) ValidatePartition(dir string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	content, err := os.ReadFile(filepath.Join(dir, writer.ReportFile))
	if err != nil {
		result.fail(writer.ReportFile, 0, fmt.Errorf("%w: %w", ErrMissingFile, err))

		return result
	}

	result.Stats.Files++

	integrity := v.ValidateIntegrity(string(content))
	result.Errors = append(result.Errors, integrity.Errors...)
	result.IsValid = result.IsValid && integrity.IsValid

	meta, _ := metadata.Extract(string(content))

	counts := make(map[string]int, len(tableSpecs))

	for _, spec := range tableSpecs {
		n, ok := v.validateTable(dir, spec, meta, result)
		if ok {
			counts[spec.file] = n
		}
	}

	if len(counts) != len(tableSpecs) {
		return result
	}

	projected := counts[writer.GroupFile] + counts[writer.BusinessTypeFile] + counts[writer.StoreFile]
	if projected != counts[writer.SalesFile] {
		result.fail(writer.SalesFile, 0, fmt.Errorf("%w: %d projected, %d long-form",
			ErrProjectionCount, projected, counts[writer.SalesFile]))
	}

	if meta != nil && meta.Records != counts[writer.SalesFile] {
		result.fail(writer.SalesFile, 0, fmt.Errorf("%w: report says %d, table has %d",
			ErrRecordCount, meta.Records, counts[writer.SalesFile]))
	}

	return result
}

// ValidateIntegrity checks the report body against the hash in its metadata block.
func (v *PartitionValidator) ValidateIntegrity(content string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if valid, err := metadata.Verify(content); !valid {
		result.fail(writer.ReportFile, 0, fmt.Errorf("integrity check failed: %w", err))
	}

	return result
}

// validateTable checks one CSV file and returns its data row count.
func (v *PartitionValidator) validateTable(dir string, spec tableSpec, meta *metadata.Metadata, result *ValidationResult) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dir, spec.file))
	if err != nil {
		result.fail(spec.file, 0, fmt.Errorf("%w: %w", ErrMissingFile, err))

		return 0, false
	}

	result.Stats.Files++

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		result.fail(spec.file, 0, err)

		return 0, false
	}

	if len(rows) == 0 || !slices.Equal(rows[0], spec.columns) {
		result.fail(spec.file, 1, ErrHeaderMismatch)

		return 0, false
	}

	salesIdx := slices.Index(spec.columns, "sales_wan")
	dateIdx := slices.Index(spec.columns, "report_date")

	for i, row := range rows[1:] {
		line := i + 2
		result.Stats.Rows++

		if len(row) != len(spec.columns) {
			result.Stats.InvalidRows++
			result.fail(spec.file, line, fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(row), len(spec.columns)))

			continue
		}

		if sales, err := decimal.NewFromString(row[salesIdx]); err != nil || sales.IsNegative() {
			result.Stats.InvalidRows++
			result.fail(spec.file, line, fmt.Errorf("%w: %q", ErrInvalidSales, row[salesIdx]))

			continue
		}

		if meta != nil && meta.ReportDate != "" && row[dateIdx] != meta.ReportDate {
			result.Stats.InvalidRows++
			result.fail(spec.file, line, fmt.Errorf("%w: %s", ErrDateMismatch, row[dateIdx]))
		}
	}

	if len(rows) == 1 && spec.file == writer.SalesFile {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no rows for %s", spec.file, partitionDate(meta)))
	}

	return len(rows) - 1, true
}

func partitionDate(meta *metadata.Metadata) string {
	if meta == nil || meta.ReportDate == "" {
		return "unknown date"
	}

	return meta.ReportDate
}
