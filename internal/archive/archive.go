// Package archive mirrors each published partition into a SQLite database.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"azsales/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrEmptyRunID is returned when a partition is replaced without a run identifier.
var ErrEmptyRunID = errors.New("run id is required")

// SalesRecordRow is the stored form of one long-form record.
type SalesRecordRow struct {
	FetchedAt    time.Time       `gorm:"not null"`
	OccurredAtMs *int64
	StoreCode    *string         `gorm:"size:64"`
	RecordID     *string         `gorm:"size:64"`
	RunID        string          `gorm:"size:36;not null;index"`
	ReportDate   string          `gorm:"size:10;not null;uniqueIndex:idx_sales_key,priority:1"`
	Period       string          `gorm:"size:16;not null;uniqueIndex:idx_sales_key,priority:2"`
	EntityType   string          `gorm:"size:32;not null;uniqueIndex:idx_sales_key,priority:3"`
	EntityName   string          `gorm:"not null;uniqueIndex:idx_sales_key,priority:4"`
	SalesWan     decimal.Decimal `gorm:"type:text;not null"`
	ID           uint            `gorm:"primaryKey"`
}

// TableName pins the table name.
func (SalesRecordRow) TableName() string {
	return "sales_records"
}

// Store is the archive database.
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens or creates the archive at path and migrates its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&SalesRecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// ReplacePartition swaps the stored rows of date for records and runs publish
// inside the same transaction. Nothing is committed unless publish succeeds.
func (s *Store) ReplacePartition(
	ctx context.Context, date time.Time, runID string, records []models.SalesRecord, publish func() error,
) error {
	if runID == "" {
		return ErrEmptyRunID
	}

	reportDate := models.FormatDate(date)
	rows := toRows(runID, records)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_date = ?", reportDate).Delete(&SalesRecordRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", reportDate, err)
		}

		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
				return fmt.Errorf("failed to insert %s: %w", reportDate, err)
			}
		}

		if publish != nil {
			return publish()
		}

		return nil
	})
}

// Rows returns the stored rows of date in insertion order.
func (s *Store) Rows(ctx context.Context, date time.Time) ([]SalesRecordRow, error) {
	var rows []SalesRecordRow

	err := s.db.WithContext(ctx).
		Where("report_date = ?", models.FormatDate(date)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	return rows, nil
}

func toRows(runID string, records []models.SalesRecord) []SalesRecordRow {
	rows := make([]SalesRecordRow, 0, len(records))

	for _, r := range records {
		rows = append(rows, SalesRecordRow{
			RunID:        runID,
			ReportDate:   models.FormatDate(r.ReportDate),
			Period:       string(r.Period),
			EntityType:   string(r.EntityType),
			EntityName:   r.EntityName,
			SalesWan:     r.SalesWan,
			OccurredAtMs: r.OccurredAtMs,
			StoreCode:    optional(r.StoreCode),
			RecordID:     optional(r.RecordID),
			FetchedAt:    r.FetchedAt,
		})
	}

	return rows
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
