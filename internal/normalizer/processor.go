// Package normalizer converts parsed dashboard figures into the canonical sales record set.
package normalizer

import (
	"time"

	"azsales/internal/models"
)

// Processor handles data processing and transformation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Process builds the validated long-form set and its projections.
// fetchedAt is stamped on every record; it is not read from the clock here.
func (p *Processor) Process(payload *models.Payload, fetchedAt time.Time) (*models.SalesSet, error) {
	records, err := p.transformer.Transform(payload, fetchedAt)
	if err != nil {
		return nil, err
	}

	if err := p.validator.Validate(records); err != nil {
		return nil, err
	}

	group, businessTypes, stores := p.transformer.Project(records)

	return &models.SalesSet{
		ReportDate:    models.DateOf(payload.ReportDate),
		FetchedAt:     fetchedAt.In(models.Shanghai),
		Records:       records,
		Group:         group,
		BusinessTypes: businessTypes,
		Stores:        stores,
	}, nil
}
