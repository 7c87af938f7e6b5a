package models

import "time"

// Payload sources.
const (
	SourceInline = "inline"
	SourceMarkup = "markup"
)

// Payload is the provisional result of parsing one dashboard page.
// Every figure keeps the sales text exactly as published; coercion happens in the normalizer.
type Payload struct {
	ReportDate    time.Time            `json:"reportDate"`
	Source        string               `json:"source"`
	Group         []GroupFigure        `json:"group"`
	BusinessTypes []BusinessTypeFigure `json:"businessTypes"`
	Stores        []StoreFigure        `json:"stores"`
}

// GroupFigure is one group-wide total for a period.
type GroupFigure struct {
	OccurredAtMs *int64 `json:"occurredAtMs,omitempty"`
	Period       Period `json:"period"`
	Sales        string `json:"sales"`
}

// BusinessTypeFigure is one business category's figure for a period.
type BusinessTypeFigure struct {
	OccurredAtMs *int64 `json:"occurredAtMs,omitempty"`
	Period       Period `json:"period"`
	Name         string `json:"name"`
	Sales        string `json:"sales"`
}

// StoreFigure is one store's figure for a period.
type StoreFigure struct {
	OccurredAtMs *int64 `json:"occurredAtMs,omitempty"`
	Period       Period `json:"period"`
	Name         string `json:"name"`
	StoreCode    string `json:"storeCode,omitempty"`
	RecordID     string `json:"recordId,omitempty"`
	Sales        string `json:"sales"`
}

// Len returns the number of figures across all groupings.
func (p *Payload) Len() int {
	return len(p.Group) + len(p.BusinessTypes) + len(p.Stores)
}
