package model

import "time"

// Snapshot is the full cached dataset produced by one build.
// Rows are in worker completion order.
type Snapshot struct {
	UpdatedAt time.Time  `json:"updatedAt"`
	Count     int        `json:"count"`
	Rows      []QuoteRow `json:"rows"`
}

// NewSnapshot wraps rows with the build completion time and row count.
func NewSnapshot(rows []QuoteRow, at time.Time) *Snapshot {
	if rows == nil {
		rows = []QuoteRow{}
	}
	return &Snapshot{UpdatedAt: at, Count: len(rows), Rows: rows}
}
