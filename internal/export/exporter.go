package export

import (
	"bytes"
	"fmt"
	"sync"

	"CoinScreener/internal/model"
	"CoinScreener/internal/store"
)

// Exporter overwrites one export file per call. Writes are serialized.
type Exporter struct {
	path string
	mu   sync.Mutex
}

// NewExporter creates an Exporter writing to path.
func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

// Path returns the export file location.
func (e *Exporter) Path() string { return e.path }

// Write renders rows and replaces the export file, returning its path.
func (e *Exporter) Write(rows []model.QuoteRow) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := store.WriteFileAtomic(e.path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return e.path, nil
}
