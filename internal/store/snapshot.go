package store

import (
	"encoding/json"
	"fmt"
	"os"

	"CoinScreener/internal/model"

	"go.uber.org/zap"
)

// SnapshotStore keeps the latest snapshot in a single JSON file.
type SnapshotStore struct {
	path   string
	logger *zap.Logger
}

// NewSnapshotStore creates a store backed by path.
func NewSnapshotStore(path string, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{path: path, logger: logger}
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string { return s.path }

// Write replaces the snapshot file atomically.
func (s *SnapshotStore) Write(snap *model.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Read loads the snapshot file. It returns nil if the file is missing or cannot be parsed.
func (s *SnapshotStore) Read() *model.Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("snapshot unreadable", zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot corrupt", zap.String("path", s.path), zap.Error(err))
		return nil
	}
	if snap.Rows == nil {
		snap.Rows = []model.QuoteRow{}
	}
	snap.Count = len(snap.Rows)
	return &snap
}
