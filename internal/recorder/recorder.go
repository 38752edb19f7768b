package recorder

import "time"

// RefreshRun records one snapshot build attempt.
type RefreshRun struct {
	StartedAt  time.Time     `json:"startedAt"`
	Trigger    string        `json:"trigger"` // "api", "schedule", "startup", "telegram", "cache-miss"
	Candidates int           `json:"candidates"`
	Rows       int           `json:"rows"`
	Dropped    int           `json:"dropped"`
	Duration   time.Duration `json:"durationNs"`
	Generation uint64        `json:"generation"`
	Err        string        `json:"error,omitempty"` // empty on success
}

// FilterRun records one filter request.
type FilterRun struct {
	At          time.Time
	ConditionID int
	RSIFloor    float64
	MonthlyMin  int
	Matched     int
	Generation  uint64
	Err         string
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRefresh(run *RefreshRun) error
	RecordFilter(run *FilterRun) error
	RecentRefreshes(limit int) ([]RefreshRun, error)
	Close() error
}
