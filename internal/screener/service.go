package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"CoinScreener/internal/collector"
	"CoinScreener/internal/export"
	"CoinScreener/internal/model"
	"CoinScreener/internal/recorder"
	"CoinScreener/internal/store"
	"CoinScreener/internal/strategy"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Refresh triggers, as recorded in run history.
const (
	TriggerAPI       = "api"
	TriggerSchedule  = "schedule"
	TriggerStartup   = "startup"
	TriggerTelegram  = "telegram"
	TriggerCacheMiss = "cache-miss"
)

// DefaultBuildTimeout bounds a single snapshot build.
const DefaultBuildTimeout = 10 * time.Minute

// Builder produces a fresh snapshot.
type Builder interface {
	Build(ctx context.Context) (*model.Snapshot, collector.BuildStats, error)
}

// RefreshResult describes a persisted build.
type RefreshResult struct {
	UpdatedAt  time.Time            `json:"updatedAt"`
	Count      int                  `json:"count"`
	Generation uint64               `json:"generation"`
	Stats      collector.BuildStats `json:"-"`
}

// FilterParams selects a rule and its gates.
type FilterParams struct {
	Condition  model.ConditionID
	RSIFloor   float64
	MonthlyMin int
}

// DefaultFilterParams returns params for id with default gates.
func DefaultFilterParams(id model.ConditionID) FilterParams {
	return FilterParams{Condition: id, RSIFloor: model.DefaultRSIFloor, MonthlyMin: model.DefaultMonthlyMin}
}

// FilterResult is the outcome of one filter request.
type FilterResult struct {
	SnapshotUpdatedAt time.Time        `json:"snapshotUpdatedAt"`
	Count             int              `json:"count"`
	Rows              []model.QuoteRow `json:"rows"`
	ExportPath        string           `json:"exportPath"`
	Generation        uint64           `json:"generation"`
}

// StatusHistory is how many recent refresh runs Status reports.
const StatusHistory = 5

// Status summarises the cached snapshot and the latest refresh runs.
type Status struct {
	Generation uint64                `json:"generation"`
	UpdatedAt  time.Time             `json:"updatedAt"`
	Count      int                   `json:"count"`
	Building   bool                  `json:"building"`
	Recent     []recorder.RefreshRun `json:"recentRefreshes"`
}

// Service owns the cached snapshot. At most one build runs at a time and
// concurrent refresh callers share its result.
type Service struct {
	builder  Builder
	store    *store.SnapshotStore
	exporter *export.Exporter
	recorder recorder.Recorder
	logger   *zap.Logger

	BuildTimeout time.Duration

	group    singleflight.Group
	building atomic.Bool

	mu         sync.RWMutex
	current    *model.Snapshot
	generation uint64
	loaded     bool
}

// NewService wires a Service. A nil recorder or logger is replaced with a no-op.
func NewService(b Builder, st *store.SnapshotStore, ex *export.Exporter, rec recorder.Recorder, logger *zap.Logger) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder:      b,
		store:        st,
		exporter:     ex,
		recorder:     rec,
		logger:       logger,
		BuildTimeout: DefaultBuildTimeout,
	}
}

// Refresh rebuilds and persists the snapshot, joining a build already in flight.
// On failure the previous snapshot stays in place on disk and in memory.
func (s *Service) Refresh(ctx context.Context, trigger string) (RefreshResult, error) {
	ch := s.group.DoChan("build", func() (interface{}, error) {
		return s.build(context.WithoutCancel(ctx), trigger)
	})
	select {
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return RefreshResult{}, res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight build", zap.String("trigger", trigger))
		}
		return res.Val.(RefreshResult), nil
	}
}

func (s *Service) build(ctx context.Context, trigger string) (RefreshResult, error) {
	s.building.Store(true)
	defer s.building.Store(false)

	if s.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.BuildTimeout)
		defer cancel()
	}

	started := time.Now()
	run := &recorder.RefreshRun{StartedAt: started, Trigger: trigger}
	defer func() {
		if err := s.recorder.RecordRefresh(run); err != nil {
			s.logger.Error("record refresh", zap.Error(err))
		}
	}()

	snap, stats, err := s.builder.Build(ctx)
	run.Candidates, run.Rows, run.Dropped = stats.Candidates, stats.Built, stats.Dropped
	run.Duration = time.Since(started)
	if err != nil {
		run.Err = err.Error()
		s.logger.Error("snapshot build failed", zap.String("trigger", trigger), zap.Error(err))
		return RefreshResult{}, err
	}
	if err := s.store.Write(snap); err != nil {
		run.Err = err.Error()
		s.logger.Error("persist snapshot", zap.Error(err))
		return RefreshResult{}, fmt.Errorf("persist snapshot: %w", err)
	}

	gen := s.adopt(snap)
	run.Generation = gen
	s.logger.Info("snapshot refreshed",
		zap.String("trigger", trigger),
		zap.Int("count", snap.Count),
		zap.Uint64("generation", gen),
	)
	return RefreshResult{UpdatedAt: snap.UpdatedAt, Count: snap.Count, Generation: gen, Stats: stats}, nil
}

// adopt installs snap as the current snapshot under a new generation.
func (s *Service) adopt(snap *model.Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = snap
	s.loaded = true
	return s.generation
}

// Snapshot returns the current snapshot and its generation. It reads the file
// on first use and builds when no usable snapshot exists.
func (s *Service) Snapshot(ctx context.Context) (*model.Snapshot, uint64, error) {
	if snap, gen := s.cached(); snap != nil {
		return snap, gen, nil
	}

	s.loadFromDisk()
	if snap, gen := s.cached(); snap != nil {
		return snap, gen, nil
	}

	if _, err := s.Refresh(ctx, TriggerCacheMiss); err != nil {
		return nil, 0, err
	}
	snap, gen := s.cached()
	if snap == nil {
		return nil, 0, fmt.Errorf("snapshot unavailable after rebuild")
	}
	return snap, gen, nil
}

// loadFromDisk adopts the persisted snapshot once. Later misses go straight to a rebuild.
func (s *Service) loadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.loaded = true

	snap := s.store.Read()
	if snap == nil {
		return
	}
	s.generation++
	s.current = snap
	s.logger.Info("snapshot loaded from disk",
		zap.String("path", s.store.Path()),
		zap.Int("count", snap.Count),
		zap.Uint64("generation", s.generation),
	)
}

func (s *Service) cached() (*model.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.generation
}

// Filter screens the current snapshot and rewrites the export file.
func (s *Service) Filter(ctx context.Context, p FilterParams) (res *FilterResult, err error) {
	if _, ok := strategy.Lookup(p.Condition); !ok {
		return nil, fmt.Errorf("%w: unknown condition %d", ErrInvalidParams, p.Condition)
	}
	if math.IsNaN(p.RSIFloor) || math.IsInf(p.RSIFloor, 0) {
		return nil, fmt.Errorf("%w: rsi floor %v", ErrInvalidParams, p.RSIFloor)
	}
	if p.MonthlyMin < 0 {
		return nil, fmt.Errorf("%w: monthly minimum %d", ErrInvalidParams, p.MonthlyMin)
	}

	snap, gen, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	run := &recorder.FilterRun{
		At:          time.Now(),
		ConditionID: int(p.Condition),
		RSIFloor:    p.RSIFloor,
		MonthlyMin:  p.MonthlyMin,
		Generation:  gen,
	}
	defer func() {
		if r := recover(); r != nil {
			err = s.filterFailure(run, fmt.Errorf("panic: %v", r))
			res = nil
		}
		if rerr := s.recorder.RecordFilter(run); rerr != nil {
			s.logger.Error("record filter", zap.Error(rerr))
		}
	}()

	rows := strategy.Screen(snap.Rows, p.Condition, strategy.Gates{RSIFloor: p.RSIFloor, MonthlyMin: p.MonthlyMin})
	run.Matched = len(rows)

	path, werr := s.exporter.Write(rows)
	if werr != nil {
		return nil, s.filterFailure(run, werr)
	}

	return &FilterResult{
		SnapshotUpdatedAt: snap.UpdatedAt,
		Count:             len(rows),
		Rows:              rows,
		ExportPath:        path,
		Generation:        gen,
	}, nil
}

func (s *Service) filterFailure(run *recorder.FilterRun, cause error) error {
	run.Err = cause.Error()
	s.logger.Error("filter failed",
		zap.Int("condition", run.ConditionID),
		zap.Uint64("generation", run.Generation),
		zap.Error(cause),
	)
	return ErrFilterFailed
}

// Status reports the cached snapshot without loading or building, plus recorded refresh history.
func (s *Service) Status() Status {
	snap, gen := s.cached()
	st := Status{Generation: gen, Building: s.building.Load()}
	if snap != nil {
		st.UpdatedAt = snap.UpdatedAt
		st.Count = snap.Count
	}
	recent, err := s.recorder.RecentRefreshes(StatusHistory)
	if err != nil {
		s.logger.Warn("load refresh history", zap.Error(err))
	}
	st.Recent = recent
	return st
}

// ExportPath returns the export file location.
func (s *Service) ExportPath() string { return s.exporter.Path() }

// IsUpstream reports whether err came from the market-data provider.
func IsUpstream(err error) bool { return errors.Is(err, collector.ErrUpstream) }
