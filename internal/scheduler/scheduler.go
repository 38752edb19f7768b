package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CoinScreener/internal/model"
	"CoinScreener/internal/notifier"
	"CoinScreener/internal/screener"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Notifier delivers reports to a chat.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs periodic refreshes and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Service  *screener.Service
	Notifier Notifier // nil disables reports
	Logger   *zap.Logger
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *screener.Service, n Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Service:  svc,
		Notifier: n,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the refresh task.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.refresh(screener.TriggerSchedule) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow refreshes immediately (for RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.refresh(screener.TriggerStartup)
}

func (s *Scheduler) refresh(trigger string) {
	s.Logger.Info("running refresh task", zap.String("trigger", trigger))
	res, err := s.Service.Refresh(s.Ctx, trigger)
	if err != nil {
		s.Logger.Error("refresh task", zap.Error(err))
		s.trySend(notifier.FormatRefreshFailure(err))
		return
	}
	s.trySend(notifier.FormatRefreshReport(res))
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/refresh":
		res, err := s.Service.Refresh(ctx, screener.TriggerTelegram)
		if err != nil {
			return notifier.FormatRefreshFailure(err)
		}
		return notifier.FormatRefreshReport(res)
	case "/screen":
		p, err := ParseScreenArgs(fields[1:])
		if err != nil {
			return fmt.Sprintf("⚠️ %v\n\n%s", err, notifier.FormatHelp())
		}
		res, err := s.Service.Filter(ctx, p)
		switch {
		case err == nil:
			return notifier.FormatScreenResult(p, res)
		case screener.IsUpstream(err):
			return notifier.FormatRefreshFailure(err)
		case errors.Is(err, screener.ErrInvalidParams):
			return fmt.Sprintf("⚠️ %v", err)
		default:
			return "❌ Screen failed, see server logs."
		}
	case "/status":
		return notifier.FormatStatus(s.Service.Status())
	default:
		return notifier.FormatHelp()
	}
}

// ParseScreenArgs reads "<id> [rsiFloor] [monthlyMin]".
func ParseScreenArgs(args []string) (screener.FilterParams, error) {
	if len(args) == 0 {
		return screener.FilterParams{}, fmt.Errorf("condition id is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return screener.FilterParams{}, fmt.Errorf("bad condition id %q", args[0])
	}
	id, err := model.ParseConditionID(n)
	if err != nil {
		return screener.FilterParams{}, err
	}
	p := screener.DefaultFilterParams(id)
	if len(args) > 1 {
		if p.RSIFloor, err = strconv.ParseFloat(args[1], 64); err != nil {
			return screener.FilterParams{}, fmt.Errorf("bad rsi floor %q", args[1])
		}
	}
	if len(args) > 2 {
		if p.MonthlyMin, err = strconv.Atoi(args[2]); err != nil || p.MonthlyMin < 0 {
			return screener.FilterParams{}, fmt.Errorf("bad monthly minimum %q", args[2])
		}
	}
	return p, nil
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
