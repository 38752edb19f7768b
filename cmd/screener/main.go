package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinScreener/internal/api"
	"CoinScreener/internal/collector"
	"CoinScreener/internal/config"
	"CoinScreener/internal/export"
	"CoinScreener/internal/logger"
	"CoinScreener/internal/notifier"
	"CoinScreener/internal/recorder"
	"CoinScreener/internal/scheduler"
	"CoinScreener/internal/screener"
	"CoinScreener/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, cfgPath, log)
	if err != nil {
		log.Error("CoinScreener exited", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires every component and blocks until shutdown. Deferred cleanup runs on every return.
func run(cfg *config.Config, cfgPath string, log *zap.Logger) error {
	log.Info("CoinScreener starting", zap.String("config", cfgPath))

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.Demo {
		fetcher = collector.NewDemoFetcher([]string{"BTC", "ETH", "XRP", "SOL", "ADA", "DOGE", "DOT", "LINK"}, 400)
	} else {
		fetcher = collector.NewBithumbFetcher(cfg.DataSource.BaseURL, cfg.DataSource.QuoteCurrency, cfg.DataSource.Proxy, cfg.DataSource.Timeout)
	}
	log.Info("data source", zap.String("name", fetcher.Name()))

	col := collector.NewCollector(fetcher, cfg.DataSource.QuoteCurrency, log.Named("collector"))
	col.Workers = cfg.DataSource.Workers
	col.MinPrice = cfg.DataSource.MinPrice
	if len(cfg.DataSource.Exclude) > 0 {
		col.SetExcluded(cfg.DataSource.Exclude)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	svc := screener.NewService(
		col,
		store.NewSnapshotStore(cfg.Cache.SnapshotPath, log.Named("store")),
		export.NewExporter(cfg.Cache.ExportPath),
		rec,
		log.Named("screener"),
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var (
		tn   *notifier.TelegramNotifier
		note scheduler.Notifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log.Named("telegram"))
		note = tn
	}

	sched := scheduler.NewScheduler(ctx, svc, note, log.Named("scheduler"))
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("register cron task: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, refreshing now")
		go sched.RunNow()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(api.NewHandler(svc, log.Named("api")), log.Named("http")),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			cancel()
		}
	}()
	log.Info("CoinScreener is running", zap.String("addr", cfg.Server.Addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	log.Info("CoinScreener stopped")
	return nil
}
