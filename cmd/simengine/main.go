package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"simbot/config"
	"simbot/internal/logger"
	"simbot/internal/metrics"
	"simbot/internal/notification"
	"simbot/internal/sim"
	redisstore "simbot/internal/store/redis"
	sqlitestore "simbot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	once := flag.Bool("once", false, "run a single batch and exit (for cron-style scheduling)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[simengine] bad config: %v", err)
	}

	slogger := logger.Init("simengine", slog.LevelInfo)
	slogger.Info("starting",
		"sqlite_path", cfg.SQLitePath,
		"tick_interval", cfg.TickInterval.String(),
		"period", cfg.Period,
		"once", *once,
	)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slogger.Info("shutdown signal received")
		cancel()
	}()

	// ---- SQLite store ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	store, err := sqlitestore.Open(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[simengine] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)
	slogger.Info("sqlite store ready")

	// ---- Redis outcome publisher (optional) ----
	var publisher sim.OutcomePublisher
	var redisPub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		redisPub, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[simengine] WARNING: redis init failed: %v (continuing without redis)", err)
			health.SetRedisConnected(false)
		} else {
			publisher = redisPub
			health.SetRedisConnected(true)
			slogger.Info("redis publisher ready", "addr", cfg.RedisAddr)
		}
	}

	// ---- Liveness checks ----
	if redisPub != nil {
		health.StartLivenessChecker(ctx, store.DB(), redisPub.Client(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, store.DB(), nil, 10*time.Second)
	}

	// ---- Notifier ----
	notifier := buildNotifier(cfg, slogger)

	// ---- Runner ----
	runner := sim.NewRunner(sim.Config{
		Period:         cfg.Period,
		BandMultiplier: cfg.BandMultiplier,
	}, store, store, store, notifier, publisher, prom, slogger)

	if *once {
		res := runner.RunOnce(ctx)
		health.RecordBatch(res.StartedAt, res.Errors)
		shutdown(metricsSrv, redisPub, slogger)
		if res.Errors > 0 {
			os.Exit(1)
		}
		return
	}

	slogger.Info("scheduler started", "interval", cfg.TickInterval.String())
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdown(metricsSrv, redisPub, slogger)
			return
		case <-ticker.C:
			res := runner.RunOnce(ctx)
			health.RecordBatch(res.StartedAt, res.Errors)
		}
	}
}

// buildNotifier picks the first configured channel, falling back to logs.
func buildNotifier(cfg *config.Config, slogger *slog.Logger) notification.Notifier {
	switch {
	case cfg.TelegramBotToken != "":
		slogger.Info("notifier: telegram")
		return notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	case cfg.WebhookURL != "":
		slogger.Info("notifier: webhook", "url", cfg.WebhookURL)
		return notification.NewWebhookNotifier(cfg.WebhookURL)
	default:
		return notification.NewLogNotifier()
	}
}

func shutdown(metricsSrv *metrics.Server, redisPub *redisstore.Publisher, slogger *slog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	if redisPub != nil {
		redisPub.Close()
	}
	slogger.Info("shutdown complete")
}
