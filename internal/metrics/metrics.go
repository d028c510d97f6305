// Package metrics exposes Prometheus metrics and a health endpoint for
// the simulation engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the simulation engine.
type Metrics struct {
	BatchesTotal   prometheus.Counter
	BatchDur       prometheus.Histogram
	AccountsTotal  prometheus.Counter
	AccountErrors  prometheus.Counter
	EvalDur        prometheus.Histogram
	OutcomesTotal  *prometheus.CounterVec // labels: action
	TradeVolumeUSD *prometheus.CounterVec // labels: type
	NotifyFailures prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simengine_batches_total",
			Help: "Total simulation batches executed",
		}),
		BatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simengine_batch_duration_seconds",
			Help:    "Wall time of a full simulation batch",
			Buckets: prometheus.DefBuckets,
		}),
		AccountsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simengine_accounts_evaluated_total",
			Help: "Total per-account evaluations attempted",
		}),
		AccountErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simengine_account_errors_total",
			Help: "Per-account evaluation failures (tick abandoned)",
		}),
		EvalDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simengine_eval_duration_seconds",
			Help:    "Single-account evaluation latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simengine_outcomes_total",
			Help: "Evaluation outcomes by action",
		}, []string{"action"}),
		TradeVolumeUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simengine_trade_volume_usd_total",
			Help: "Cumulative simulated trade volume in USD by trade type",
		}, []string{"type"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simengine_notify_failures_total",
			Help: "Best-effort notification deliveries that failed",
		}),
	}

	prometheus.MustRegister(
		m.BatchesTotal,
		m.BatchDur,
		m.AccountsTotal,
		m.AccountErrors,
		m.EvalDur,
		m.OutcomesTotal,
		m.TradeVolumeUSD,
		m.NotifyFailures,
	)

	return m
}

// HealthStatus represents engine health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	SQLiteOK        bool      `json:"sqlite_ok"`
	RedisConnected  bool      `json:"redis_connected"`
	LastBatchAt     time.Time `json:"last_batch_at"`
	LastBatchErrors int       `json:"last_batch_errors"`
	StartedAt       time.Time `json:"started_at"`

	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// RecordBatch notes the completion of a batch and its error count.
func (h *HealthStatus) RecordBatch(at time.Time, errors int) {
	h.mu.Lock()
	h.LastBatchAt = at
	h.LastBatchErrors = errors
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency probes.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, db *sql.DB, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if db != nil {
					h.CheckSQLite(probeCtx, db)
				}
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		// Redis is optional; SQLite holds the ledger and is not.
		status = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	body := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		LastBatchAt     string  `json:"last_batch_at"`
		LastBatchErrors int     `json:"last_batch_errors"`
	}{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		LastBatchAt:     h.LastBatchAt.Format(time.RFC3339),
		LastBatchErrors: h.LastBatchErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
