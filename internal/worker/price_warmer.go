// Package worker runs background jobs that keep shared caches warm.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
	"github.com/wallet-insights/internal/types"
)

// Defaults for the price warm job
const (
	DefaultPriceWarmSchedule = "@every 4m"
	DefaultPriceWarmTimeout  = 30 * time.Second
)

// PriceRefresher fetches spot prices from upstream and stores them in the
// shared cache.
type PriceRefresher interface {
	RefreshCurrentPrices(ctx context.Context) (types.CurrentPrices, error)
}

// PriceWarmer periodically refreshes the cached spot prices so API requests
// are served from cache.
type PriceWarmer struct {
	prices     PriceRefresher
	schedule   string
	timeout    time.Duration
	runOnStart bool
	logger     *logging.Logger
	cron       *cron.Cron
	entry      cron.EntryID

	mu       sync.RWMutex
	ctx      context.Context
	running  bool
	lastRun  time.Time
	lastErr  error
	runs     int
	failures int
}

// PriceWarmerConfig holds configuration for a price warmer
type PriceWarmerConfig struct {
	Prices     PriceRefresher
	Schedule   string        // cron spec; descriptors such as "@every 4m" are accepted
	Timeout    time.Duration // per run
	RunOnStart bool
	Logger     *logging.Logger
}

// PriceWarmerStatus is a snapshot of the warmer's progress
type PriceWarmerStatus struct {
	Running   bool      `json:"running"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"lastRun"`
	NextRun   time.Time `json:"nextRun"`
	LastError string    `json:"lastError,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
}

// NewPriceWarmer creates a price warmer. The schedule is parsed here so a bad
// schedule fails at startup.
func NewPriceWarmer(cfg *PriceWarmerConfig) (*PriceWarmer, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Prices == nil {
		return nil, errors.New("price refresher cannot be nil")
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultPriceWarmSchedule
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultPriceWarmTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("job", "price_warm")

	cl := cronLogger{sugar: logger.Zap().Sugar()}
	w := &PriceWarmer{
		prices:     cfg.Prices,
		schedule:   schedule,
		timeout:    timeout,
		runOnStart: cfg.RunOnStart,
		logger:     logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: context.Background(),
	}

	entry, err := w.cron.AddFunc(schedule, w.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	w.entry = entry

	return w, nil
}

// Start begins running the job on its schedule. ctx is the parent of every
// run's context.
func (w *PriceWarmer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("price warmer is already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	w.logger.WithField("schedule", w.schedule).Info("Starting price warmer")
	w.cron.Start()

	if w.runOnStart {
		go w.tick()
	}
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish or ctx to
// expire.
func (w *PriceWarmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return errors.New("price warmer is not running")
	}
	w.running = false
	w.mu.Unlock()

	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info("Price warmer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Price warmer stop timed out")
		return ctx.Err()
	}
}

func (w *PriceWarmer) tick() {
	w.mu.RLock()
	ctx := w.ctx
	w.mu.RUnlock()

	_ = w.RunOnce(ctx)
}

// RunOnce refreshes the prices a single time. Failures are recorded and
// returned; the schedule is unaffected.
func (w *PriceWarmer) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	prices, err := w.prices.RefreshCurrentPrices(ctx)
	elapsed := time.Since(start)

	w.mu.Lock()
	w.lastRun = start
	w.lastErr = err
	w.runs++
	if err != nil {
		w.failures++
	}
	w.mu.Unlock()

	if err != nil {
		metrics.PriceWarmRuns.WithLabelValues("error").Inc()
		w.logger.WithError(err).
			WithField("duration_ms", elapsed.Milliseconds()).
			Error("Price warm run failed")
		return err
	}

	metrics.PriceWarmRuns.WithLabelValues("success").Inc()
	w.logger.WithFields(map[string]interface{}{
		"coins":       len(prices),
		"duration_ms": elapsed.Milliseconds(),
	}).Debug("Prices refreshed")
	return nil
}

// GetStatus returns the current status of the warmer
func (w *PriceWarmer) GetStatus() *PriceWarmerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := &PriceWarmerStatus{
		Running:  w.running,
		Schedule: w.schedule,
		LastRun:  w.lastRun,
		Runs:     w.runs,
		Failures: w.failures,
	}
	if w.running {
		status.NextRun = w.cron.Entry(w.entry).Next
	}
	if w.lastErr != nil {
		status.LastError = w.lastErr.Error()
	}
	return status
}

// cronLogger routes the scheduler's own messages through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
