// Package views records document views as fire-and-forget counter writes.
package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

// Config bounds the background work.
type Config struct {
	// MaxInFlight caps concurrent counter writes; excess writes are dropped.
	MaxInFlight int64
	// MaxAttempts per write, including the first one.
	MaxAttempts int
	// Timeout covers all attempts of one write.
	Timeout time.Duration
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxInFlight:    256,
		MaxAttempts:    3,
		Timeout:        500 * time.Millisecond,
		InitialBackoff: 20 * time.Millisecond,
	}
}

// Tracker issues counter writes in the background. Callers never wait on the
// counter store and never see its errors. Retries may double-count a view.
type Tracker struct {
	counter Counter
	cfg     Config
	sem     *semaphore.Weighted
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Tracker. Zero config fields fall back to DefaultConfig.
func New(c Counter, cfg Config, logger *zap.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		counter: c,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		logger:  logger.Named("views"),
	}
}

// Track schedules one increment per id.
func (t *Tracker) Track(ids ...string) {
	for _, id := range ids {
		t.spawn("increment", id, t.counter.Increment)
	}
}

// Forget schedules removal of the counter of a deleted document.
func (t *Tracker) Forget(id string) {
	t.spawn("forget", id, t.counter.Forget)
}

// Close stops accepting work and waits for in-flight writes or ctx expiry.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for view writes: %w", ctx.Err())
	}
}

func (t *Tracker) spawn(op, id string, fn func(context.Context, string) error) {
	t.mu.Lock()
	if t.closed || !t.sem.TryAcquire(1) {
		t.mu.Unlock()
		t.record(op, metrics.ViewDropped)
		t.logger.Debug("view write dropped", zap.String("op", op), zap.String("id", id))
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer t.sem.Release(1)
		t.run(op, id, fn)
	}()
}

func (t *Tracker) run(op, id string, fn func(context.Context, string) error) {
	// Detached from the request: the response may already be written.
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.cfg.InitialBackoff
	eb.MaxElapsedTime = t.cfg.Timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(t.cfg.MaxAttempts-1)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return fn(ctx, id)
	}, policy)

	switch {
	case err != nil:
		t.record(op, metrics.ViewFailed)
		t.logger.Warn("view write failed",
			zap.String("op", op), zap.String("id", id),
			zap.Int("attempts", attempts), zap.Error(err))
	case attempts > 1:
		t.record(op, metrics.ViewRetried)
	default:
		t.record(op, metrics.ViewOK)
	}
}

func (t *Tracker) record(op, result string) {
	if op == "increment" {
		metrics.ViewIncrementsTotal.WithLabelValues(result).Inc()
	}
}
