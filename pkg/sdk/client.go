package kbsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/analysis"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/kbsearch/internal/db/redis"
	domdoc "github.com/kailas-cloud/kbsearch/internal/domain/document"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
	"github.com/kailas-cloud/kbsearch/internal/repository/bleveindex"
	counterrepo "github.com/kailas-cloud/kbsearch/internal/repository/counter"
	documentrepo "github.com/kailas-cloud/kbsearch/internal/repository/document"
	documentuc "github.com/kailas-cloud/kbsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/kbsearch/internal/usecase/search"
	"github.com/kailas-cloud/kbsearch/internal/usecase/views"
)

const (
	driverRedis  = "redis"
	driverMemory = "memory"
	driverBleve  = "bleve"

	defaultReadinessTimeout = 10 * time.Second
)

// Internal interfaces for substitution in tests.
type documentUseCase interface {
	Create(ctx context.Context, id, title, body, locale string) (domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Update(ctx context.Context, id, title, body, locale string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	ViewCount(ctx context.Context, id string) (int64, bool)
}

type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
}

type documentBackend interface {
	documentuc.Repository
	searchuc.Repository
}

// Client is the kbsearch SDK entry point.
type Client struct {
	closers   []func() error
	tracker   *views.Tracker
	docSvc    documentUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. Without a backend option it keeps everything in memory.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: driverMemory}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	analyzer, err := analysis.New(cfg.analyzer)
	if err != nil {
		return nil, fmt.Errorf("kbsearch: %w", err)
	}

	c := &Client{obs: obs}
	var (
		docs     documentBackend
		docsPing healthuc.Pinger
		kv       db.Store
	)
	switch cfg.driver {
	case driverRedis:
		if len(cfg.addrs) == 0 {
			return nil, errors.New("kbsearch: redis address required")
		}
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("kbsearch: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("kbsearch: database not ready: %w", err)
		}
		c.closers = append(c.closers, func() error { store.Close(); return nil })
		docs, docsPing, kv = documentrepo.New(store, cfg.keyPrefix), store, store
	case driverMemory:
		store := memory.NewStore()
		docs, docsPing, kv = documentrepo.New(store, cfg.keyPrefix), store, store
	case driverBleve:
		idx, err := bleveindex.Open(cfg.blevePath, analyzer.Name())
		if err != nil {
			return nil, fmt.Errorf("kbsearch: %w", err)
		}
		c.closers = append(c.closers, idx.Close)
		docs, docsPing, kv = idx, idx, memory.NewStore()
	default:
		return nil, fmt.Errorf("kbsearch: unknown driver %q", cfg.driver)
	}

	if err := c.wire(cfg, analyzer, docs, docsPing, kv); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(
	cfg *clientConfig, analyzer *analysis.Analyzer, docs documentBackend, docsPing healthuc.Pinger, kv db.Store,
) error {
	counters := counterrepo.New(kv, cfg.keyPrefix)
	c.tracker = views.New(counters, views.DefaultConfig(), zap.NewNop())

	policy := searchuc.DefaultPolicy()
	if cfg.titleBoost != nil {
		policy.TitleBoost = *cfg.titleBoost
	}
	if cfg.boostMode != "" {
		policy.BoostMode = searchuc.BoostMode(cfg.boostMode)
	}
	scfg := searchuc.DefaultConfig()
	scfg.Policy = policy
	scfg.Scoring = vector.Scoring(cfg.scoring)
	scfg.SkipHitTracking = cfg.skipHits

	searchSvc, err := searchuc.New(analyzer, docs, counters, c.tracker, scfg)
	if err != nil {
		return fmt.Errorf("kbsearch: %w", err)
	}
	c.searchSvc = searchSvc
	c.docSvc = documentuc.New(docs, analyzer, c.tracker, counters)
	c.healthSvc = healthuc.New(docsPing, counters)
	return nil
}

// Close waits for pending view writes (bounded by ctx) and releases all resources.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.tracker != nil {
		if err := c.tracker.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Documents returns the document service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.docSvc, obs: c.obs}
}
