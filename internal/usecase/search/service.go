package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/vector"
	"github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

// Config tunes the query pipeline.
type Config struct {
	Policy  Policy
	Scoring vector.Scoring
	// StoreTimeout bounds candidate retrieval. Exceeding it fails the query.
	StoreTimeout time.Duration
	// CounterTimeout bounds the view count fetch. Exceeding it degrades the query.
	CounterTimeout time.Duration
	// SkipHitTracking stops counting a view for every document on a returned page.
	SkipHitTracking bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Policy:         DefaultPolicy(),
		Scoring:        vector.ScoringDot,
		StoreTimeout:   2 * time.Second,
		CounterTimeout: 100 * time.Millisecond,
	}
}

// Service answers free-text queries with a ranked page.
type Service struct {
	analyzer Analyzer
	repo     Repository
	counters ViewCounter
	tracker  ViewTracker
	scorer   vector.Scorer
	cfg      Config
}

// New creates a search service. tracker can be nil (no view tracking).
func New(a Analyzer, repo Repository, counters ViewCounter, tracker ViewTracker, cfg Config) (*Service, error) {
	def := DefaultConfig()
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.CounterTimeout <= 0 {
		cfg.CounterTimeout = def.CounterTimeout
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("ranking policy: %w", err)
	}
	scorer, err := vector.NewScorer(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	return &Service{
		analyzer: a,
		repo:     repo,
		counters: counters,
		tracker:  tracker,
		scorer:   scorer,
		cfg:      cfg,
	}, nil
}

// Search runs analyze, retrieve, score, fetch views, rank, paginate.
// Every overlapping candidate is ranked; the page is cut only after ranking.
// Only retrieval can fail the query; it returns a *StageError wrapping domain.ErrUnavailable.
// Analysis failures yield an empty page. Counter failures yield a degraded page.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	log := logger.ForComponent(ctx, "search")

	q, err := s.analyzer.Analyze(req.Query())
	if err != nil {
		metrics.AnalysisFailuresTotal.Inc()
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		log.Warn("query analysis failed, returning empty result", zap.Error(err))
		return result.Page{}, nil
	}
	if q.IsEmpty() {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return result.Page{}, nil
	}

	candidates, err := s.retrieve(ctx, q, req)
	if err != nil {
		metrics.SearchStageFailuresTotal.WithLabelValues(string(StageCandidatesRetrieved)).Inc()
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return result.Page{}, &StageError{
			Stage: StageCandidatesRetrieved,
			Err:   fmt.Errorf("%w: %w", domain.ErrUnavailable, err),
		}
	}
	metrics.SearchCandidates.Observe(float64(len(candidates)))

	scored := Score(s.scorer, q, candidates)
	if len(scored) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return result.Page{}, nil
	}

	views, degraded := s.fetchViews(ctx, log, scored)
	ranked := Rank(scored, views, s.cfg.Policy)
	page := paginate(ranked, req.Offset(), req.Limit())
	page.Degraded = degraded

	if !s.cfg.SkipHitTracking && s.tracker != nil && len(page.Results) > 0 {
		s.tracker.Track(page.IDs()...)
	}

	outcome := metrics.OutcomeOK
	if degraded {
		outcome = metrics.OutcomeDegraded
	}
	metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	log.Debug("search completed",
		zap.Int("tokens", len(q)),
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", page.Total),
		zap.Int("returned", len(page.Results)),
		zap.Bool("degraded", degraded),
	)
	return page, nil
}

func (s *Service) retrieve(ctx context.Context, q vector.Sparse, req *request.Request) ([]result.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	candidates, err := s.repo.Search(ctx, q, req.Filters())
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	return candidates, nil
}

// fetchViews batch-reads counts for exactly the scored ids. Any failure, including
// the timeout, degrades to an empty snapshot instead of failing the query.
func (s *Service) fetchViews(ctx context.Context, log *zap.Logger, scored []result.Scored) (map[string]int64, bool) {
	ids := make([]string, len(scored))
	for i, c := range scored {
		ids[i] = c.ID
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CounterTimeout)
	defer cancel()

	views, err := s.counters.GetMany(ctx, ids)
	if err != nil {
		metrics.SearchDegradedTotal.Inc()
		log.Warn("view counts unavailable, ranking by relevance only",
			zap.Int("candidates", len(ids)), zap.Error(err))
		return map[string]int64{}, true
	}
	return views, false
}

func paginate(ranked []result.Ranked, offset, limit int) result.Page {
	page := result.Page{Total: len(ranked)}
	if offset >= len(ranked) {
		page.Results = []result.Ranked{}
		return page
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	page.Results = ranked[offset:end]
	return page
}
