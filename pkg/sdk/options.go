package kbsearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "redis", "memory" or "bleve"
	addrs     []string
	password  string
	blevePath string
	keyPrefix string

	analyzer   string
	titleBoost *float64
	boostMode  string
	scoring    string
	skipHits   bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores documents and view counts in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps documents and view counts in process. Data is lost on Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
	})
}

// WithBleve stores documents in an embedded bleve index at path (empty = in memory).
// View counts stay in process.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBleve
		c.blevePath = path
	})
}

// WithKeyPrefix namespaces Redis keys. Use a hash tag such as "{kb}:" on Redis Cluster.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithAnalyzer selects the text analyzer: standard (default), en or simple.
func WithAnalyzer(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.analyzer = name
	})
}

// WithTitleBoost sets the boost for title matches. mode is "multiplicative" (default) or "additive".
func WithTitleBoost(boost float64, mode string) Option {
	return optionFunc(func(c *clientConfig) {
		c.titleBoost = &boost
		c.boostMode = mode
	})
}

// WithScoring selects the similarity function: dot (default) or cosine.
func WithScoring(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoring = name
	})
}

// WithTrackSearchHits controls whether Search counts a view for every document
// it returns. Enabled by default.
func WithTrackSearchHits(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.skipHits = !enabled
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
