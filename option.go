package coco

import (
	"go.uber.org/zap"

	"github.com/alphadose/coco/epoch"
)

type config struct {
	collector *epoch.Collector
	logger    *zap.Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		collector: epoch.Default(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Option is the interface that applies a configuration option to stacks and
// pools.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *config)

// Apply applies the option
func (f OptionFunc) Apply(cfg *config) {
	f(cfg)
}

// WithCollector sets the epoch collector that reclaims popped nodes. Stacks
// use the process-wide collector by default.
func WithCollector(c *epoch.Collector) Option {
	return OptionFunc(func(cfg *config) {
		if c != nil {
			cfg.collector = c
		}
	})
}

// WithLogger sets the logger pools report recovered panics to.
func WithLogger(logger *zap.Logger) Option {
	return OptionFunc(func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	})
}
