package epoch

import (
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Option is the interface that applies a Collector option.
type Option interface {
	// Apply sets the Option value of a Collector.
	Apply(c *Collector)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(c *Collector)

// Apply applies the Collector's option
func (f OptionFunc) Apply(c *Collector) {
	f(c)
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return OptionFunc(func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithCollectThreshold makes Pin try to advance and collect whenever at least n
// destructors are pending. Zero disables the trigger.
func WithCollectThreshold(n int64) Option {
	return OptionFunc(func(c *Collector) {
		c.threshold = n
	})
}

// WithAdvanceInterval makes every n-th outermost pin of a participant try to
// advance and collect. Zero disables the trigger.
func WithAdvanceInterval(n uint64) Option {
	return OptionFunc(func(c *Collector) {
		c.interval = n
	})
}

// WithReclaimPool runs batches of ready destructors on pool instead of the
// collecting goroutine. When the pool rejects a batch it runs inline.
func WithReclaimPool(pool *ants.Pool) Option {
	return OptionFunc(func(c *Collector) {
		c.pool = pool
	})
}
