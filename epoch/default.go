package epoch

var defaultCollector = NewCollector()

// Default returns the process-wide collector used by Pin and Unprotected.
func Default() *Collector {
	return defaultCollector
}

// Pin runs fn pinned on the default collector.
func Pin(fn func(s *Scope)) {
	defaultCollector.Pin(fn)
}

// Unprotected runs fn with an unprotected scope of the default collector.
func Unprotected(fn func(s *Scope)) {
	defaultCollector.Unprotected(fn)
}

// PinFunc runs fn pinned on c and returns its result. A nil c means the default
// collector.
func PinFunc[R any](c *Collector, fn func(s *Scope) R) R {
	if c == nil {
		c = defaultCollector
	}
	var r R
	c.Pin(func(s *Scope) {
		r = fn(s)
	})
	return r
}
