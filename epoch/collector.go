package epoch

import (
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	cacheLinePadSize = 64

	defaultCollectThreshold = 64
	defaultAdvanceInterval  = 128
)

// Collector is the epoch manager. It owns the global epoch, the registry of
// participants and one garbage bag per generation.
type Collector struct {
	epoch atomic.Uint64
	_     [cacheLinePadSize - 8]byte

	participants registry
	bags         [generations]bag

	pending   atomic.Int64
	reclaimed atomic.Uint64
	scanned   atomic.Uint64
	// lastCollect is one past the epoch of the latest opportunistic Collect
	lastCollect atomic.Uint64

	// handles caches released handles for Pin
	handles sync.Pool

	threshold int64
	interval  uint64
	logger    *zap.Logger
	pool      *ants.Pool
}

// Stats is a point-in-time view of a Collector.
type Stats struct {
	Epoch        uint64
	Pending      int64
	Reclaimed    uint64
	Scanned      uint64
	Participants int64
	Pinned       int
}

// NewCollector creates a Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		threshold: defaultCollectThreshold,
		interval:  defaultAdvanceInterval,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	c.handles.New = func() any {
		return newHandle(c)
	}
	return c
}

// Register binds the calling goroutine to a participant record, reusing an
// idle one when possible. Call Release on the handle when done.
func (c *Collector) Register() *Handle {
	return newHandle(c)
}

// Pin runs fn with a pinned scope and unpins once fn returns. Every operation
// on a collection managed by c goes through Pin.
//
// Pin does not nest: calling it again from inside fn claims a second
// participant, and the outer one keeps holding back the epoch. Code that pins
// reentrantly should Register a Handle and call Handle.Pin, whose pins nest.
func (c *Collector) Pin(fn func(s *Scope)) {
	h := c.handles.Get().(*Handle)
	s := h.Pin()
	defer func() {
		s.Unpin()
		c.handles.Put(h)
	}()
	fn(s)
}

// Unprotected runs fn with a scope that bypasses registration. Nodes reached
// through it may be accessed and destroyed directly, which is only sound when
// the caller has exclusive access to them.
func (c *Collector) Unprotected(fn func(s *Scope)) {
	fn(&Scope{c: c})
}

// Epoch returns the current global epoch.
func (c *Collector) Epoch() uint64 {
	return c.epoch.Load()
}

// TryAdvance moves the global epoch one generation forward if every pinned
// participant has already observed the current one.
func (c *Collector) TryAdvance() bool {
	g := c.epoch.Load()
	lagging := false
	c.participants.each(func(p *participant) bool {
		if e := p.epoch.Load(); e != inactive && e != g {
			lagging = true
			return false
		}
		return true
	})
	if lagging || !c.epoch.CompareAndSwap(g, g+1) {
		return false
	}
	c.logger.Debug("epoch advanced", zap.Uint64("epoch", g+1))
	return true
}

// Collect reclaims the bag of the generation two epochs behind the current
// one and returns how many destructors it released. Bags of the two most
// recent generations are left untouched, so a stalled epoch costs nothing.
func (c *Collector) Collect() int {
	return c.collect(c.epoch.Load())
}

func (c *Collector) collect(g uint64) int {
	b := &c.bags[(g+1)%generations]
	var ready []func()
	scanned := uint64(0)
	for e := b.take(); e != nil; {
		next := e.next
		scanned++
		// a retirer racing an advance may have tagged its entry g+1
		if e.epoch+2 <= g {
			ready = append(ready, e.destroy)
		} else {
			b.push(e)
		}
		e = next
	}
	c.scanned.Add(scanned)
	if len(ready) == 0 {
		return 0
	}

	c.pending.Add(-int64(len(ready)))
	c.reclaimed.Add(uint64(len(ready)))
	c.reclaim(ready)
	c.logger.Debug("garbage reclaimed",
		zap.Uint64("epoch", g),
		zap.Int("count", len(ready)))
	return len(ready)
}

// maybeCollect advances the epoch if it can and collects at most once per
// epoch, whichever participant gets there first.
func (c *Collector) maybeCollect() {
	c.TryAdvance()
	g := c.epoch.Load()
	last := c.lastCollect.Load()
	if last == g+1 || !c.lastCollect.CompareAndSwap(last, g+1) {
		return
	}
	c.collect(g)
}

// Flush advances and collects until nothing is pending or a pinned participant
// stops the epoch from moving. It returns how many destructors it released.
func (c *Collector) Flush() int {
	total := 0
	for i := 0; i <= generations && c.pending.Load() > 0; i++ {
		advanced := c.TryAdvance()
		total += c.Collect()
		if !advanced {
			break
		}
	}
	return total
}

// Stats returns a snapshot of the collector's bookkeeping.
func (c *Collector) Stats() Stats {
	pinned := 0
	c.participants.each(func(p *participant) bool {
		if p.pinned() {
			pinned++
		}
		return true
	})
	return Stats{
		Epoch:        c.epoch.Load(),
		Pending:      c.pending.Load(),
		Reclaimed:    c.reclaimed.Load(),
		Scanned:      c.scanned.Load(),
		Participants: c.participants.size.Load(),
		Pinned:       pinned,
	}
}

func (c *Collector) retire(destroy func()) {
	g := c.epoch.Load()
	c.bags[g%generations].push(&garbage{epoch: g, destroy: destroy})
	c.pending.Add(1)
}

func (c *Collector) reclaim(batch []func()) {
	run := func() {
		for _, destroy := range batch {
			destroy()
		}
	}
	if c.pool == nil {
		run()
		return
	}
	if err := c.pool.Submit(run); err != nil {
		c.logger.Debug("reclaim pool rejected batch, running inline", zap.Error(err))
		run()
	}
}

func (c *Collector) shouldCollect(pins uint64) bool {
	if c.interval > 0 && pins%c.interval == 0 {
		return true
	}
	return c.threshold > 0 && c.pending.Load() >= c.threshold
}
