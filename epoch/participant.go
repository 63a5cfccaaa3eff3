package epoch

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// inactive is the local epoch of a participant that is not pinned.
const inactive = ^uint64(0)

// participant is one entry of the collector's registry. Records are never
// unlinked; a released record is claimed again by the next Register.
type participant struct {
	// epoch is the global epoch observed at pin time, or inactive.
	epoch atomic.Uint64
	inUse atomic.Bool
	// next is written once before the record is published.
	next *participant

	// owner-only fields
	depth uint32
	pins  uint64
}

func (p *participant) pinned() bool {
	return p.epoch.Load() != inactive
}

// registry is a push-only lock-free list of participants.
type registry struct {
	head atomic.Pointer[participant]
	size atomic.Int64
}

// claim returns an idle record, allocating and publishing one when every
// existing record is taken.
func (r *registry) claim() *participant {
	for p := r.head.Load(); p != nil; p = p.next {
		if !p.inUse.Load() && p.inUse.CompareAndSwap(false, true) {
			return p
		}
	}

	p := &participant{}
	p.epoch.Store(inactive)
	p.inUse.Store(true)
	for {
		head := r.head.Load()
		p.next = head
		if r.head.CompareAndSwap(head, p) {
			r.size.Add(1)
			return p
		}
	}
}

func (r *registry) each(fn func(*participant) bool) {
	for p := r.head.Load(); p != nil; p = p.next {
		if !fn(p) {
			return
		}
	}
}

// Handle binds a goroutine to a participant record. A Handle must not be
// shared between goroutines that use it concurrently.
type Handle struct {
	c *Collector
	p *participant
	// gen counts outermost pins; a Scope from an earlier one is stale
	gen     uint64
	current *Scope
	cleanup runtime.Cleanup
}

func newHandle(c *Collector) *Handle {
	h := &Handle{c: c, p: c.participants.claim()}
	// a handle dropped without Release (e.g. evicted from the collector's
	// handle cache) hands its record back
	h.cleanup = runtime.AddCleanup(h, func(p *participant) {
		p.inUse.Store(false)
	}, h.p)
	return h
}

// Pin marks the participant active at the current global epoch. Pins nest: only
// the outermost Unpin makes the participant inactive again.
func (h *Handle) Pin() *Scope {
	p := h.mustRecord()
	p.depth++
	if p.depth > 1 {
		return h.current
	}

	g := h.c.epoch.Load()
	for {
		p.epoch.Store(g)
		now := h.c.epoch.Load()
		if now == g {
			break
		}
		g = now
	}

	h.gen++
	h.current = &Scope{c: h.c, h: h, gen: h.gen}

	p.pins++
	if h.c.shouldCollect(p.pins) {
		h.c.maybeCollect()
	}
	return h.current
}

// IsPinned reports whether the handle holds at least one pin.
func (h *Handle) IsPinned() bool {
	return h.p != nil && h.p.depth > 0
}

// Release gives the participant record back to the collector. The handle must
// not be pinned and is unusable afterwards.
func (h *Handle) Release() {
	if h.p == nil {
		return
	}
	if h.p.depth > 0 {
		panic(fmt.Errorf("%w: release of a pinned handle", ErrOwnership))
	}
	h.cleanup.Stop()
	h.p.inUse.Store(false)
	h.p = nil
}

func (h *Handle) unpin() {
	p := h.mustRecord()
	if p.depth == 0 {
		panic(fmt.Errorf("%w: unpin without pin", ErrOwnership))
	}
	p.depth--
	if p.depth == 0 {
		p.epoch.Store(inactive)
		h.current = nil
	}
}

func (h *Handle) mustRecord() *participant {
	if h.p == nil {
		panic(fmt.Errorf("%w: use of a released handle", ErrOwnership))
	}
	return h.p
}
