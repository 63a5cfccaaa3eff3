package epoch

import "fmt"

// Scope proves that the goroutine holding it is pinned. Any node it loads from
// an Atomic stays valid until Unpin.
//
// A Scope obtained from Unprotected belongs to no participant: it gives direct
// access to nodes and runs deferred destructors immediately. It is only sound
// when nothing else can reach the nodes involved.
type Scope struct {
	c   *Collector
	h   *Handle
	gen uint64
}

// Collector returns the collector the scope belongs to.
func (s *Scope) Collector() *Collector {
	return s.c
}

// IsUnprotected reports whether the scope bypasses registration.
func (s *Scope) IsUnprotected() bool {
	return s.h == nil
}

// Epoch returns the local epoch the scope is pinned at.
func (s *Scope) Epoch() uint64 {
	if s.h == nil {
		return s.c.epoch.Load()
	}
	return s.h.mustRecord().epoch.Load()
}

// Unpin releases one level of pinning.
func (s *Scope) Unpin() {
	if s.h == nil {
		return
	}
	s.expectLive()
	s.h.unpin()
}

// DeferFree queues destroy until no pinned participant can still observe the
// memory it releases. It does no other work. In an unprotected scope destroy
// runs right away.
func (s *Scope) DeferFree(destroy func()) {
	s.expectLive()
	if s.h == nil {
		destroy()
		return
	}
	s.c.retire(destroy)
}

func (s *Scope) expectLive() {
	if s == nil {
		panic(fmt.Errorf("%w: nil scope", ErrOwnership))
	}
	if s.h != nil && (!s.h.IsPinned() || s.gen != s.h.gen) {
		panic(fmt.Errorf("%w: scope used after unpin", ErrOwnership))
	}
}

// Retire hands a pointer detached from its structure to the garbage bag. The
// caller must have unlinked it with a successful CompareAndSwap, which makes it
// the single owner. destroy runs exactly once, with exclusive access, when the
// node can no longer be observed.
func Retire[T any](s *Scope, p Shared[T], destroy func(*T)) {
	if p.IsNil() {
		panic(fmt.Errorf("%w: retire of a null pointer", ErrOwnership))
	}
	o := &Owned[T]{ptr: p.ptr, state: retired}
	s.DeferFree(func() {
		destroy(o.reclaim())
	})
}
