package epoch

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrOwnership is wrapped by every panic raised when a pointer is used in a
// lifecycle state that does not allow it.
var ErrOwnership = errors.New("epoch: ownership violation")

type ownership uint32

const (
	unpublished ownership = iota
	published
	retired
	reclaimed
)

func (o ownership) String() string {
	switch o {
	case unpublished:
		return "unpublished"
	case published:
		return "published"
	case retired:
		return "retired"
	case reclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

// Shared is a pointer borrowed from an Atomic. It stays valid until the Scope
// that loaded it is unpinned.
type Shared[T any] struct {
	ptr *T
}

// Null returns the null Shared pointer.
func Null[T any]() Shared[T] {
	return Shared[T]{}
}

// IsNil reports whether the pointer is null.
func (s Shared[T]) IsNil() bool {
	return s.ptr == nil
}

// AsRef dereferences the pointer. It returns nil for a null pointer.
func (s Shared[T]) AsRef() *T {
	return s.ptr
}

// AsRaw exposes the address without any protection guarantee. Only use it
// within Unprotected.
func (s Shared[T]) AsRaw() *T {
	return s.ptr
}

// Owned is a move-only handle to an allocation that nobody else can see yet.
// Once an Atomic publishes it the handle is spent and any further use panics.
type Owned[T any] struct {
	ptr   *T
	state ownership
}

// NewOwned wraps a fresh, unshared allocation.
func NewOwned[T any](v *T) *Owned[T] {
	if v == nil {
		panic(fmt.Errorf("%w: owned pointer to nil", ErrOwnership))
	}
	return &Owned[T]{ptr: v}
}

// Deref gives exclusive access to the allocation until it is published.
func (o *Owned[T]) Deref() *T {
	o.expect(unpublished, "deref")
	return o.ptr
}

// Published reports whether ownership was already handed to a structure.
func (o *Owned[T]) Published() bool {
	return o.state != unpublished
}

func (o *Owned[T]) publish() *T {
	o.expect(unpublished, "publish")
	p := o.ptr
	o.ptr, o.state = nil, published
	return p
}

func (o *Owned[T]) reclaim() *T {
	o.expect(retired, "reclaim")
	p := o.ptr
	o.ptr, o.state = nil, reclaimed
	return p
}

func (o *Owned[T]) expect(state ownership, op string) {
	if o.state != state {
		panic(fmt.Errorf("%w: %s on %s pointer", ErrOwnership, op, o.state))
	}
}

// Atomic is a shared slot holding a pointer to T or null. Many goroutines can
// read it; writes to published slots go through CompareAndSwap.
//
// Every access goes through sync/atomic, which is sequentially consistent: a
// goroutine that observes a new pointer also observes every write made to the
// pointee before it was published.
type Atomic[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the current pointer, valid for the lifetime of s.
func (a *Atomic[T]) Load(s *Scope) Shared[T] {
	s.expectLive()
	return Shared[T]{ptr: a.p.Load()}
}

// Store writes v unconditionally. It is meant for slots no other goroutine can
// see yet, such as the link of a node that has not been published.
func (a *Atomic[T]) Store(v Shared[T]) {
	a.p.Store(v.ptr)
}

// StoreOwned publishes o unconditionally and returns the shared pointer.
func (a *Atomic[T]) StoreOwned(o *Owned[T]) Shared[T] {
	p := o.publish()
	a.p.Store(p)
	return Shared[T]{ptr: p}
}

// CompareAndSwap replaces current with next if the slot still holds current.
// On failure it returns the value the slot holds now. The swap may be reported
// as failed even if nothing changed, so callers always retry in a loop.
func (a *Atomic[T]) CompareAndSwap(current, next Shared[T], s *Scope) (Shared[T], bool) {
	s.expectLive()
	if a.p.CompareAndSwap(current.ptr, next.ptr) {
		return next, true
	}
	return Shared[T]{ptr: a.p.Load()}, false
}

// CompareAndSwapOwned installs o in place of current. On success ownership moves
// to the structure and the returned pointer is the published node. On failure
// the caller keeps o untouched, together with the value the slot holds now, so
// it can retry without allocating again.
func (a *Atomic[T]) CompareAndSwapOwned(current Shared[T], o *Owned[T], s *Scope) (Shared[T], bool) {
	s.expectLive()
	o.expect(unpublished, "publish")
	if a.p.CompareAndSwap(current.ptr, o.ptr) {
		return Shared[T]{ptr: o.publish()}, true
	}
	return Shared[T]{ptr: a.p.Load()}, false
}
