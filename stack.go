package coco

import (
	"sync/atomic"
	"unsafe"

	"github.com/alphadose/coco/epoch"
)

const cacheLinePadSize = 64

// Destroyer is implemented by values that hold resources. Close calls Destroy
// once for every value still in the stack. A popped value belongs to the
// caller, who is responsible for destroying it.
type Destroyer interface {
	Destroy()
}

// a single node in this stack
type node[T any] struct {
	value T
	next  epoch.Atomic[node[T]]
}

// Stack is a lock-free LIFO stack (Treiber stack) that supports many
// producers and consumers at the same time.
//
// Popped nodes are recycled through a free list, but only once the epoch
// collector has proven that no concurrent Pop can still be reading them.
type Stack[T any] struct {
	head epoch.Atomic[node[T]]
	_    [cacheLinePadSize - unsafe.Sizeof(uintptr(0))]byte

	collector *epoch.Collector
	nodes     *freeList[node[T]]
	closed    atomic.Bool
}

// NewStack returns a new, empty stack
func NewStack[T any](opts ...Option) *Stack[T] {
	cfg := newConfig(opts...)
	return &Stack[T]{
		collector: cfg.collector,
		nodes:     newFreeList[node[T]](),
	}
}

// IsEmpty reports whether the stack holds no value.
func (s *Stack[T]) IsEmpty() bool {
	s.expectOpen()
	return epoch.PinFunc(s.collector, func(scope *epoch.Scope) bool {
		return s.head.Load(scope).IsNil()
	})
}

// Push pushes a value on top of the stack
func (s *Stack[T]) Push(value T) {
	s.expectOpen()
	n := s.nodes.Get()
	n.value = value
	n.next.Store(epoch.Null[node[T]]())
	item := epoch.NewOwned(n)

	s.collector.Pin(func(scope *epoch.Scope) {
		head := s.head.Load(scope)
		for {
			item.Deref().next.Store(head)
			current, ok := s.head.CompareAndSwapOwned(head, item, scope)
			if ok {
				return
			}
			head = current
		}
	})
}

// Pop pops value from the top of the stack. It returns false if the stack is
// empty.
func (s *Stack[T]) Pop() (value T, ok bool) {
	s.expectOpen()
	s.collector.Pin(func(scope *epoch.Scope) {
		head := s.head.Load(scope)
		for {
			top := head.AsRef()
			if top == nil {
				return
			}
			next := top.next.Load(scope)
			current, swapped := s.head.CompareAndSwap(head, next, scope)
			if !swapped {
				head = current
				continue
			}
			// only the goroutine that unlinked top gets here, and top stays
			// intact until every pinned reader is gone
			value, ok = top.value, true
			epoch.Retire(scope, head, s.recycle)
			return
		}
	})
	return
}

// Peek returns the value on top of the stack without removing it.
func (s *Stack[T]) Peek() (value T, ok bool) {
	s.expectOpen()
	s.collector.Pin(func(scope *epoch.Scope) {
		if top := s.head.Load(scope).AsRef(); top != nil {
			value, ok = top.value, true
		}
	})
	return
}

// Close destroys every value left in the stack. The caller must make sure no
// other goroutine uses the stack anymore; any later call panics with
// ErrStackClosed. Calling Close twice is a no-op.
func (s *Stack[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.collector.Unprotected(func(scope *epoch.Scope) {
		curr := s.head.Load(scope)
		s.head.Store(epoch.Null[node[T]]())
		for !curr.IsNil() {
			next := curr.AsRaw().next.Load(scope)
			// runs right away in an unprotected scope
			epoch.Retire(scope, curr, s.destroy)
			curr = next
		}
	})
}

func (s *Stack[T]) destroy(n *node[T]) {
	if d, ok := any(n.value).(Destroyer); ok {
		d.Destroy()
	}
	s.recycle(n)
}

func (s *Stack[T]) recycle(n *node[T]) {
	var zero T
	n.value = zero
	n.next.Store(epoch.Null[node[T]]())
	s.nodes.Put(n)
}

func (s *Stack[T]) expectOpen() {
	if s.closed.Load() {
		panic(ErrStackClosed)
	}
}
