package coco

import "sync"

// freeList is a typed object pool for nodes. Only reclaimed nodes go back into
// it, so a node is never handed out while a concurrent reader can still see it.
type freeList[T any] struct {
	p sync.Pool
}

func newFreeList[T any]() *freeList[T] {
	return &freeList[T]{
		p: sync.Pool{
			New: func() any { return new(T) },
		},
	}
}

func (f *freeList[T]) Get() *T {
	return f.p.Get().(*T)
}

func (f *freeList[T]) Put(v *T) {
	f.p.Put(v)
}
