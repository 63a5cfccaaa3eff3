package coco

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"
)

// PoolWithFunc runs the same task on every value handed to Invoke.
type PoolWithFunc[T any] struct {
	currSize atomic.Uint64
	_p1      [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	maxSize  uint64
	_p2      [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	task     func(T)
	_p3      [cacheLinePadSize - unsafe.Sizeof(func() {})]byte
	workerQ  *Stack[*dataPoint[T]]

	done     chan struct{}
	released atomic.Bool
	wg       sync.WaitGroup
	logger   *zap.Logger

	// mu orders worker spawns against Release so wg.Add never races wg.Wait
	mu sync.Mutex
}

type dataPoint[T any] struct {
	data chan T
}

// NewPoolWithFunc returns a pool running task on at most size goroutines. A
// size of zero means GOMAXPROCS.
func NewPoolWithFunc[T any](size uint64, task func(T), opts ...Option) *PoolWithFunc[T] {
	if size == 0 {
		size = uint64(runtime.GOMAXPROCS(0))
	}
	cfg := newConfig(opts...)
	return &PoolWithFunc[T]{
		maxSize: size,
		task:    task,
		workerQ: NewStack[*dataPoint[T]](WithCollector(cfg.collector)),
		done:    make(chan struct{}),
		logger:  cfg.logger,
	}
}

// Invoke hands value to an idle worker, spawning one if the pool is below
// capacity, otherwise it yields until a worker frees up
func (p *PoolWithFunc[T]) Invoke(value T) error {
	for {
		if p.released.Load() {
			return ErrPoolClosed
		}
		if d, ok := p.workerQ.Pop(); ok {
			d.data <- value
			return nil
		}
		if n := p.currSize.Load(); n < p.maxSize {
			if p.currSize.CompareAndSwap(n, n+1) {
				return p.spawn(value)
			}
			continue
		}
		runtime.Gosched()
	}
}

// Running returns the number of worker goroutines spawned so far.
func (p *PoolWithFunc[T]) Running() int {
	return int(p.currSize.Load())
}

// Release stops every worker once its current task is done and waits for them
// to exit. Values invoked concurrently with Release may be dropped.
func (p *PoolWithFunc[T]) Release() {
	p.mu.Lock()
	if !p.released.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
	for {
		if _, ok := p.workerQ.Pop(); !ok {
			return
		}
	}
}

// spawn starts a worker for the slot already reserved in currSize, giving the
// slot back if the pool was released in the meantime.
func (p *PoolWithFunc[T]) spawn(value T) error {
	p.mu.Lock()
	if p.released.Load() {
		p.mu.Unlock()
		p.currSize.Add(^uint64(0))
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()
	go p.loopQ(&dataPoint[T]{data: make(chan T, 1)}, value)
	return nil
}

func (p *PoolWithFunc[T]) loopQ(d *dataPoint[T], value T) {
	defer p.wg.Done()
	for {
		p.run(value)
		p.workerQ.Push(d)
		select {
		case value = <-d.data:
		case <-p.done:
			select {
			case value = <-d.data:
				p.run(value)
			default:
			}
			return
		}
	}
}

func (p *PoolWithFunc[T]) run(value T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	p.task(value)
}
