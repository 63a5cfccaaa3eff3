package coco

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"
)

// Pool represents the thread-pool for performing any kind of task ( type -> func() {} )
type Pool struct {
	currSize atomic.Uint64
	_p1      [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	maxSize  uint64
	_p2      [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	// using a stack keeps cpu caches warm based on FILO property
	workerQ *Stack[*worker]

	done     chan struct{}
	released atomic.Bool
	wg       sync.WaitGroup
	logger   *zap.Logger

	// mu orders worker spawns against Release so wg.Add never races wg.Wait
	mu sync.Mutex
}

// a parked worker goroutine waiting for its next task
type worker struct {
	task chan func()
}

// NewPool returns a pool running at most size goroutines. A size of zero
// means GOMAXPROCS.
func NewPool(size uint64, opts ...Option) *Pool {
	if size == 0 {
		size = uint64(runtime.GOMAXPROCS(0))
	}
	cfg := newConfig(opts...)
	return &Pool{
		maxSize: size,
		workerQ: NewStack[*worker](WithCollector(cfg.collector)),
		done:    make(chan struct{}),
		logger:  cfg.logger,
	}
}

// Submit submits a new task to the pool
// tries to re-use existing goroutine if available else it spawns a new goroutine
// as long as the pool is below capacity, otherwise it yields until a worker frees up
func (p *Pool) Submit(task func()) error {
	for {
		if p.released.Load() {
			return ErrPoolClosed
		}
		if w, ok := p.workerQ.Pop(); ok {
			// a worker is only on the stack while its channel is empty
			w.task <- task
			return nil
		}
		if n := p.currSize.Load(); n < p.maxSize {
			if p.currSize.CompareAndSwap(n, n+1) {
				return p.spawn(task)
			}
			continue
		}
		runtime.Gosched()
	}
}

// Running returns the number of worker goroutines spawned so far.
func (p *Pool) Running() int {
	return int(p.currSize.Load())
}

// Cap returns the capacity of the pool.
func (p *Pool) Cap() int {
	return int(p.maxSize)
}

// Release stops every worker once its current task is done and waits for them
// to exit. Tasks submitted concurrently with Release may be dropped.
func (p *Pool) Release() {
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
func (p *Pool) spawn(task func()) error {
	p.mu.Lock()
	if p.released.Load() {
		p.mu.Unlock()
		p.currSize.Add(^uint64(0))
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()
	go p.loopQ(&worker{task: make(chan func(), 1)}, task)
	return nil
}

// loopQ is the looping function for every worker goroutine
func (p *Pool) loopQ(w *worker, task func()) {
	defer p.wg.Done()
	for {
		p.run(task)
		// notify availability by pushing worker reference into stack
		p.workerQ.Push(w)
		select {
		case task = <-w.task:
		case <-p.done:
			select {
			case task = <-w.task:
				p.run(task)
			default:
			}
			return
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	task()
}
