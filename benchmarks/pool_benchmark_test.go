package test

import (
	"sync"
	"testing"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/panjf2000/ants/v2"

	"github.com/alphadose/coco"
)

const (
	RunTimes           = 100000
	BenchParam         = 10
	PoolSize           = 50000
	DefaultExpiredTime = 10 * time.Second
)

func demoFunc() {
	time.Sleep(time.Duration(BenchParam) * time.Millisecond)
}

func BenchmarkGoroutines(b *testing.B) {
	var wg sync.WaitGroup

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			go func() {
				demoFunc()
				wg.Done()
			}()
		}
		wg.Wait()
	}
	b.StopTimer()
}

func BenchmarkAntsPool(b *testing.B) {
	var wg sync.WaitGroup
	p, _ := ants.NewPool(PoolSize, ants.WithExpiryDuration(DefaultExpiredTime))
	defer p.Release()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			_ = p.Submit(func() {
				demoFunc()
				wg.Done()
			})
		}
		wg.Wait()
	}
	b.StopTimer()
}

func BenchmarkGammaZeroPool(b *testing.B) {
	var wg sync.WaitGroup
	p := workerpool.New(PoolSize)
	defer p.StopWait()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			p.Submit(func() {
				demoFunc()
				wg.Done()
			})
		}
		wg.Wait()
	}
	b.StopTimer()
}

func BenchmarkCocoPool(b *testing.B) {
	var wg sync.WaitGroup
	p := coco.NewPool(PoolSize)
	defer p.Release()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			_ = p.Submit(func() {
				demoFunc()
				wg.Done()
			})
		}
		wg.Wait()
	}
	b.StopTimer()
}

// stackWork pushes n onto a shared stack and pops one value back, so the pool
// benchmarks below measure dispatch under contention on the same stack.
func stackWork(s *coco.Stack[int], n int) {
	s.Push(n)
	s.Pop()
}

func BenchmarkAntsPoolWithFuncOnStack(b *testing.B) {
	var wg sync.WaitGroup
	s := coco.NewStack[int]()
	defer s.Close()
	p, _ := ants.NewPoolWithFunc(PoolSize, func(arg any) {
		stackWork(s, arg.(int))
		wg.Done()
	}, ants.WithExpiryDuration(DefaultExpiredTime))
	defer p.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			_ = p.Invoke(j)
		}
		wg.Wait()
	}
	b.StopTimer()
}

func BenchmarkCocoPoolWithFuncOnStack(b *testing.B) {
	var wg sync.WaitGroup
	s := coco.NewStack[int]()
	defer s.Close()
	p := coco.NewPoolWithFunc(PoolSize, func(n int) {
		stackWork(s, n)
		wg.Done()
	})
	defer p.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			_ = p.Invoke(j)
		}
		wg.Wait()
	}
	b.StopTimer()
}
