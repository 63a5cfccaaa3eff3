package coco

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

const (
	releaseRounds    = 50
	releaseSubmitter = 8
)

// closedIsDone treats ErrPoolClosed as the expected end of a submit loop.
func closedIsDone(err error) error {
	if errors.Is(err, ErrPoolClosed) {
		return nil
	}
	return err
}

func TestPool(t *testing.T) {
	t.Run("With Submit", func(t *testing.T) {
		const runTimes = 1000
		p := NewPool(10)
		defer p.Release()

		var wg sync.WaitGroup
		sum := atomic.NewInt64(0)
		for i := 0; i < runTimes; i++ {
			wg.Add(1)
			require.NoError(t, p.Submit(func() {
				defer wg.Done()
				sum.Inc()
			}))
		}
		wg.Wait()
		assert.EqualValues(t, runTimes, sum.Load())
		assert.LessOrEqual(t, p.Running(), p.Cap())
		assert.Equal(t, 10, p.Cap())
	})
	t.Run("With default size", func(t *testing.T) {
		p := NewPool(0)
		defer p.Release()
		assert.Positive(t, p.Cap())
	})
	t.Run("With Release", func(t *testing.T) {
		p := NewPool(2)
		var wg sync.WaitGroup
		wg.Add(1)
		require.NoError(t, p.Submit(wg.Done))
		wg.Wait()

		p.Release()
		p.Release()
		assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	})
	t.Run("With panicking task", func(t *testing.T) {
		p := NewPool(1, WithLogger(zaptest.NewLogger(t)))
		defer p.Release()

		require.NoError(t, p.Submit(func() { panic("boom") }))
		var wg sync.WaitGroup
		wg.Add(1)
		require.NoError(t, p.Submit(wg.Done))
		wg.Wait()
		assert.Equal(t, 1, p.Running())
	})
	t.Run("With Release racing Submit", func(t *testing.T) {
		for round := 0; round < releaseRounds; round++ {
			p := NewPool(4)
			var g errgroup.Group
			for i := 0; i < releaseSubmitter; i++ {
				g.Go(func() error {
					for j := 0; j < 100; j++ {
						if err := p.Submit(func() {}); err != nil {
							return closedIsDone(err)
						}
					}
					return nil
				})
			}
			p.Release()
			require.NoError(t, g.Wait())
			assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
			assert.LessOrEqual(t, p.Running(), p.Cap())
		}
	})
}

func TestPoolWithFunc(t *testing.T) {
	t.Run("With Invoke", func(t *testing.T) {
		const runTimes = 1000
		var wg sync.WaitGroup
		sum := atomic.NewInt64(0)
		p := NewPoolWithFunc(10, func(i int64) {
			defer wg.Done()
			sum.Add(i)
		})
		defer p.Release()

		for i := int64(0); i < runTimes; i++ {
			wg.Add(1)
			require.NoError(t, p.Invoke(i))
		}
		wg.Wait()
		assert.EqualValues(t, runTimes*(runTimes-1)/2, sum.Load())
		assert.LessOrEqual(t, p.Running(), 10)
	})
	t.Run("With Release", func(t *testing.T) {
		p := NewPoolWithFunc(1, func(string) {})
		require.NoError(t, p.Invoke("hello"))
		p.Release()
		assert.ErrorIs(t, p.Invoke("world"), ErrPoolClosed)
	})
	t.Run("With Release racing Invoke", func(t *testing.T) {
		for round := 0; round < releaseRounds; round++ {
			p := NewPoolWithFunc(4, func(int) {})
			var g errgroup.Group
			for i := 0; i < releaseSubmitter; i++ {
				g.Go(func() error {
					for j := 0; j < 100; j++ {
						if err := p.Invoke(j); err != nil {
							return closedIsDone(err)
						}
					}
					return nil
				})
			}
			p.Release()
			require.NoError(t, g.Wait())
			assert.ErrorIs(t, p.Invoke(0), ErrPoolClosed)
			assert.LessOrEqual(t, p.Running(), 4)
		}
	})
}
