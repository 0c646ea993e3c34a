package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3, arbor.NewLogger())

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Wait())
	assert.Equal(t, int32(20), count.Load())
	assert.Empty(t, pool.Errors())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())

	var active, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_ = pool.Submit(func(ctx context.Context) error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				active.Add(-1)
				return nil
			})
		}()
	}

	assert.Eventually(t, func() bool { return active.Load() == 2 }, time.Second, 10*time.Millisecond)
	close(release)
	assert.Eventually(t, func() bool { return active.Load() == 0 }, time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_CollectsErrorsAndPanics(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())

	require.NoError(t, pool.Submit(func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) error { panic("bad file") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) error { return nil }))

	require.NoError(t, pool.Wait())
	assert.Len(t, pool.Errors(), 2)
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := NewPool(context.Background(), 1, arbor.NewLogger())
	require.NoError(t, pool.Wait())

	assert.ErrorIs(t, pool.Submit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
	require.NoError(t, pool.Wait())
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1, arbor.NewLogger())
	cancel()

	assert.Eventually(t, func() bool {
		return errors.Is(pool.Submit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
	}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, pool.Wait(), context.Canceled)
}
