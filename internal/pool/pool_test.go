package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	// Earlier items sleep longer so they finish last.
	out, err := Map(context.Background(), 4, items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(len(items)-n) * time.Millisecond)
		return n * n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64, 81, 100}, out)
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 32)

	_, err := Map(context.Background(), 3, items, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestMap_FirstErrorFailsAll(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	out, err := Map(context.Background(), 1, []int{1, 2, 3, 4}, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	// With one worker nothing after the failing item is started.
	assert.LessOrEqual(t, calls.Load(), int32(3))
}

func TestMap_Empty(t *testing.T) {
	out, err := Map(context.Background(), 4, []string{}, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMap_NonPositiveWorkers(t *testing.T) {
	out, err := Map(context.Background(), 0, []int{1, 2}, func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out)
}

func TestMap_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, 2, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
