package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{1, 3, 17, 1000} {
		t.Run(fmt.Sprintf("items=%d", items), func(t *testing.T) {
			hits := make([]int32, items)
			err := Parallelize(context.Background(), items, func(_ context.Context, start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
				return nil
			})
			require.NoError(t, err)
			for i, h := range hits {
				assert.Equalf(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestParallelizeWithThresholdRunsSequentiallyBelowThreshold(t *testing.T) {
	var calls int32
	err := ParallelizeWithThreshold(context.Background(), 10, 100, func(_ context.Context, start, end int) error {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestParallelizePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Parallelize(context.Background(), 64, func(_ context.Context, start, _ int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.True(t, errors.Is(err, boom))
}

func TestParallelizeRecoversPanics(t *testing.T) {
	err := ParallelizeWithThreshold(context.Background(), 4, 10, func(context.Context, int, int) error {
		panic("index out of range")
	})
	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr))
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	err := Parallelize(context.Background(), 0, func(context.Context, int, int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
