package rworker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		n    int
		rate int
	}{
		{name: "sequential", n: 10, rate: 1},
		{name: "bounded", n: 50, rate: 4},
		{name: "wide", n: 3, rate: 16},
		{name: "zero_rate", n: 5, rate: 0},
		{name: "empty", n: 0, rate: 2},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var (
				mtx      sync.Mutex
				inFlight int
				peak     int
				done     = make([]bool, test.n)
			)
			err := Run(context.Background(), test.n, test.rate, func(_ context.Context, i int) error {
				mtx.Lock()
				inFlight++
				if inFlight > peak {
					peak = inFlight
				}
				done[i] = true
				mtx.Unlock()

				mtx.Lock()
				inFlight--
				mtx.Unlock()
				return nil
			})
			require.NoError(t, err)
			for i, ok := range done {
				assert.True(t, ok, "job %d", i)
			}
			limit := test.rate
			if limit < 1 {
				limit = 1
			}
			assert.LessOrEqual(t, peak, limit)
		})
	}
}

func TestRun_FirstError(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("boom")
	var calls int64
	err := Run(context.Background(), 100, 1, func(_ context.Context, i int) error {
		atomic.AddInt64(&calls, 1)
		if i == 3 {
			return errBoom
		}
		return nil
	})
	assert.True(t, errors.Is(err, errBoom))
	assert.LessOrEqual(t, atomic.LoadInt64(&calls), int64(100))
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int64
	err := Run(ctx, 10, 2, func(context.Context, int) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, atomic.LoadInt64(&calls))
}
