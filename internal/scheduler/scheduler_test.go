package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deadman-dev/deadman/internal/dispatch"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsSweepOnInterval(t *testing.T) {
	logger.SetTestLoggerNop()

	var calls atomic.Int32

	sweep := func(ctx context.Context, now time.Time) (dispatch.Report, error) {
		calls.Add(1)
		return dispatch.Report{}, nil
	}

	s := New(10*time.Millisecond, sweep)
	s.Start()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestSchedulerRunNow(t *testing.T) {
	logger.SetTestLoggerNop()

	var calls atomic.Int32

	sweep := func(ctx context.Context, now time.Time) (dispatch.Report, error) {
		calls.Add(1)
		return dispatch.Report{}, nil
	}

	s := New(time.Hour, sweep)
	s.RunNow()
	s.RunNow()

	assert.Equal(t, int32(2), calls.Load())
}
