package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

func TestJobSchedulerRegistersAndRuns(t *testing.T) {
	s := NewJobScheduler(logger.Nop())

	runs := 0
	require.NoError(t, s.Add("sweep", "@every 1m", func(ctx context.Context) error {
		runs++
		return nil
	}))

	require.NoError(t, s.RunNow(context.Background(), "sweep"))
	assert.Equal(t, 1, runs)

	assert.Error(t, s.Add("sweep", "@hourly", func(context.Context) error { return nil }), "duplicate name")
	assert.Error(t, s.Add("broken", "not a spec", func(context.Context) error { return nil }))
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestJobSchedulerRunNowReturnsJobError(t *testing.T) {
	s := NewJobScheduler(logger.Nop())
	boom := errors.New("boom")
	require.NoError(t, s.Add("fail", "@daily", func(context.Context) error { return boom }))

	assert.ErrorIs(t, s.RunNow(context.Background(), "fail"), boom)

	s.Start()
	s.Stop()
}
