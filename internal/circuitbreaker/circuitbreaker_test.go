package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		MaxRequests:      2,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("test", testConfig(), zap.NewNop())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := New("test", testConfig(), zap.NewNop())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), func(ctx context.Context) error { return boom })
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	for i := 0; i < 2; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerSuccessKeepsClosed(t *testing.T) {
	b := New("test", testConfig(), zap.NewNop())
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	}
	assert.Equal(t, StateClosed, b.State())
}
