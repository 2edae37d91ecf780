package httpclient

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestBreakerTripsOnFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testBreakerConfig("test-trip"), zap.NewNop())
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	require.False(t, called)
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.True(t, IsOpen(err))
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testBreakerConfig("test-recover"), nil)
	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errors.New("fail") })
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, b.Execute(func() error { return nil }))
	require.Equal(t, gobreaker.StateClosed, b.State())
}

func TestIsOpenIgnoresOtherErrors(t *testing.T) {
	t.Parallel()

	require.False(t, IsOpen(errors.New("x")))
	require.False(t, IsOpen(nil))
}
