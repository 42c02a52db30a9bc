package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverCycleSwallowsPanic(t *testing.T) {
	ran := false
	require.NotPanics(t, func() {
		RecoverCycle("test", func() {
			ran = true
			panic("boom")
		})
	})
	require.True(t, ran)
}

func TestRecoverCycleRunsNext(t *testing.T) {
	calls := 0
	for i := 0; i < 3; i++ {
		RecoverCycle("test", func() { calls++ })
	}
	require.Equal(t, 3, calls)
}

func TestWithCircuitBreakerPassesThrough(t *testing.T) {
	require.NoError(t, WithCircuitBreaker(func() error { return nil }))

	sentinel := errors.New("store down")
	err := WithCircuitBreaker(func() error { return sentinel })
	require.ErrorIs(t, err, sentinel)
}
