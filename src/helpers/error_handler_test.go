package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessRuleErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create order: %w", NewBusinessRuleError("insufficient cash"))

	assert.True(t, IsBusinessRule(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "create order: insufficient cash", err.Error())
}

func TestStreamErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("fetch prices", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch prices: connection refused", err.Error())
}

func TestRetryWithBackoffEventuallySucceeds(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), nil, "flaky", 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("boom")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), nil, "broken", 2, time.Millisecond, func() (string, error) {
		calls++
		return "", fmt.Errorf("attempt %d", calls)
	})

	require.Error(t, err)
	assert.Equal(t, "attempt 2", err.Error())
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithBackoff(ctx, nil, "cancelled", 5, time.Hour, func() (int, error) {
		return 0, errors.New("nope")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
