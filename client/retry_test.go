package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoffDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100, MaxDelay: 1000, BackoffMultiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1000 * time.Millisecond},
		{10, 1000 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := calculateBackoffDelay(tt.attempt, cfg); got != tt.want {
			t.Errorf("calculateBackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("HTTP error: 503"), true},
		{errors.New("HTTP error: 429"), true},
		{errors.New("HTTP error: 404"), false},
		{errors.New("invalid params"), false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithRetry(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, InitialDelay: 1, MaxDelay: 2, BackoffMultiplier: 1}

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			return errors.New("invalid params")
		}, cfg)
		if err == nil || calls != 1 {
			t.Errorf("calls = %d, err = %v", calls, err)
		}
	})

	t.Run("retryable until success", func(t *testing.T) {
		calls := 0
		var retried []int
		c := *cfg
		c.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }
		err := withRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		}, &c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
			t.Errorf("unexpected retry attempts: %v", retried)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &RetryConfig{MaxRetries: 3, InitialDelay: 10000, MaxDelay: 10000, BackoffMultiplier: 1}
		err := withRetry(ctx, func() error { return errors.New("timeout") }, slow)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
