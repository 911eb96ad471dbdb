package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryWithContextReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("RetryWithContext returned %v, want nil", err)
	}
	if got != 42 {
		t.Fatalf("RetryWithContext returned %d, want 42", got)
	}
}

func TestRetryWithContextExhaustsTries(t *testing.T) {
	calls := 0
	wantErr := errors.New("persistent")
	_, err := RetryWithContext(context.Background(), 4, func(ctx context.Context) (int, error) {
		calls++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RetryWithContext returned %v, want %v", err, wantErr)
	}
	if calls != 4 {
		t.Fatalf("fn called %d times, want 4", calls)
	}
}

func TestRetryWithContextZeroTriesDefaultsToOne(t *testing.T) {
	calls := 0
	_, _ = RetryWithContext(context.Background(), 0, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("x")
	})
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}

func TestRetryWithContextCanceledBeforeCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 3, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithContext returned %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("fn called %d times, want 0", calls)
	}
}

func TestRetryWithContextDoesNotRetryCancellation(t *testing.T) {
	calls := 0
	_, err := RetryWithContext(context.Background(), 5, func(ctx context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RetryWithContext returned %v, want DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}
