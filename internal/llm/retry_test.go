package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"google.golang.org/genai"
)

func fastOpts(maxRetries int) llm.RetryOptions {
	return llm.RetryOptions{
		MaxRetries:        maxRetries,
		RequestTimeout:    time.Second,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        2 * time.Millisecond,
		BackoffJitterFrac: 0, // deterministic
	}
}

func TestRetrying_RetriesTransient(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	m := llm.ModelFunc(func(_ context.Context, _ string, _ *genai.Schema) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= 2 {
			return "", &llm.TransientError{Err: errors.New("try again")}
		}
		return `{"ok":true}`, nil
	})

	out, err := llm.NewRetrying(m, fastOpts(3)).Generate(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected output: %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetrying_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	m := llm.ModelFunc(func(_ context.Context, _ string, _ *genai.Schema) (string, error) {
		calls++
		return "", errors.New("permanent")
	})

	_, err := llm.NewRetrying(m, fastOpts(10)).Generate(context.Background(), "p", nil)
	if err == nil || err.Error() != "permanent" {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	m := llm.ModelFunc(func(_ context.Context, _ string, _ *genai.Schema) (string, error) {
		calls++
		return "", &llm.TransientError{Err: errors.New("busy")}
	})

	_, err := llm.NewRetrying(m, fastOpts(2)).Generate(context.Background(), "p", nil)
	if !llm.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetrying_AppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	m := llm.ModelFunc(func(ctx context.Context, _ string, _ *genai.Schema) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected a deadline on the request context")
		}
		return "{}", nil
	})
	if _, err := llm.NewRetrying(m, fastOpts(0)).Generate(context.Background(), "p", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetrying_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	m := llm.ModelFunc(func(_ context.Context, _ string, _ *genai.Schema) (string, error) {
		calls++
		return "{}", nil
	})
	_, err := llm.NewRetrying(m, fastOpts(3)).Generate(ctx, "p", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls, got %d", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want bool
	}{
		{name: "nil", in: nil, want: false},
		{name: "plain", in: errors.New("x"), want: false},
		{name: "transient", in: &llm.TransientError{Err: errors.New("x")}, want: true},
		{name: "deadline", in: context.DeadlineExceeded, want: true},
		{name: "empty", in: llm.ErrEmptyResponse, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llm.IsTransient(tt.in); got != tt.want {
				t.Fatalf("IsTransient(%v)=%v want %v", tt.in, got, tt.want)
			}
		})
	}
}
