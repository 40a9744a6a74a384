package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"google.golang.org/genai"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return false }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_503", in: genai.APIError{Code: 503}, wantTransient: true},
		{name: "api_400", in: genai.APIError{Code: 400}, wantTransient: false},
		{name: "net_timeout", in: timeoutNetErr{}, wantTransient: true},
		{name: "plain", in: errors.New("bad schema"), wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			var te *llm.TransientError
			if isTransient := errors.As(got, &te); isTransient != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", isTransient, tt.wantTransient, got, got)
			}
		})
	}
}

func TestNew_RequiresKeyAndModel(t *testing.T) {
	if _, err := New(context.Background(), Config{Model: "gemini-2.5-flash"}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := New(context.Background(), Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
