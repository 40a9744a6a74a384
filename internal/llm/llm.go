// Package llm defines the language-model contract used by the task pipeline.
//
// A Model takes a fully rendered prompt plus the response schema it must satisfy and
// returns the raw JSON document produced by the provider. Decoding into domain types is
// left to callers so providers stay schema-agnostic.
package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// Model is a single request/response structured-output call.
type Model interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, prompt string, schema *genai.Schema) (string, error)

func (f ModelFunc) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	return f(ctx, prompt, schema)
}

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// TransientError marks an error as retryable.
//
// Retrying wraps provider failures like 429s and 5xx responses in this type so they are
// retried with backoff instead of failing the calling stage immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
