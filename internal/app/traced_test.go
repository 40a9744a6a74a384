package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

func TestTracedModel_LogsOutcomeWithoutPromptAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	next := llm.ModelFunc(func(context.Context, string, *genai.Schema) (string, error) {
		return `{"entries":[]}`, nil
	})
	m := newTracedModel(next, zap.New(core), "openai", "gpt-4o")

	out, err := m.Generate(context.Background(), "secret prompt body", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"entries":[]}`, out)

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "model call ok", e.Message)
	fields := e.ContextMap()
	assert.Equal(t, "openai", fields["provider"])
	assert.Equal(t, int64(1), fields["call"])
	assert.Equal(t, int64(len("secret prompt body")), fields["prompt_chars"])
	for _, v := range fields {
		assert.NotEqual(t, "secret prompt body", v)
	}
}

func TestTracedModel_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := llm.ModelFunc(func(context.Context, string, *genai.Schema) (string, error) {
		return "", &llm.TransientError{Err: errors.New("429 from upstream, api_key=abc123")}
	})
	m := newTracedModel(next, zap.New(core), "gemini", "gemini-2.5-flash")

	_, err := m.Generate(context.Background(), "p", nil)
	require.Error(t, err)

	warn := logs.FilterMessage("model call failed").All()
	require.Len(t, warn, 1)
	fields := warn[0].ContextMap()
	assert.Equal(t, true, fields["retryable"])
	assert.NotContains(t, fields["error"], "abc123")
}
