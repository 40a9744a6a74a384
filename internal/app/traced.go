package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"github.com/shpitdev/commsync-todo/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// tracedModel logs every model call: prompt size, deadline, duration and outcome.
// Prompt and response bodies are only logged at debug level.
type tracedModel struct {
	next     llm.Model
	log      *zap.Logger
	provider string
	model    string

	calls atomic.Int64
}

func newTracedModel(next llm.Model, log *zap.Logger, provider, model string) *tracedModel {
	if log == nil {
		log = zap.NewNop()
	}
	return &tracedModel{next: next, log: log, provider: provider, model: model}
}

func (t *tracedModel) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	call := t.calls.Add(1)
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	log := t.log.With(
		zap.String("provider", t.provider),
		zap.String("model", t.model),
		zap.Int64("call", call),
	)
	log.Debug("model request",
		zap.Int("prompt_chars", len(prompt)),
		zap.String("deadline_in", deadlineIn),
		zap.String("prompt", prompt),
	)

	start := time.Now()
	out, err := t.next.Generate(ctx, prompt, schema)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		log.Warn("model call failed",
			zap.Duration("duration", elapsed),
			zap.Bool("retryable", llm.IsTransient(err)),
			zap.String("error", util.RedactSecrets(err.Error())),
		)
		return out, err
	}
	log.Info("model call ok",
		zap.Duration("duration", elapsed),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(out)),
	)
	log.Debug("model response", zap.String("response", out))
	return out, nil
}
