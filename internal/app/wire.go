package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shpitdev/commsync-todo/internal/config"
	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/llm"
	"github.com/shpitdev/commsync-todo/internal/llm/gemini"
	"github.com/shpitdev/commsync-todo/internal/llm/openai"
	"github.com/shpitdev/commsync-todo/internal/todo"
	"go.uber.org/zap"
)

// NewModel builds the configured provider, wrapped with call tracing and the
// retry/timeout/rate-limit policy from the pipeline section.
func NewModel(ctx context.Context, cfg config.Config, log *zap.Logger) (llm.Model, error) {
	var (
		base llm.Model
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case config.ProviderGemini:
		base, err = gemini.New(ctx, gemini.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	case config.ProviderOpenAI:
		base, err = openai.New(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	traced := newTracedModel(base, log, cfg.LLM.Provider, cfg.LLM.Model)
	return llm.NewRetrying(traced, llm.RetryOptions{
		MaxRetries:     cfg.Pipeline.MaxRetries,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
		RateLimitRPS:   cfg.Pipeline.RateLimitRPS,
	}), nil
}

// NewGraphClient builds a Graph client from the graph section: a static token when one
// is configured, client credentials otherwise.
func NewGraphClient(ctx context.Context, cfg config.GraphConfig, log *zap.Logger) (*graph.Client, error) {
	creds := graph.Credentials{Token: cfg.Token}
	if strings.TrimSpace(cfg.Token) == "" {
		creds.TokenURL = cfg.ResolvedTokenURL()
		creds.ClientID = cfg.ClientID
		creds.ClientSecret = cfg.ClientSecret
	}
	ts, err := creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewClient(ctx, graph.Options{
		BaseURL:     cfg.BaseURL,
		UserID:      cfg.UserID,
		TokenSource: ts,
		Logger:      log,
	})
}

// Build wires a Service from configuration. Pipeline metrics are registered on reg
// when it is non-nil.
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	model, err := NewModel(ctx, cfg, log.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	gc, err := NewGraphClient(ctx, cfg.Graph, log.Named("graph"))
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return NewService(gc, model, ServiceOptions{
		Logger:  log,
		Metrics: todo.NewMetrics(reg),
		Config:  cfg.Pipeline,
	}), nil
}
