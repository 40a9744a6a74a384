// Package config loads todobot configuration from a YAML file and TODOBOT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full runtime configuration. It is passed explicitly into constructors.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Graph    GraphConfig    `koanf:"graph"`
	LLM      LLMConfig      `koanf:"llm"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// GraphConfig configures access to the mail/chat/To Do API.
//
// Either Token (a pre-issued bearer token) or the TenantID/ClientID/ClientSecret triple
// must be set. UserID selects /users/{id}; empty means /me.
type GraphConfig struct {
	BaseURL      string `koanf:"base_url"`
	TokenURL     string `koanf:"token_url"`
	TenantID     string `koanf:"tenant_id"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	Token        string `koanf:"token"`
	UserID       string `koanf:"user_id"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

type PipelineConfig struct {
	EmailLookbackDays int           `koanf:"email_lookback_days"`
	ChatCount         int           `koanf:"chat_count"`
	MessagesPerChat   int           `koanf:"messages_per_chat"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RateLimitRPS      float64       `koanf:"rate_limit_rps"`
	TargetListID      string        `koanf:"target_list_id"`
	DedupBodyPreview  int           `koanf:"dedup_body_preview"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
)

// DefaultMaxRetries applies when pipeline.max_retries is not set at all; an explicit 0 disables retries.
const DefaultMaxRetries = 2

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.Pipeline.MaxRetries = DefaultMaxRetries
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3978"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = DefaultGraphBaseURL
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = "gemini-2.5-flash"
		case ProviderOpenAI:
			c.LLM.Model = "gpt-4o"
		}
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 10000
	}
	if c.Pipeline.EmailLookbackDays <= 0 {
		c.Pipeline.EmailLookbackDays = 40
	}
	if c.Pipeline.ChatCount <= 0 {
		c.Pipeline.ChatCount = 5
	}
	if c.Pipeline.MessagesPerChat <= 0 {
		c.Pipeline.MessagesPerChat = 10
	}
	if c.Pipeline.RequestTimeout <= 0 {
		c.Pipeline.RequestTimeout = 60 * time.Second
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = 0
	}
	if c.Pipeline.DedupBodyPreview <= 0 {
		c.Pipeline.DedupBodyPreview = 200
	}
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be %q or %q (got %q)", ProviderGemini, ProviderOpenAI, c.LLM.Provider))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, errors.New("llm.api_key is required (env: TODOBOT_LLM_API_KEY)"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2] (got %g)", c.LLM.Temperature))
	}
	if c.Pipeline.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("pipeline.rate_limit_rps must be >= 0 (got %g)", c.Pipeline.RateLimitRPS))
	}
	if err := c.Graph.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks that some form of Graph credential is configured.
func (g GraphConfig) Validate() error {
	if strings.TrimSpace(g.Token) != "" {
		return nil
	}
	var missing []string
	if strings.TrimSpace(g.TenantID) == "" && strings.TrimSpace(g.TokenURL) == "" {
		missing = append(missing, "graph.tenant_id")
	}
	if strings.TrimSpace(g.ClientID) == "" {
		missing = append(missing, "graph.client_id")
	}
	if strings.TrimSpace(g.ClientSecret) == "" {
		missing = append(missing, "graph.client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("graph credentials incomplete: set graph.token or %s", strings.Join(missing, ", "))
	}
	return nil
}

// ResolvedTokenURL returns the OAuth2 token endpoint for client credentials.
func (g GraphConfig) ResolvedTokenURL() string {
	if u := strings.TrimSpace(g.TokenURL); u != "" {
		return u
	}
	return "https://login.microsoftonline.com/" + strings.TrimSpace(g.TenantID) + "/oauth2/v2.0/token"
}
