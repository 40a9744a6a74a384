// Package openai implements llm.Model against OpenAI-compatible chat completion APIs
// through langchaingo. JSON mode is enabled and the response schema is spelled out in
// the system message because the chat API has no native equivalent of a Gemini schema.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	Temperature float64
	MaxTokens   int
}

type Model struct {
	client      llms.Model
	temperature float64
	maxTokens   int
}

func New(cfg Config) (*Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("openai: model is required")
	}

	opts := []lcopenai.Option{
		lcopenai.WithModel(strings.TrimSpace(cfg.Model)),
		lcopenai.WithToken(strings.TrimSpace(cfg.APIKey)),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, lcopenai.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}
	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client llms.Model, cfg Config) *Model {
	return &Model{client: client, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}
}

func (m *Model) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	system, err := systemMessage(schema)
	if err != nil {
		return "", err
	}
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	callOpts := []llms.CallOption{
		llms.WithTemperature(m.temperature),
		llms.WithJSONMode(),
	}
	if m.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(m.maxTokens))
	}

	resp, err := m.client.GenerateContent(ctx, msgs, callOpts...)
	if err != nil {
		return "", classifyErr(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func systemMessage(schema *genai.Schema) (string, error) {
	base := "You are an assistant that reads workplace communications and manages to-do items. Reply with a single JSON object and nothing else."
	if schema == nil {
		return base, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("openai: encode response schema: %w", err)
	}
	return base + "\nThe JSON object must conform to this schema:\n" + string(raw), nil
}

var statusCodeRe = regexp.MustCompile(`status code: (\d{3})`)

func classifyErr(err error) error {
	if m := statusCodeRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		if code == 429 || code/100 == 5 {
			return &llm.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &llm.TransientError{Err: err}
	}
	return err
}
