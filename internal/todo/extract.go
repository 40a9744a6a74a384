package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"go.uber.org/zap"
)

// candidateWire is the model's view of a candidate; optional fields may be null.
type candidateWire struct {
	Task           string  `json:"task"`
	Priority       string  `json:"priority"`
	Comments       *string `json:"comments"`
	DueDate        *string `json:"due_date"`
	PersonInvolved *string `json:"person_involved"`
}

type candidateListWire struct {
	Entries []candidateWire `json:"entries"`
}

// Extract runs one model call per item, in order, and accumulates the candidates.
// An item yielding nothing is fine; a failed call aborts with *ExtractionError.
func (p *Pipeline) Extract(ctx context.Context, src Source, items []string) ([]Candidate, error) {
	var out []Candidate
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		prompt, err := render(extractionTmpl, promptInput{Today: p.today(), Input: item})
		if err != nil {
			return out, fmt.Errorf("render extraction prompt: %w", err)
		}
		got, err := p.generateCandidates(ctx, prompt)
		if err != nil {
			p.log.Error("task extraction failed",
				zap.String("source", string(src)),
				zap.Int("item", i),
				zap.Error(err),
			)
			return out, &ExtractionError{Source: src, Index: i, Err: err}
		}
		out = append(out, got...)
	}
	p.metrics.recordCandidates(src, len(out))
	p.log.Info("extraction complete",
		zap.String("source", string(src)),
		zap.Int("items", len(items)),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

// generateCandidates issues one structured call and converts the entries. A null or
// undecodable response is an error.
func (p *Pipeline) generateCandidates(ctx context.Context, prompt string) ([]Candidate, error) {
	raw, err := p.model.Generate(ctx, prompt, candidateListSchema)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, llm.ErrEmptyResponse
	}
	var wire candidateListWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("parse structured json: %w", err)
	}

	out := make([]Candidate, 0, len(wire.Entries))
	for _, w := range wire.Entries {
		c, ok := p.toCandidate(w)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// toCandidate drops entries without a task and cleans optional fields. Due dates the
// model could not express as a calendar date are dropped, never guessed.
func (p *Pipeline) toCandidate(w candidateWire) (Candidate, bool) {
	task := strings.TrimSpace(w.Task)
	if task == "" {
		return Candidate{}, false
	}
	c := Candidate{
		Task:           task,
		Priority:       ParsePriority(w.Priority),
		Comments:       cleanOptional(w.Comments),
		PersonInvolved: cleanOptional(w.PersonInvolved),
	}
	if raw := cleanOptional(w.DueDate); raw != "" {
		if d, ok := NormalizeDueDate(raw); ok {
			c.DueDate = d
		} else {
			p.log.Debug("dropping unparseable due date", zap.String("due_date", raw))
		}
	}
	return c, true
}

func cleanOptional(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	switch strings.ToLower(v) {
	case "null", "none", "n/a":
		return ""
	}
	return v
}
