package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

type Verdict string

const (
	VerdictUnique    Verdict = "unique"
	VerdictDuplicate Verdict = "duplicate"
)

type verdictWire struct {
	TaskNumber int    `json:"task_number"`
	Status     string `json:"status"`
}

type verdictListWire struct {
	TaskStatus []verdictWire `json:"task_status"`
}

// DedupResult partitions candidates, preserving their relative order.
type DedupResult struct {
	Unique     []Candidate
	Duplicates []Candidate

	// FailedOpen is set when the model call failed and every candidate was kept.
	FailedOpen bool
	// Skipped is set when no model call was needed.
	Skipped bool
}

// Dedupe classifies every candidate against the existing open tasks in a single model
// call. It never returns an error: when the call fails, all candidates are unique.
//
// Verdicts for positions outside [1, len(candidates)] are ignored. The first verdict
// for a position wins, and a position without a verdict counts as unique.
func (p *Pipeline) Dedupe(ctx context.Context, candidates []Candidate, existing []ExistingTask) DedupResult {
	if len(candidates) == 0 {
		return DedupResult{Skipped: true}
	}
	if len(existing) == 0 {
		p.metrics.recordVerdicts(len(candidates), 0)
		return DedupResult{Unique: append([]Candidate(nil), candidates...), Skipped: true}
	}

	verdicts, err := p.requestVerdicts(ctx, candidates, existing)
	if err != nil {
		p.log.Warn("deduplication failed, treating all candidates as unique",
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		p.metrics.recordFailOpen()
		return DedupResult{Unique: append([]Candidate(nil), candidates...), FailedOpen: true}
	}

	var res DedupResult
	for i, c := range candidates {
		if verdicts[i] == VerdictDuplicate {
			res.Duplicates = append(res.Duplicates, c)
		} else {
			res.Unique = append(res.Unique, c)
		}
	}
	p.metrics.recordVerdicts(len(res.Unique), len(res.Duplicates))
	p.log.Info("deduplication complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("existing", len(existing)),
		zap.Int("unique", len(res.Unique)),
		zap.Int("duplicates", len(res.Duplicates)),
	)
	return res
}

// requestVerdicts returns one verdict per candidate position (0-based).
func (p *Pipeline) requestVerdicts(ctx context.Context, candidates []Candidate, existing []ExistingTask) ([]Verdict, error) {
	preview := make([]ExistingTask, len(existing))
	for i, t := range existing {
		t.Body = truncateRunes(strings.TrimSpace(t.Body), p.bodyPreview)
		preview[i] = t
	}
	prompt, err := render(dedupTmpl, dedupPromptInput{Existing: preview, New: candidates})
	if err != nil {
		return nil, fmt.Errorf("render deduplication prompt: %w", err)
	}

	raw, err := p.model.Generate(ctx, prompt, verdictListSchema)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, errors.New("empty deduplication response")
	}
	var wire verdictListWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("parse structured json: %w", err)
	}

	out := make([]Verdict, len(candidates))
	seen := make([]bool, len(candidates))
	for _, v := range wire.TaskStatus {
		idx := v.TaskNumber - 1
		if idx < 0 || idx >= len(candidates) {
			p.log.Debug("ignoring out-of-range verdict", zap.Int("task_number", v.TaskNumber))
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if strings.EqualFold(strings.TrimSpace(v.Status), string(VerdictDuplicate)) {
			out[idx] = VerdictDuplicate
		} else {
			out[idx] = VerdictUnique
		}
	}
	for i := range out {
		if !seen[i] {
			out[i] = VerdictUnique
		}
	}
	return out, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
