package todo

import (
	"context"
	"fmt"
	"strings"
)

// Synthesize expands one short utterance into a single candidate. ok is false when the
// model produced no entry; only the first entry is used.
func (p *Pipeline) Synthesize(ctx context.Context, utterance string) (c Candidate, ok bool, err error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Candidate{}, false, nil
	}
	prompt, err := render(synthesisTmpl, promptInput{Today: p.today(), Input: utterance})
	if err != nil {
		return Candidate{}, false, fmt.Errorf("render synthesis prompt: %w", err)
	}
	got, err := p.generateCandidates(ctx, prompt)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("synthesize task: %w", err)
	}
	if len(got) == 0 {
		return Candidate{}, false, nil
	}
	return got[0], true, nil
}

// CreateOne creates a single candidate without deduplication.
func (p *Pipeline) CreateOne(ctx context.Context, c Candidate, listID string) (CreatedTask, error) {
	res, err := p.Commit(ctx, []Candidate{c}, listID)
	if err != nil {
		return CreatedTask{}, err
	}
	if len(res.Errors) > 0 {
		return CreatedTask{}, fmt.Errorf("create task %q: %s", c.Task, res.Errors[0].Err)
	}
	return res.Created[0], nil
}
