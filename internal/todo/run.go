package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shpitdev/commsync-todo/internal/graph"
	"go.uber.org/zap"
)

// Input is one end-to-end run: the raw records to mine and an optional target list.
type Input struct {
	Emails       []graph.Message
	Chats        []graph.ChatThreadMessage
	TargetListID string
}

// Result aggregates a run. Summary is always set, also when Run returns an error.
type Result struct {
	RunID string

	EmailCandidates []Candidate
	ChatCandidates  []Candidate

	ListID          string
	Created         []CreatedTask
	Duplicates      []Candidate
	Errors          []CreationError
	DedupFailedOpen bool

	// NoTasks is set when extraction found nothing and later stages were skipped.
	NoTasks bool
	Summary string
}

// Candidates returns email candidates followed by chat candidates.
func (r Result) Candidates() []Candidate {
	out := make([]Candidate, 0, len(r.EmailCandidates)+len(r.ChatCandidates))
	out = append(out, r.EmailCandidates...)
	return append(out, r.ChatCandidates...)
}

const noTasksSummary = "No tasks found in emails or chat messages."

const (
	outcomeOK               = "ok"
	outcomeNoTasks          = "no_tasks"
	outcomeExtractionFailed = "extraction_failed"
	outcomeNoList           = "no_list"
	outcomeCommitFailed     = "commit_failed"
)

// Run executes the full workflow: extract from emails, then chats, then deduplicate
// against a fresh open-task snapshot and create what is new. Stages run strictly in
// sequence.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	rp := p.withLogger(p.log.With(zap.String("run_id", res.RunID)))
	rp.log.Info("task generation started", zap.Int("emails", len(in.Emails)), zap.Int("chats", len(in.Chats)))

	var err error
	res.EmailCandidates, err = rp.Extract(ctx, SourceEmail, NormalizeEmails(in.Emails))
	if err != nil {
		return rp.fail(res, outcomeExtractionFailed, start, err)
	}
	res.ChatCandidates, err = rp.Extract(ctx, SourceChat, NormalizeChats(in.Chats))
	if err != nil {
		return rp.fail(res, outcomeExtractionFailed, start, err)
	}

	candidates := res.Candidates()
	if len(candidates) == 0 {
		res.NoTasks = true
		res.Summary = noTasksSummary
		rp.metrics.recordRun(outcomeNoTasks, time.Since(start))
		rp.log.Info("no tasks found")
		return res, nil
	}

	existing := rp.FetchOpenTasks(ctx)
	dd := rp.Dedupe(ctx, candidates, existing)
	res.Duplicates = dd.Duplicates
	res.DedupFailedOpen = dd.FailedOpen

	cr, err := rp.Commit(ctx, dd.Unique, in.TargetListID)
	if err != nil {
		outcome := outcomeCommitFailed
		if errors.Is(err, ErrNoTaskList) {
			outcome = outcomeNoList
		}
		return rp.fail(res, outcome, start, err)
	}
	res.ListID = cr.ListID
	res.Created = cr.Created
	res.Errors = cr.Errors
	res.Summary = res.summary()

	rp.metrics.recordRun(outcomeOK, time.Since(start))
	rp.log.Info("task generation finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("created", len(res.Created)),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) fail(res Result, outcome string, start time.Time, err error) (Result, error) {
	p.metrics.recordRun(outcome, time.Since(start))
	res.Summary = "Task generation failed: " + err.Error()
	return res, err
}

// FetchOpenTasks snapshots open tasks across all lists. Read failures degrade to a
// smaller (possibly empty) snapshot.
func (p *Pipeline) FetchOpenTasks(ctx context.Context) []ExistingTask {
	lists, err := p.store.ListTaskLists(ctx)
	if err != nil {
		p.log.Warn("could not list task lists for deduplication", zap.Error(err))
		return nil
	}
	var out []ExistingTask
	for _, l := range lists {
		tasks, err := p.store.ListOpenTasks(ctx, l.ID)
		if err != nil {
			p.log.Warn("could not read open tasks", zap.String("list", l.Name), zap.Error(err))
			continue
		}
		out = append(out, tasks...)
	}
	return out
}

func (p *Pipeline) withLogger(log *zap.Logger) *Pipeline {
	cp := *p
	cp.log = log
	return &cp
}

func (r Result) summary() string {
	var b strings.Builder
	b.WriteString("Task generation summary\n")
	fmt.Fprintf(&b, "Email tasks generated: %d\n", len(r.EmailCandidates))
	fmt.Fprintf(&b, "Chat tasks generated: %d\n", len(r.ChatCandidates))
	fmt.Fprintf(&b, "Total tasks generated: %d\n", len(r.EmailCandidates)+len(r.ChatCandidates))
	fmt.Fprintf(&b, "New tasks created: %d\n", len(r.Created))
	fmt.Fprintf(&b, "Duplicates skipped: %d\n", len(r.Duplicates))
	fmt.Fprintf(&b, "Errors: %d", len(r.Errors))
	return b.String()
}
