package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/util"
	"go.uber.org/zap"
)

// CommitResult reports each attempted creation. Created and Errors keep input order.
type CommitResult struct {
	ListID  string
	Created []CreatedTask
	Errors  []CreationError
}

// Importance maps a candidate priority onto the store's importance levels.
func Importance(p Priority) string {
	return graph.NormalizeImportance(string(p))
}

// TaskBody composes the stored body from the comments and the person involved.
// It is empty when both are empty.
func TaskBody(c Candidate) string {
	var parts []string
	if s := strings.TrimSpace(c.Comments); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(c.PersonInvolved); s != "" {
		parts = append(parts, "\nPerson involved: "+s)
	}
	return strings.Join(parts, "\n")
}

// ResolveList returns listID, or the first list the store reports when listID is
// empty. It returns ErrNoTaskList when the store has no lists.
func (p *Pipeline) ResolveList(ctx context.Context, listID string) (string, error) {
	if id := strings.TrimSpace(listID); id != "" {
		return id, nil
	}
	lists, err := p.store.ListTaskLists(ctx)
	if err != nil {
		return "", fmt.Errorf("list task lists: %w", err)
	}
	if len(lists) == 0 {
		return "", ErrNoTaskList
	}
	p.log.Info("using default task list", zap.String("list", lists[0].Name))
	return lists[0].ID, nil
}

// Commit creates every candidate, one call each and in order. A failed creation is
// recorded and the next candidate is still attempted. Only list resolution can fail
// the stage.
func (p *Pipeline) Commit(ctx context.Context, unique []Candidate, listID string) (CommitResult, error) {
	if len(unique) == 0 {
		return CommitResult{ListID: strings.TrimSpace(listID)}, nil
	}
	resolved, err := p.ResolveList(ctx, listID)
	if err != nil {
		return CommitResult{}, err
	}

	res := CommitResult{ListID: resolved}
	for _, c := range unique {
		ref, err := p.store.CreateTask(ctx, resolved, NewTask{
			Title:      c.Task,
			Body:       TaskBody(c),
			DueDate:    c.DueDate,
			Importance: Importance(c.Priority),
		})
		if err != nil {
			msg := util.RedactSecrets(err.Error())
			p.log.Warn("task creation failed", zap.String("task", c.Task), zap.String("error", msg))
			res.Errors = append(res.Errors, CreationError{Task: c.Task, Err: msg})
			continue
		}
		listOf := ref.ListID
		if listOf == "" {
			listOf = resolved
		}
		res.Created = append(res.Created, CreatedTask{Title: c.Task, TaskID: ref.ID, ListID: listOf})
	}
	p.metrics.recordCommit(len(res.Created), len(res.Errors))
	p.log.Info("commit complete",
		zap.Int("unique", len(unique)),
		zap.Int("created", len(res.Created)),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}
