// Package todo turns mail and chat traffic into To Do tasks.
//
// A run moves through fixed stages, each with its own input and output values:
// normalize records into plain text, extract candidates one item at a time, decide
// uniqueness against the open-task snapshot in one model call, then create the unique
// candidates. Extraction fails closed (a model error aborts the run); deduplication
// fails open (a model error treats every candidate as unique).
package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority folds model output ("high priority", "neutral", "Low") onto the three
// supported levels.
func ParsePriority(s string) Priority {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "high"):
		return PriorityHigh
	case strings.Contains(s, "low"):
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Candidate is an extracted task that has not been committed yet.
type Candidate struct {
	Task           string   `json:"task"`
	Priority       Priority `json:"priority"`
	Comments       string   `json:"comments,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	PersonInvolved string   `json:"person_involved,omitempty"`
}

// Source identifies the content class a candidate was extracted from.
type Source string

const (
	SourceEmail Source = "email"
	SourceChat  Source = "chat"
)

// ExistingTask is a read-only view of an open task already in the store.
type ExistingTask struct {
	TaskID     string
	Title      string
	Body       string
	DueDate    string
	Importance string
	ListID     string
	ListName   string
}

type TaskList struct {
	ID   string
	Name string
}

// NewTask is what the commit stage asks the store to create.
type NewTask struct {
	Title      string
	Body       string
	DueDate    string
	Importance string
}

type TaskRef struct {
	ID     string
	ListID string
}

// TaskStore is the external task store. ListOpenTasks returns only tasks that are not
// completed.
type TaskStore interface {
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	ListOpenTasks(ctx context.Context, listID string) ([]ExistingTask, error)
	CreateTask(ctx context.Context, listID string, t NewTask) (TaskRef, error)
}

type CreatedTask struct {
	Title  string
	TaskID string
	ListID string
}

type CreationError struct {
	Task string
	Err  string
}

// ErrNoTaskList is returned when no list was given and the store has none.
var ErrNoTaskList = errors.New("no task list available")

// ExtractionError reports a failed model call during extraction. It aborts the run.
type ExtractionError struct {
	Source Source
	Index  int
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s tasks (item %d): %v", e.Source, e.Index+1, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
