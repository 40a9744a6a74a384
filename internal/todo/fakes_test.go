package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"google.golang.org/genai"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedModel answers extraction and deduplication calls from canned functions and
// records every prompt it receives.
type scriptedModel struct {
	mu sync.Mutex

	extract func(prompt string) (string, error)
	dedup   func(prompt string) (string, error)

	extractPrompts []string
	dedupPrompts   []string
}

func (m *scriptedModel) Generate(_ context.Context, prompt string, schema *genai.Schema) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch schema {
	case candidateListSchema:
		m.extractPrompts = append(m.extractPrompts, prompt)
		if m.extract == nil {
			return `{"entries":[]}`, nil
		}
		return m.extract(prompt)
	case verdictListSchema:
		m.dedupPrompts = append(m.dedupPrompts, prompt)
		if m.dedup == nil {
			return "", errors.New("unexpected deduplication call")
		}
		return m.dedup(prompt)
	default:
		return "", fmt.Errorf("unexpected schema %v", schema)
	}
}

func (m *scriptedModel) extractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.extractPrompts)
}

func (m *scriptedModel) dedupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dedupPrompts)
}

func entriesJSON(cs ...map[string]any) string {
	b, _ := json.Marshal(map[string]any{"entries": cs})
	return string(b)
}

func verdictsJSON(pairs ...any) string {
	var vs []map[string]any
	for i := 0; i+1 < len(pairs); i += 2 {
		vs = append(vs, map[string]any{"task_number": pairs[i], "status": pairs[i+1]})
	}
	b, _ := json.Marshal(map[string]any{"task_status": vs})
	return string(b)
}

// fakeStore is an in-memory TaskStore.
type fakeStore struct {
	mu sync.Mutex

	lists    []TaskList
	open     map[string][]ExistingTask
	failList map[string]bool
	listErr  error

	// failCreate rejects creation of these titles.
	failCreate map[string]bool

	creates []createCall
	nextID  int
}

type createCall struct {
	ListID string
	Task   NewTask
}

func newFakeStore(lists ...TaskList) *fakeStore {
	return &fakeStore{
		lists:      lists,
		open:       make(map[string][]ExistingTask),
		failList:   make(map[string]bool),
		failCreate: make(map[string]bool),
	}
}

func (s *fakeStore) ListTaskLists(context.Context) ([]TaskList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]TaskList(nil), s.lists...), nil
}

func (s *fakeStore) ListOpenTasks(_ context.Context, listID string) ([]ExistingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList[listID] {
		return nil, errors.New("list unavailable")
	}
	return append([]ExistingTask(nil), s.open[listID]...), nil
}

func (s *fakeStore) CreateTask(_ context.Context, listID string, t NewTask) (TaskRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, createCall{ListID: listID, Task: t})
	if s.failCreate[t.Title] {
		return TaskRef{}, errors.New("store rejected task")
	}
	s.nextID++
	return TaskRef{ID: fmt.Sprintf("task-%d", s.nextID), ListID: listID}, nil
}

func (s *fakeStore) createCalls() []createCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]createCall(nil), s.creates...)
}
