package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/todo"
)

// Graph is the subset of the Graph client the command flows use.
type Graph interface {
	Me(ctx context.Context) (graph.User, error)
	ListMessages(ctx context.Context, start, end time.Time) ([]graph.Message, error)
	ListRecentChats(ctx context.Context, limit int) ([]graph.Chat, error)
	RecentChatMessages(ctx context.Context, numChats, perChat int) ([]graph.ChatThreadMessage, error)
	ListTaskLists(ctx context.Context) ([]graph.TodoTaskList, error)
	ListTasks(ctx context.Context, listID string, openOnly bool) ([]graph.TodoTask, error)
	ListAllOpenTasks(ctx context.Context) ([]graph.ListedTask, error)
	CreateTask(ctx context.Context, listID string, t graph.NewTask) (graph.TodoTask, error)
	CompleteTask(ctx context.Context, listID, taskID string) (graph.TodoTask, error)
	DeleteTask(ctx context.Context, listID, taskID string) error
	CreateTaskList(ctx context.Context, name string) (graph.TodoTaskList, error)
}

// TaskStore adapts the Graph To Do endpoints to todo.TaskStore. List names seen by
// ListTaskLists are remembered so open tasks can be labelled with their list.
type TaskStore struct {
	g Graph

	mu    sync.Mutex
	names map[string]string
}

var _ todo.TaskStore = (*TaskStore)(nil)

func NewTaskStore(g Graph) *TaskStore {
	return &TaskStore{g: g, names: make(map[string]string)}
}

func (s *TaskStore) ListTaskLists(ctx context.Context) ([]todo.TaskList, error) {
	lists, err := s.g.ListTaskLists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]todo.TaskList, 0, len(lists))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lists {
		name := strings.TrimSpace(l.DisplayName)
		if name == "" {
			name = graph.UnnamedList
		}
		s.names[l.ID] = name
		out = append(out, todo.TaskList{ID: l.ID, Name: name})
	}
	return out, nil
}

func (s *TaskStore) ListOpenTasks(ctx context.Context, listID string) ([]todo.ExistingTask, error) {
	tasks, err := s.g.ListTasks(ctx, listID, true)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	name := s.names[listID]
	s.mu.Unlock()

	out := make([]todo.ExistingTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, todo.ExistingTask{
			TaskID:     t.ID,
			Title:      t.Title,
			Body:       t.BodyText(),
			DueDate:    t.DueDate(),
			Importance: t.Importance,
			ListID:     listID,
			ListName:   name,
		})
	}
	return out, nil
}

func (s *TaskStore) CreateTask(ctx context.Context, listID string, t todo.NewTask) (todo.TaskRef, error) {
	created, err := s.g.CreateTask(ctx, listID, graph.NewTask{
		Title:      t.Title,
		Body:       t.Body,
		DueDate:    t.DueDate,
		Importance: t.Importance,
	})
	if err != nil {
		return todo.TaskRef{}, err
	}
	return todo.TaskRef{ID: created.ID, ListID: listID}, nil
}
