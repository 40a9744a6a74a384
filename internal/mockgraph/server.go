// Package mockgraph serves an in-memory subset of the Graph mail, chat and To Do API.
// It backs the graph client tests, the app flow tests, local mode and cmd/mock-graph.
package mockgraph

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shpitdev/commsync-todo/internal/graph"
)

// BasePath is the version prefix the mock serves under; point graph clients at
// <server URL> + BasePath.
const BasePath = "/v1.0"

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Query  string
}

type chatState struct {
	chat     graph.Chat
	messages []graph.ChatMessage
}

type listState struct {
	list  graph.TodoTaskList
	tasks []graph.TodoTask // creation order
}

// Server implements a minimal "Graph-like" API for a single mailbox owner. Requests for
// /me and /users/{id} resolve to the same data.
type Server struct {
	mu    sync.Mutex
	calls []Call
	now   func() time.Time

	expectedAuthorization string
	failTitles            map[string]bool
	failPaths             map[string]int

	profile  graph.User
	messages []graph.Message
	chats    []*chatState
	lists    []*listState
}

// New constructs an empty mock server.
func New() *Server {
	return &Server{
		now:        time.Now,
		failTitles: make(map[string]bool),
		failPaths:  make(map[string]int),
	}
}

// RequireBearerToken enforces that requests include an Authorization header matching the token.
// If token is empty, authorization is not enforced.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// FailTasksTitled makes task creation fail with a 500 for the given titles.
func (s *Server) FailTasksTitled(titles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range titles {
		s.failTitles[strings.TrimSpace(t)] = true
	}
}

// FailPath makes GET requests whose path ends with suffix answer status.
func (s *Server) FailPath(suffix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[suffix] = status
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// SetProfile sets the user returned for /me and /users/{id}. An empty ID is generated.
func (s *Server) SetProfile(u graph.User) graph.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.profile = u
	return u
}

// AddMessage seeds a mailbox message. Empty IDs are generated.
func (s *Server) AddMessage(m graph.Message) graph.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.messages = append(s.messages, m)
	return m
}

// AddChat seeds a chat with its messages. Empty IDs are generated.
func (s *Server) AddChat(c graph.Chat, msgs ...graph.ChatMessage) graph.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		if msgs[i].CreatedDateTime.After(c.LastUpdatedDateTime) {
			c.LastUpdatedDateTime = msgs[i].CreatedDateTime
		}
	}
	s.chats = append(s.chats, &chatState{chat: c, messages: msgs})
	return c
}

// AddList seeds a task list. Empty IDs are generated.
func (s *Server) AddList(name string) graph.TodoTaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addListLocked(name)
}

func (s *Server) addListLocked(name string) graph.TodoTaskList {
	l := graph.TodoTaskList{ID: uuid.NewString(), DisplayName: name, IsOwner: true}
	s.lists = append(s.lists, &listState{list: l})
	return l
}

// AddTask seeds a task into a list.
func (s *Server) AddTask(listID string, t graph.TodoTask) (graph.TodoTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.findListLocked(listID)
	if ls == nil {
		return graph.TodoTask{}, fmt.Errorf("unknown list %q", listID)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = graph.TaskStatusNotStarted
	}
	if t.Importance == "" {
		t.Importance = graph.ImportanceNormal
	}
	if t.CreatedDateTime.IsZero() {
		t.CreatedDateTime = s.now().UTC()
	}
	ls.tasks = append(ls.tasks, t)
	return t, nil
}

// Tasks returns a snapshot of a list's tasks in creation order.
func (s *Server) Tasks(listID string) []graph.TodoTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.findListLocked(listID)
	if ls == nil {
		return nil
	}
	out := make([]graph.TodoTask, len(ls.tasks))
	copy(out, ls.tasks)
	return out
}

// Lists returns a snapshot of the task lists.
func (s *Server) Lists() []graph.TodoTaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]graph.TodoTaskList, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, l.list)
	}
	return out
}

func (s *Server) findListLocked(id string) *listState {
	for _, l := range s.lists {
		if l.list.ID == id {
			return l
		}
	}
	return nil
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	expected := s.expectedAuthorization
	s.mu.Unlock()

	if expected == "" {
		return true
	}
	if r.Header.Get("Authorization") != expected {
		writeError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "Access token is empty or invalid.")
		return false
	}
	return true
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if !s.authorize(w, r) {
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, BasePath+"/")
	if !ok {
		writeError(w, http.StatusNotFound, "ResourceNotFound", "unknown version")
		return
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	// /me/... or /users/{id}/...
	switch {
	case len(parts) >= 1 && parts[0] == "me":
		parts = parts[1:]
	case len(parts) >= 2 && parts[0] == "users":
		parts = parts[2:]
	default:
		writeError(w, http.StatusNotFound, "ResourceNotFound", "unknown resource")
		return
	}

	if r.Method == http.MethodGet {
		s.mu.Lock()
		status := 0
		for suffix, st := range s.failPaths {
			if strings.HasSuffix(r.URL.Path, suffix) {
				status = st
				break
			}
		}
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, "InjectedFailure", "injected failure")
			return
		}
	}

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		s.handleProfile(w)
	case len(parts) == 1 && parts[0] == "messages" && r.Method == http.MethodGet:
		s.handleListMessages(w, r)
	case len(parts) == 1 && parts[0] == "chats" && r.Method == http.MethodGet:
		s.handleListChats(w, r)
	case len(parts) == 3 && parts[0] == "chats" && parts[2] == "messages" && r.Method == http.MethodGet:
		s.handleListChatMessages(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "todo" && parts[1] == "lists":
		s.handleLists(w, r)
	case len(parts) == 4 && parts[0] == "todo" && parts[1] == "lists" && parts[3] == "tasks":
		s.handleTasks(w, r, parts[2])
	case len(parts) == 5 && parts[0] == "todo" && parts[1] == "lists" && parts[3] == "tasks":
		s.handleTask(w, r, parts[2], parts[4])
	default:
		writeError(w, http.StatusNotFound, "ResourceNotFound", "unknown resource")
	}
}
