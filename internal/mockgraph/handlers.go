package mockgraph

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shpitdev/commsync-todo/internal/graph"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleProfile(w http.ResponseWriter) {
	s.mu.Lock()
	u := s.profile
	s.mu.Unlock()
	if u.ID == "" {
		writeError(w, http.StatusNotFound, "Request_ResourceNotFound", "no profile configured")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ge, le, err := parseReceivedFilter(q.Get("$filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	s.mu.Lock()
	var out []graph.Message
	for _, m := range s.messages {
		if !ge.IsZero() && m.ReceivedDateTime.Before(ge) {
			continue
		}
		if !le.IsZero() && m.ReceivedDateTime.After(le) {
			continue
		}
		out = append(out, m)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedDateTime.After(out[j].ReceivedDateTime)
	})
	writePage(w, r, out)
}

// parseReceivedFilter understands "receivedDateTime ge <ts> and receivedDateTime le <ts>".
func parseReceivedFilter(f string) (ge, le time.Time, err error) {
	f = strings.TrimSpace(f)
	if f == "" {
		return ge, le, nil
	}
	for _, clause := range strings.Split(f, " and ") {
		fields := strings.Fields(clause)
		if len(fields) != 3 || fields[0] != "receivedDateTime" {
			return ge, le, &filterError{clause: clause}
		}
		ts, perr := time.Parse(time.RFC3339, fields[2])
		if perr != nil {
			return ge, le, &filterError{clause: clause}
		}
		switch fields[1] {
		case "ge":
			ge = ts
		case "le":
			le = ts
		default:
			return ge, le, &filterError{clause: clause}
		}
	}
	return ge, le, nil
}

type filterError struct{ clause string }

func (e *filterError) Error() string { return "unsupported filter clause: " + e.clause }

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]graph.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.chat)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdatedDateTime.After(out[j].LastUpdatedDateTime)
	})
	out = applyTop(out, r.URL.Query().Get("$top"))
	writeJSON(w, http.StatusOK, map[string]any{"value": out})
}

func (s *Server) handleListChatMessages(w http.ResponseWriter, r *http.Request, chatID string) {
	s.mu.Lock()
	var found *chatState
	for _, c := range s.chats {
		if c.chat.ID == chatID {
			found = c
			break
		}
	}
	var out []graph.ChatMessage
	if found != nil {
		out = append(out, found.messages...)
	}
	s.mu.Unlock()

	if found == nil {
		writeError(w, http.StatusNotFound, "NotFound", "chat not found")
		return
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedDateTime.After(out[j].CreatedDateTime)
	})
	out = applyTop(out, r.URL.Query().Get("$top"))
	writeJSON(w, http.StatusOK, map[string]any{"value": out})
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writePage(w, r, s.Lists())
	case http.MethodPost:
		var body struct {
			DisplayName string `json:"displayName"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.DisplayName) == "" {
			writeError(w, http.StatusBadRequest, "invalidRequest", "displayName is required")
			return
		}
		s.mu.Lock()
		l := s.addListLocked(strings.TrimSpace(body.DisplayName))
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, l)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

type taskBody struct {
	Title       *string                 `json:"title"`
	Body        *graph.ItemBody         `json:"body"`
	DueDateTime *graph.DateTimeTimeZone `json:"dueDateTime"`
	Importance  *string                 `json:"importance"`
	Status      *string                 `json:"status"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, listID string) {
	switch r.Method {
	case http.MethodGet:
		openOnly := false
		if f := strings.TrimSpace(r.URL.Query().Get("$filter")); f != "" {
			if f != "status ne 'completed'" {
				writeError(w, http.StatusBadRequest, "BadRequest", "unsupported filter: "+f)
				return
			}
			openOnly = true
		}
		s.mu.Lock()
		ls := s.findListLocked(listID)
		var out []graph.TodoTask
		if ls != nil {
			// Newest first.
			for i := len(ls.tasks) - 1; i >= 0; i-- {
				t := ls.tasks[i]
				if openOnly && t.Status == graph.TaskStatusCompleted {
					continue
				}
				out = append(out, t)
			}
		}
		s.mu.Unlock()
		if ls == nil {
			writeError(w, http.StatusNotFound, "NotFound", "list not found")
			return
		}
		writePage(w, r, out)

	case http.MethodPost:
		var body taskBody
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Title == nil || strings.TrimSpace(*body.Title) == "" {
			writeError(w, http.StatusBadRequest, "invalidRequest", "title is required")
			return
		}
		s.mu.Lock()
		fail := s.failTitles[strings.TrimSpace(*body.Title)]
		s.mu.Unlock()
		if fail {
			writeError(w, http.StatusInternalServerError, "InternalServerError", "task creation failed")
			return
		}
		t := graph.TodoTask{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(*body.Title),
			Body:        body.Body,
			DueDateTime: body.DueDateTime,
		}
		if body.Importance != nil {
			t.Importance = *body.Importance
		}
		if body.Status != nil {
			t.Status = *body.Status
		}
		created, err := s.AddTask(listID, t)
		if err != nil {
			writeError(w, http.StatusNotFound, "NotFound", "list not found")
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request, listID, taskID string) {
	s.mu.Lock()
	ls := s.findListLocked(listID)
	idx := -1
	if ls != nil {
		for i, t := range ls.tasks {
			if t.ID == taskID {
				idx = i
				break
			}
		}
	}
	s.mu.Unlock()
	if idx < 0 {
		writeError(w, http.StatusNotFound, "NotFound", "task not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		t := ls.tasks[idx]
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, t)

	case http.MethodPatch:
		var body taskBody
		if !decodeBody(w, r, &body) {
			return
		}
		s.mu.Lock()
		t := &ls.tasks[idx]
		if body.Title != nil && strings.TrimSpace(*body.Title) != "" {
			t.Title = strings.TrimSpace(*body.Title)
		}
		if body.Body != nil {
			t.Body = body.Body
		}
		if body.DueDateTime != nil {
			t.DueDateTime = body.DueDateTime
		}
		if body.Importance != nil && *body.Importance != "" {
			t.Importance = *body.Importance
		}
		if body.Status != nil && *body.Status != "" {
			t.Status = *body.Status
		}
		out := *t
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		s.mu.Lock()
		ls.tasks = append(ls.tasks[:idx], ls.tasks[idx+1:]...)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

// writePage serves items honoring $top and $skip, emitting @odata.nextLink while more
// items remain.
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("$skip"))
	if skip < 0 || skip > len(items) {
		skip = len(items)
	}
	end := len(items)
	if top, err := strconv.Atoi(q.Get("$top")); err == nil && top > 0 && skip+top < end {
		end = skip + top
	}

	resp := map[string]any{"value": nonNil(items[skip:end])}
	if end < len(items) {
		nq := url.Values{}
		for k, v := range q {
			nq[k] = v
		}
		nq.Set("$skip", strconv.Itoa(end))
		next := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: nq.Encode()}
		resp["@odata.nextLink"] = next.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func applyTop[T any](items []T, top string) []T {
	n, err := strconv.Atoi(top)
	if err != nil || n <= 0 || n >= len(items) {
		return nonNil(items)
	}
	return items[:n]
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "read body")
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
