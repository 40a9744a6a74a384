// Package graph is a small HTTP client for the Microsoft Graph mail, chat and To Do
// endpoints the task pipeline reads from and writes to.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultScope is the client-credentials scope for Graph.
const DefaultScope = "https://graph.microsoft.com/.default"

const (
	defaultPageSize = 50
	defaultMaxPages = 10
)

// Credentials selects how requests are authenticated. A static Token wins over client
// credentials.
type Credentials struct {
	Token string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// TokenSource builds an oauth2 token source for the given credentials.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if tok := strings.TrimSpace(c.Token); tok != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}), nil
	}
	if strings.TrimSpace(c.TokenURL) == "" || strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, fmt.Errorf("graph credentials incomplete: need a token or token url, client id and client secret")
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	cc := &clientcredentials.Config{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		TokenURL:     strings.TrimSpace(c.TokenURL),
		Scopes:       scopes,
	}
	return cc.TokenSource(ctx), nil
}

type Options struct {
	// BaseURL is the versioned Graph root, for example "https://graph.microsoft.com/v1.0".
	BaseURL string
	// UserID selects /users/{id}; empty means /me.
	UserID string

	TokenSource oauth2.TokenSource
	Timeout     time.Duration

	// MaxPages caps @odata.nextLink traversal for list calls.
	MaxPages int

	// Logger reports list calls cut short by MaxPages. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Client talks to the Graph REST API on behalf of one user.
type Client struct {
	baseURL  *url.URL
	userPath string
	http     *http.Client
	maxPages int
	log      *zap.Logger
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("graph base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse graph base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("graph base URL must include a scheme and host (got %q)", opts.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if opts.TokenSource == nil {
		return nil, fmt.Errorf("graph token source is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := oauth2.NewClient(ctx, opts.TokenSource)
	hc.Timeout = timeout

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	userPath := "/me"
	if id := strings.TrimSpace(opts.UserID); id != "" {
		userPath = "/users/" + url.PathEscape(id)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: u, userPath: userPath, http: hc, maxPages: maxPages, log: log}, nil
}

// Me returns the profile of the user the client acts for.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	if err := c.getJSON(ctx, "getProfile", c.resolve(c.userPath, nil), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// ListMessages returns mailbox messages received within [start, end]. Zero times leave
// that side of the range open.
func (c *Client) ListMessages(ctx context.Context, start, end time.Time) ([]Message, error) {
	var filters []string
	if !start.IsZero() {
		filters = append(filters, "receivedDateTime ge "+start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		filters = append(filters, "receivedDateTime le "+end.UTC().Format(time.RFC3339))
	}
	q := url.Values{}
	if len(filters) > 0 {
		q.Set("$filter", strings.Join(filters, " and "))
	}
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$top", strconv.Itoa(defaultPageSize))

	var out []Message
	err := c.listPaged(ctx, "listMessages", c.userPath+"/messages", q, func(raw json.RawMessage) error {
		var page []Message
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

// ListRecentChats returns up to limit chats, most recently active first.
func (c *Client) ListRecentChats(ctx context.Context, limit int) ([]Chat, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("$top", strconv.Itoa(limit))
	}
	q.Set("$orderby", "lastMessagePreview/createdDateTime desc")
	q.Set("$expand", "lastMessagePreview,members")

	var out []Chat
	if err := c.getJSON(ctx, "listRecentChats", c.resolve(c.userPath+"/chats", q), &valueOf[Chat]{Value: &out}); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListChatMessages returns up to limit messages of one chat, newest first.
func (c *Client) ListChatMessages(ctx context.Context, chatID string, limit int) ([]ChatMessage, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("chat id is required")
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("$top", strconv.Itoa(limit))
	}
	q.Set("$orderby", "createdDateTime desc")

	var out []ChatMessage
	p := c.userPath + "/chats/" + url.PathEscape(chatID) + "/messages"
	if err := c.getJSON(ctx, "listChatMessages", c.resolve(p, q), &valueOf[ChatMessage]{Value: &out}); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecentChatMessages gathers up to perChat messages from each of the numChats most recent
// chats and returns them newest first. A chat whose messages cannot be read is skipped;
// failing to list chats is an error.
func (c *Client) RecentChatMessages(ctx context.Context, numChats, perChat int) ([]ChatThreadMessage, error) {
	chats, err := c.ListRecentChats(ctx, numChats)
	if err != nil {
		return nil, err
	}
	var out []ChatThreadMessage
	for _, chat := range chats {
		topic := strings.TrimSpace(chat.Topic)
		if topic == "" {
			topic = UnnamedChat
		}
		msgs, err := c.ListChatMessages(ctx, chat.ID, perChat)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, m := range msgs {
			out = append(out, ChatThreadMessage{ChatID: chat.ID, ChatTopic: topic, Message: m})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Message.CreatedDateTime.After(out[j].Message.CreatedDateTime)
	})
	return out, nil
}

// ListTaskLists returns the user's To Do lists in provider order.
func (c *Client) ListTaskLists(ctx context.Context) ([]TodoTaskList, error) {
	var out []TodoTaskList
	err := c.listPaged(ctx, "listTaskLists", c.userPath+"/todo/lists", url.Values{}, func(raw json.RawMessage) error {
		var page []TodoTaskList
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

// ListTasks returns the tasks of one list, newest first. openOnly excludes completed tasks.
func (c *Client) ListTasks(ctx context.Context, listID string, openOnly bool) ([]TodoTask, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return nil, fmt.Errorf("list id is required")
	}
	q := url.Values{}
	if openOnly {
		q.Set("$filter", "status ne 'completed'")
	}
	q.Set("$orderby", "createdDateTime desc")

	var out []TodoTask
	err := c.listPaged(ctx, "listTasks", c.tasksPath(listID), q, func(raw json.RawMessage) error {
		var page []TodoTask
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

// ListAllOpenTasks flattens the open tasks of every list. Lists whose tasks cannot be
// read are skipped.
func (c *Client) ListAllOpenTasks(ctx context.Context) ([]ListedTask, error) {
	lists, err := c.ListTaskLists(ctx)
	if err != nil {
		return nil, err
	}
	var out []ListedTask
	for _, l := range lists {
		name := strings.TrimSpace(l.DisplayName)
		if name == "" {
			name = UnnamedList
		}
		tasks, err := c.ListTasks(ctx, l.ID, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, t := range tasks {
			out = append(out, ListedTask{ListID: l.ID, ListName: name, Task: t})
		}
	}
	return out, nil
}

type taskPayload struct {
	Title       string            `json:"title,omitempty"`
	Body        *ItemBody         `json:"body,omitempty"`
	DueDateTime *DateTimeTimeZone `json:"dueDateTime,omitempty"`
	Importance  string            `json:"importance,omitempty"`
	Status      string            `json:"status,omitempty"`
}

// CreateTask creates a task in listID.
func (c *Client) CreateTask(ctx context.Context, listID string, t NewTask) (TodoTask, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return TodoTask{}, fmt.Errorf("list id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return TodoTask{}, fmt.Errorf("task title is required")
	}
	p := taskPayload{
		Title:      strings.TrimSpace(t.Title),
		Importance: NormalizeImportance(t.Importance),
	}
	if t.Body != "" {
		p.Body = &ItemBody{ContentType: "text", Content: t.Body}
	}
	if d := strings.TrimSpace(t.DueDate); d != "" {
		p.DueDateTime = dueDateTime(d)
	}

	var out TodoTask
	if err := c.sendJSON(ctx, "createTask", http.MethodPost, c.tasksPath(listID), p, &out); err != nil {
		return TodoTask{}, err
	}
	return out, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, listID, taskID string, u TaskUpdate) (TodoTask, error) {
	if strings.TrimSpace(listID) == "" || strings.TrimSpace(taskID) == "" {
		return TodoTask{}, fmt.Errorf("list id and task id are required")
	}
	var p taskPayload
	if u.Title != nil {
		p.Title = strings.TrimSpace(*u.Title)
	}
	if u.Body != nil {
		p.Body = &ItemBody{ContentType: "text", Content: *u.Body}
	}
	if u.DueDate != nil && strings.TrimSpace(*u.DueDate) != "" {
		p.DueDateTime = dueDateTime(strings.TrimSpace(*u.DueDate))
	}
	if u.Importance != nil {
		p.Importance = NormalizeImportance(*u.Importance)
	}
	if u.Status != nil {
		p.Status = strings.TrimSpace(*u.Status)
	}

	var out TodoTask
	path := c.tasksPath(listID) + "/" + url.PathEscape(strings.TrimSpace(taskID))
	if err := c.sendJSON(ctx, "updateTask", http.MethodPatch, path, p, &out); err != nil {
		return TodoTask{}, err
	}
	return out, nil
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, listID, taskID string) (TodoTask, error) {
	status := TaskStatusCompleted
	return c.UpdateTask(ctx, listID, taskID, TaskUpdate{Status: &status})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	if strings.TrimSpace(listID) == "" || strings.TrimSpace(taskID) == "" {
		return fmt.Errorf("list id and task id are required")
	}
	path := c.tasksPath(listID) + "/" + url.PathEscape(strings.TrimSpace(taskID))
	return c.sendJSON(ctx, "deleteTask", http.MethodDelete, path, nil, nil)
}

// CreateTaskList creates a new To Do list.
func (c *Client) CreateTaskList(ctx context.Context, name string) (TodoTaskList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TodoTaskList{}, fmt.Errorf("list name is required")
	}
	var out TodoTaskList
	body := map[string]string{"displayName": name}
	if err := c.sendJSON(ctx, "createTaskList", http.MethodPost, c.userPath+"/todo/lists", body, &out); err != nil {
		return TodoTaskList{}, err
	}
	return out, nil
}

// NormalizeImportance maps free-form priority text onto Graph importance values.
func NormalizeImportance(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == ImportanceHigh:
		return ImportanceHigh
	case strings.Contains(s, ImportanceLow):
		return ImportanceLow
	default:
		return ImportanceNormal
	}
}

func dueDateTime(d string) *DateTimeTimeZone {
	if !strings.Contains(d, "T") {
		d += "T00:00:00"
	}
	return &DateTimeTimeZone{DateTime: d, TimeZone: "UTC"}
}

func (c *Client) tasksPath(listID string) string {
	return c.userPath + "/todo/lists/" + url.PathEscape(strings.TrimSpace(listID)) + "/tasks"
}

// resolve joins an already-escaped path onto the base URL.
func (c *Client) resolve(p string, q url.Values) *url.URL {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + p
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	} else {
		u.Path = u.RawPath
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return &u
}

type valueOf[T any] struct {
	Value *[]T `json:"value"`
}

type page struct {
	Value    json.RawMessage `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

func (c *Client) listPaged(ctx context.Context, op, p string, q url.Values, add func(json.RawMessage) error) error {
	next := c.resolve(p, q).String()
	for i := 0; next != "" && i < c.maxPages; i++ {
		u, err := url.Parse(next)
		if err != nil {
			return fmt.Errorf("%s: parse next link: %w", op, err)
		}
		if u.Host != c.baseURL.Host {
			return fmt.Errorf("%s: next link points at unexpected host %q", op, u.Host)
		}
		var pg page
		if err := c.getJSON(ctx, op, u, &pg); err != nil {
			return err
		}
		if len(pg.Value) > 0 {
			if err := add(pg.Value); err != nil {
				return fmt.Errorf("%s: decode page: %w", op, err)
			}
		}
		next = pg.NextLink
	}
	if next != "" {
		c.log.Warn("page cap reached, remaining results dropped",
			zap.String("op", op),
			zap.Int("max_pages", c.maxPages),
		)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op string, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(p, nil).String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError(op, resp, rb)
	}
	if out == nil || len(bytes.TrimSpace(rb)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", op, err)
	}
	return nil
}
