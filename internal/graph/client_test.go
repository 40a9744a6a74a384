package graph_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/mockgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

const testToken = "test-token"

func newTestClient(t *testing.T, srv *mockgraph.Server, userID string) *graph.Client {
	t.Helper()
	srv.RequireBearerToken(testToken)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	c, err := graph.NewClient(context.Background(), graph.Options{
		BaseURL:     hs.URL + mockgraph.BasePath,
		UserID:      userID,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testToken}),
	})
	require.NoError(t, err)
	return c
}

func TestListMessages_WarnsWhenPageCapTruncates(t *testing.T) {
	srv := mockgraph.New()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		srv.AddMessage(graph.Message{Subject: fmt.Sprintf("msg %02d", i), ReceivedDateTime: base.Add(time.Duration(i) * time.Minute)})
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	core, logs := observer.New(zap.WarnLevel)
	c, err := graph.NewClient(context.Background(), graph.Options{
		BaseURL:     hs.URL + mockgraph.BasePath,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testToken}),
		MaxPages:    1,
		Logger:      zap.New(core),
	})
	require.NoError(t, err)

	msgs, err := c.ListMessages(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, msgs, 50)

	entries := logs.FilterMessage("page cap reached, remaining results dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "listMessages", entries[0].ContextMap()["op"])
}

func TestNewClient_Validation(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"})
	_, err := graph.NewClient(context.Background(), graph.Options{TokenSource: ts})
	assert.Error(t, err)
	_, err = graph.NewClient(context.Background(), graph.Options{BaseURL: "graph.microsoft.com", TokenSource: ts})
	assert.Error(t, err)
	_, err = graph.NewClient(context.Background(), graph.Options{BaseURL: "https://graph.microsoft.com/v1.0"})
	assert.Error(t, err)
}

func TestListMessages_FiltersByRangeAndFollowsNextLink(t *testing.T) {
	srv := mockgraph.New()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		srv.AddMessage(graph.Message{
			Subject:          fmt.Sprintf("msg %02d", i),
			ReceivedDateTime: base.Add(time.Duration(i) * time.Minute),
		})
	}
	srv.AddMessage(graph.Message{Subject: "too old", ReceivedDateTime: base.AddDate(0, -3, 0)})

	c := newTestClient(t, srv, "")
	msgs, err := c.ListMessages(context.Background(), base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, msgs, 60)
	assert.Equal(t, "msg 59", msgs[0].Subject)
	assert.Equal(t, "msg 00", msgs[59].Subject)

	var pages int
	for _, call := range srv.Calls() {
		if call.Path == mockgraph.BasePath+"/me/messages" {
			pages++
			assert.Contains(t, call.Query, "receivedDateTime+ge+2025-03-01T08%3A00%3A00Z")
		}
	}
	assert.Equal(t, 2, pages)
}

func TestRecentChatMessages_SkipsFailingChatAndSortsNewestFirst(t *testing.T) {
	srv := mockgraph.New()
	t0 := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	srv.AddChat(graph.Chat{ID: "c1", Topic: "Launch"},
		graph.ChatMessage{CreatedDateTime: t0, Body: &graph.ItemBody{Content: "first"}},
		graph.ChatMessage{CreatedDateTime: t0.Add(2 * time.Minute), Body: &graph.ItemBody{Content: "third"}},
	)
	srv.AddChat(graph.Chat{ID: "c2"},
		graph.ChatMessage{CreatedDateTime: t0.Add(time.Minute), Body: &graph.ItemBody{Content: "second"}},
	)
	srv.AddChat(graph.Chat{ID: "broken", Topic: "Broken"},
		graph.ChatMessage{CreatedDateTime: t0.Add(-time.Hour), Body: &graph.ItemBody{Content: "unreachable"}},
	)
	srv.FailPath("/chats/broken/messages", http.StatusInternalServerError)

	c := newTestClient(t, srv, "")
	got, err := c.RecentChatMessages(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Message.Body.Content)
	assert.Equal(t, "Launch", got[0].ChatTopic)
	assert.Equal(t, "second", got[1].Message.Body.Content)
	assert.Equal(t, graph.UnnamedChat, got[1].ChatTopic)
	assert.Equal(t, "first", got[2].Message.Body.Content)
}

func TestRecentChatMessages_ListFailureIsAnError(t *testing.T) {
	srv := mockgraph.New()
	srv.FailPath("/me/chats", http.StatusServiceUnavailable)
	c := newTestClient(t, srv, "")

	_, err := c.RecentChatMessages(context.Background(), 5, 10)
	var he *graph.HTTPError
	require.True(t, errors.As(err, &he), "err=%v", err)
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)
	assert.Equal(t, "InjectedFailure", he.Code)
}

func TestTaskLifecycle(t *testing.T) {
	srv := mockgraph.New()
	c := newTestClient(t, srv, "")
	ctx := context.Background()

	work, err := c.CreateTaskList(ctx, "Work")
	require.NoError(t, err)
	_, err = c.CreateTaskList(ctx, "  ")
	require.Error(t, err)

	created, err := c.CreateTask(ctx, work.ID, graph.NewTask{
		Title:      "Send report",
		Body:       "Quarterly numbers",
		DueDate:    "2025-03-07",
		Importance: "High",
	})
	require.NoError(t, err)
	assert.Equal(t, "high", created.Importance)
	require.NotNil(t, created.DueDateTime)
	assert.Equal(t, "2025-03-07T00:00:00", created.DueDateTime.DateTime)
	assert.Equal(t, "UTC", created.DueDateTime.TimeZone)
	assert.Equal(t, "2025-03-07", created.DueDate())
	assert.Equal(t, "Quarterly numbers", created.BodyText())

	other, err := c.CreateTask(ctx, work.ID, graph.NewTask{Title: "Book venue", Importance: "lowest"})
	require.NoError(t, err)
	assert.Equal(t, "low", other.Importance)

	title := "Send the report"
	updated, err := c.UpdateTask(ctx, work.ID, created.ID, graph.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = c.CompleteTask(ctx, work.ID, other.ID)
	require.NoError(t, err)

	open, err := c.ListTasks(ctx, work.ID, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, created.ID, open[0].ID)

	all, err := c.ListTasks(ctx, work.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, c.DeleteTask(ctx, work.ID, created.ID))
	open, err = c.ListTasks(ctx, work.ID, true)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestListAllOpenTasks_FlattensAcrossLists(t *testing.T) {
	srv := mockgraph.New()
	a := srv.AddList("Tasks")
	b := srv.AddList("")
	_, err := srv.AddTask(a.ID, graph.TodoTask{Title: "one"})
	require.NoError(t, err)
	_, err = srv.AddTask(a.ID, graph.TodoTask{Title: "done", Status: graph.TaskStatusCompleted})
	require.NoError(t, err)
	_, err = srv.AddTask(b.ID, graph.TodoTask{Title: "two"})
	require.NoError(t, err)

	c := newTestClient(t, srv, "someone@example.com")
	got, err := c.ListAllOpenTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Tasks", got[0].ListName)
	assert.Equal(t, "one", got[0].Task.Title)
	assert.Equal(t, graph.UnnamedList, got[1].ListName)
	assert.Equal(t, b.ID, got[1].ListID)

	for _, call := range srv.Calls() {
		assert.True(t, strings.HasPrefix(call.Path, mockgraph.BasePath+"/users/someone@example.com/"), call.Path)
	}
}

func TestMe(t *testing.T) {
	srv := mockgraph.New()
	want := srv.SetProfile(graph.User{DisplayName: "Ana Costa", UserPrincipalName: "ana@example.com", JobTitle: "Engineer"})

	c := newTestClient(t, srv, "ana@example.com")
	got, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, mockgraph.BasePath+"/users/ana@example.com", calls[0].Path)
}

func TestMe_MissingProfile(t *testing.T) {
	c := newTestClient(t, mockgraph.New(), "")
	_, err := c.Me(context.Background())
	var he *graph.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
}

func TestUnauthorizedReturnsHTTPError(t *testing.T) {
	srv := mockgraph.New()
	srv.RequireBearerToken("other")
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	c, err := graph.NewClient(context.Background(), graph.Options{
		BaseURL:     hs.URL + mockgraph.BasePath,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testToken}),
	})
	require.NoError(t, err)

	_, err = c.ListTaskLists(context.Background())
	var he *graph.HTTPError
	require.True(t, errors.As(err, &he), "err=%v", err)
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
	assert.Equal(t, "InvalidAuthenticationToken", he.Code)
	assert.NotContains(t, err.Error(), testToken)
}

func TestCredentials_ClientCredentialsFlow(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenSrv.Close()

	srv := mockgraph.New()
	srv.RequireBearerToken("issued-token")
	srv.AddList("Tasks")
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	ts, err := graph.Credentials{
		TokenURL:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	}.TokenSource(context.Background())
	require.NoError(t, err)

	c, err := graph.NewClient(context.Background(), graph.Options{BaseURL: hs.URL + mockgraph.BasePath, TokenSource: ts})
	require.NoError(t, err)
	lists, err := c.ListTaskLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
}

func TestCredentials_Incomplete(t *testing.T) {
	_, err := graph.Credentials{ClientID: "id"}.TokenSource(context.Background())
	assert.Error(t, err)

	ts, err := graph.Credentials{Token: "static"}.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "static", tok.AccessToken)
}

func TestNormalizeImportance(t *testing.T) {
	tests := map[string]string{
		"high":    "high",
		" HIGH ":  "high",
		"low":     "low",
		"lowish":  "low",
		"normal":  "normal",
		"neutral": "normal",
		"":        "normal",
		"urgent":  "normal",
	}
	for in, want := range tests {
		assert.Equal(t, want, graph.NormalizeImportance(in), "input %q", in)
	}
}
