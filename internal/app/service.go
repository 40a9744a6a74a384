// Package app wires the task pipeline to Graph and a language model and implements the
// user-facing command flows. Flows report progress through a Notify callback and always
// notify the user-visible outcome; the returned error is for logs and exit codes.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shpitdev/commsync-todo/internal/config"
	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/llm"
	"github.com/shpitdev/commsync-todo/internal/todo"
	"github.com/shpitdev/commsync-todo/internal/util"
	"go.uber.org/zap"
)

// Notify receives one user-visible message.
type Notify func(msg string)

var (
	// ErrNoTaskText is returned by AddTask when no task text was given.
	ErrNoTaskText = errors.New("task text is required")
	// ErrNoTaskGenerated is returned by AddTask when the model produced no task.
	ErrNoTaskGenerated = errors.New("could not generate task")
	// ErrTaskNotFound is returned by CompleteTask and DeleteTask when no open task
	// matches the given title.
	ErrTaskNotFound = errors.New("no matching open task")
)

const (
	emailsLookbackDays = 7
	emailsShown        = 2
	chatsShown         = 5
	teamsChats         = 3
	teamsPerChat       = 5
	teamsShown         = 2
	openTasksPerList   = 10
	createdPreview     = 3
)

type ServiceOptions struct {
	Logger  *zap.Logger
	Metrics *todo.Metrics
	Config  config.PipelineConfig

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs the bot commands for one mailbox owner.
type Service struct {
	graph    Graph
	store    *TaskStore
	pipeline *todo.Pipeline
	log      *zap.Logger
	cfg      config.PipelineConfig
	now      func() time.Time
}

func NewService(g Graph, model llm.Model, opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg.EmailLookbackDays <= 0 {
		cfg.EmailLookbackDays = 40
	}
	if cfg.ChatCount <= 0 {
		cfg.ChatCount = 5
	}
	if cfg.MessagesPerChat <= 0 {
		cfg.MessagesPerChat = 10
	}

	store := NewTaskStore(g)
	return &Service{
		graph: g,
		store: store,
		pipeline: todo.New(model, store, todo.Options{
			Logger:           log.Named("pipeline"),
			Metrics:          opts.Metrics,
			Now:              now,
			DedupBodyPreview: cfg.DedupBodyPreview,
		}),
		log: log,
		cfg: cfg,
		now: now,
	}
}

// GenerateTodos fetches recent emails and chat messages, runs the pipeline over them and
// reports what was created. A failed fetch downgrades to a warning and an empty set.
func (s *Service) GenerateTodos(ctx context.Context, notify Notify) (todo.Result, error) {
	notify = orDiscard(notify)
	notify("Task generation started. This may take a moment.")

	end := s.now().UTC()
	start := end.AddDate(0, 0, -s.cfg.EmailLookbackDays)
	notify(fmt.Sprintf("Fetching emails from the last %d days...", s.cfg.EmailLookbackDays))
	emails, err := s.graph.ListMessages(ctx, start, end)
	if err != nil {
		s.log.Warn("could not fetch emails", zap.Error(err))
		notify("Warning: could not fetch emails: " + redact(err))
		emails = nil
	} else {
		notify(fmt.Sprintf("Found %d emails", len(emails)))
	}

	notify("Fetching recent chat messages...")
	chats, err := s.graph.RecentChatMessages(ctx, s.cfg.ChatCount, s.cfg.MessagesPerChat)
	if err != nil {
		s.log.Warn("could not fetch chat messages", zap.Error(err))
		notify("Warning: could not fetch chat messages: " + redact(err))
		chats = nil
	} else {
		notify(fmt.Sprintf("Found %d chat messages", len(chats)))
	}

	notify("Analyzing content to extract tasks...")
	res, err := s.pipeline.Run(ctx, todo.Input{
		Emails:       emails,
		Chats:        chats,
		TargetListID: s.cfg.TargetListID,
	})
	if err != nil {
		if errors.Is(err, todo.ErrNoTaskList) {
			notify("No To Do lists found. Create one first with 'todo new list'.")
		} else {
			notify(util.RedactSecrets(res.Summary))
		}
		return res, err
	}
	if res.NoTasks {
		notify(res.Summary)
		return res, nil
	}
	notify(formatGenerateReport(res))
	return res, nil
}

// AddTask expands text into one task and creates it. When the model call fails, a plain
// task titled with text is created instead.
func (s *Service) AddTask(ctx context.Context, text string, notify Notify) (todo.CreatedTask, error) {
	notify = orDiscard(notify)
	text = strings.TrimSpace(text)
	if text == "" {
		notify(AddTaskUsage)
		return todo.CreatedTask{}, ErrNoTaskText
	}

	list, err := s.resolveList(ctx)
	if err != nil {
		notify(listError(err))
		return todo.CreatedTask{}, err
	}

	notify("Generating a detailed task...")
	c, ok, err := s.pipeline.Synthesize(ctx, text)
	if err != nil {
		s.log.Error("task synthesis failed, creating plain task", zap.Error(err))
		notify("Error generating task: " + redact(err) + "\n\nCreating a plain task instead...")
		c = todo.Candidate{Task: text, Priority: todo.PriorityNormal}
	} else if !ok {
		notify("Could not generate task. Please try again with a clearer message.")
		return todo.CreatedTask{}, ErrNoTaskGenerated
	}

	created, err := s.pipeline.CreateOne(ctx, c, list.ID)
	if err != nil {
		notify("Error creating task: " + redact(err))
		return todo.CreatedTask{}, err
	}
	notify(fmt.Sprintf("Task created!\n\nList: %s\n%s\n\nUse 'todo tasks' to view all your tasks", list.Name, formatCandidate(c)))
	return created, nil
}

// OpenTasks reports open tasks grouped by list.
func (s *Service) OpenTasks(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	notify("Fetching your tasks...")
	tasks, err := s.graph.ListAllOpenTasks(ctx)
	if err != nil {
		notify("Error fetching tasks: " + redact(err))
		return err
	}
	notify(formatOpenTasks(tasks, s.now().UTC().Format("2006-01-02")))
	return nil
}

// Lists reports every task list.
func (s *Service) Lists(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	lists, err := s.graph.ListTaskLists(ctx)
	if err != nil {
		notify("Error fetching To Do lists: " + redact(err))
		return err
	}
	notify(formatLists(lists))
	return nil
}

// NewList creates a task list. An empty name gets a dated default.
func (s *Service) NewList(ctx context.Context, name string, notify Notify) (graph.TodoTaskList, error) {
	notify = orDiscard(notify)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Project Tasks - " + s.now().Format("2006-01-02")
	}
	l, err := s.graph.CreateTaskList(ctx, name)
	if err != nil {
		notify("Error creating list: " + redact(err))
		return graph.TodoTaskList{}, err
	}
	notify(fmt.Sprintf("Task list created!\n\n%s\n\nUse 'todo lists' to view all your lists", formatList(l)))
	return l, nil
}

// Emails reports how many messages arrived in the last week and shows the newest ones
// in the same normalized form the pipeline sees.
func (s *Service) Emails(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	end := s.now().UTC()
	emails, err := s.graph.ListMessages(ctx, end.AddDate(0, 0, -emailsLookbackDays), end)
	if err != nil {
		notify("Error fetching emails: " + redact(err))
		return err
	}
	if len(emails) == 0 {
		notify(fmt.Sprintf("No emails found in the last %d days.", emailsLookbackDays))
		return nil
	}
	shown := min(emailsShown, len(emails))
	notify(fmt.Sprintf("Found %d emails. Showing first %d:", len(emails), shown))
	for i, text := range todo.NormalizeEmails(emails[:shown]) {
		notify(fmt.Sprintf("%s\nEmail %d\n%s\n%s", rule, i+1, rule, text))
	}
	if len(emails) > shown {
		notify(fmt.Sprintf("... and %d more email(s) not shown.", len(emails)-shown))
	}
	return nil
}

// Chats reports the most recently active chats.
func (s *Service) Chats(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	chats, err := s.graph.ListRecentChats(ctx, chatsShown)
	if err != nil {
		notify("Error fetching chats: " + redact(err))
		return err
	}
	notify(formatChats(chats))
	return nil
}

// TeamsMessages shows the newest chat messages across the most recent chats in the same
// normalized form the pipeline sees.
func (s *Service) TeamsMessages(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	notify("Fetching your recent Teams messages...")
	msgs, err := s.graph.RecentChatMessages(ctx, teamsChats, teamsPerChat)
	if err != nil {
		notify("Error fetching Teams messages: " + redact(err))
		return err
	}
	if len(msgs) == 0 {
		notify("No recent Teams messages found.")
		return nil
	}
	shown := min(teamsShown, len(msgs))
	notify(fmt.Sprintf("Found %d recent messages. Showing first %d:", len(msgs), shown))
	for i, text := range todo.NormalizeChats(msgs[:shown]) {
		notify(fmt.Sprintf("%s\nMessage %d\n%s\n%s", rule, i+1, rule, text))
	}
	if len(msgs) > shown {
		notify(fmt.Sprintf("... and %d more message(s) not shown.", len(msgs)-shown))
	}
	return nil
}

// Profile reports the signed-in user's profile.
func (s *Service) Profile(ctx context.Context, notify Notify) error {
	notify = orDiscard(notify)
	u, err := s.graph.Me(ctx)
	if err != nil {
		notify("Could not retrieve your profile information: " + redact(err))
		return err
	}
	notify(formatProfile(u))
	return nil
}

// CompleteTask marks the open task matching title as completed.
func (s *Service) CompleteTask(ctx context.Context, title string, notify Notify) (graph.ListedTask, error) {
	notify = orDiscard(notify)
	t, err := s.findOpenTask(ctx, title, CompleteTaskUsage, notify)
	if err != nil {
		return graph.ListedTask{}, err
	}
	done, err := s.graph.CompleteTask(ctx, t.ListID, t.Task.ID)
	if err != nil {
		notify("Error completing task: " + redact(err))
		return graph.ListedTask{}, err
	}
	t.Task = done
	s.log.Info("task completed", zap.String("list_id", t.ListID), zap.String("task_id", done.ID))
	notify(fmt.Sprintf("Task completed!\n\nList: %s\n[x] %s", t.ListName, orNoTitle(done.Title)))
	return t, nil
}

// DeleteTask removes the open task matching title.
func (s *Service) DeleteTask(ctx context.Context, title string, notify Notify) (graph.ListedTask, error) {
	notify = orDiscard(notify)
	t, err := s.findOpenTask(ctx, title, DeleteTaskUsage, notify)
	if err != nil {
		return graph.ListedTask{}, err
	}
	if err := s.graph.DeleteTask(ctx, t.ListID, t.Task.ID); err != nil {
		notify("Error deleting task: " + redact(err))
		return graph.ListedTask{}, err
	}
	s.log.Info("task deleted", zap.String("list_id", t.ListID), zap.String("task_id", t.Task.ID))
	notify(fmt.Sprintf("Task deleted.\n\nList: %s\n%s", t.ListName, orNoTitle(t.Task.Title)))
	return t, nil
}

// findOpenTask returns the open task whose title equals title, ignoring case, or else
// the first one whose title contains it.
func (s *Service) findOpenTask(ctx context.Context, title, usage string, notify Notify) (graph.ListedTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		notify(usage)
		return graph.ListedTask{}, ErrNoTaskText
	}
	tasks, err := s.graph.ListAllOpenTasks(ctx)
	if err != nil {
		notify("Error fetching tasks: " + redact(err))
		return graph.ListedTask{}, err
	}
	want := strings.ToLower(title)
	match := -1
	for i, t := range tasks {
		got := strings.ToLower(strings.TrimSpace(t.Task.Title))
		if got == want {
			return t, nil
		}
		if match < 0 && strings.Contains(got, want) {
			match = i
		}
	}
	if match < 0 {
		notify(fmt.Sprintf("No open task matching %q. Use 'todo tasks' to see your open tasks.", title))
		return graph.ListedTask{}, ErrTaskNotFound
	}
	return tasks[match], nil
}

// resolveList picks the configured target list, or the first list the store reports.
func (s *Service) resolveList(ctx context.Context) (todo.TaskList, error) {
	lists, err := s.store.ListTaskLists(ctx)
	if err != nil {
		return todo.TaskList{}, fmt.Errorf("list task lists: %w", err)
	}
	if id := strings.TrimSpace(s.cfg.TargetListID); id != "" {
		for _, l := range lists {
			if l.ID == id {
				return l, nil
			}
		}
		return todo.TaskList{ID: id, Name: id}, nil
	}
	if len(lists) == 0 {
		return todo.TaskList{}, todo.ErrNoTaskList
	}
	return lists[0], nil
}

func listError(err error) string {
	if errors.Is(err, todo.ErrNoTaskList) {
		return "No To Do lists found. Please create a list first with 'todo new list'."
	}
	return "Error fetching lists: " + redact(err)
}

func redact(err error) string {
	return util.RedactSecrets(err.Error())
}

func orDiscard(n Notify) Notify {
	if n == nil {
		return func(string) {}
	}
	return n
}
