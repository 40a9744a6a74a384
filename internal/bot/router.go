// Package bot exposes the task commands over HTTP: a message endpoint that routes chat
// text to the command flows, plus health and metrics endpoints.
package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/app"
	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/todo"
)

// Flows is the set of command flows the router dispatches to. *app.Service implements it.
type Flows interface {
	GenerateTodos(ctx context.Context, notify app.Notify) (todo.Result, error)
	AddTask(ctx context.Context, text string, notify app.Notify) (todo.CreatedTask, error)
	OpenTasks(ctx context.Context, notify app.Notify) error
	Lists(ctx context.Context, notify app.Notify) error
	NewList(ctx context.Context, name string, notify app.Notify) (graph.TodoTaskList, error)
	Emails(ctx context.Context, notify app.Notify) error
	Chats(ctx context.Context, notify app.Notify) error
	TeamsMessages(ctx context.Context, notify app.Notify) error
	Profile(ctx context.Context, notify app.Notify) error
	CompleteTask(ctx context.Context, title string, notify app.Notify) (graph.ListedTask, error)
	DeleteTask(ctx context.Context, title string, notify app.Notify) (graph.ListedTask, error)
}

var _ Flows = (*app.Service)(nil)

// Command names, also used as metric labels.
const (
	CmdGenerate  = "generate_todo"
	CmdAddTask   = "add_task"
	CmdOpenTasks = "todo_tasks"
	CmdLists     = "todo_lists"
	CmdNewList   = "todo_new_list"
	CmdDone      = "todo_done"
	CmdDelete    = "todo_delete"
	CmdEmails    = "emails"
	CmdChats     = "chats"
	CmdTeams     = "teams"
	CmdProfile   = "profile"
	CmdHelp      = "help"
)

// HelpText lists the available commands.
const HelpText = "Available commands:\n\n" +
	"Account:\n" +
	"- profile: view your profile\n\n" +
	"Email and chat:\n" +
	"- emails: view recent emails\n" +
	"- teams: view recent chat messages\n" +
	"- chats: list your recent chats\n\n" +
	"To Do tasks:\n" +
	"- add task <text>: create a task from your message\n" +
	"- generate todo: analyze emails and chats to create tasks\n" +
	"- todo lists: view all your task lists\n" +
	"- todo tasks: view your open tasks\n" +
	"- todo new list [name]: create a new task list\n" +
	"- todo done <title>: mark an open task completed\n" +
	"- todo delete <title>: delete an open task"

var (
	addTaskRe = regexp.MustCompile(`(?is)^add\s+task(?:\s+(.*))?$`)
	newListRe = regexp.MustCompile(`(?is)^todo\s+new\s+list(?:\s+(.*))?$`)
	doneRe    = regexp.MustCompile(`(?is)^todo\s+done(?:\s+(.*))?$`)
	deleteRe  = regexp.MustCompile(`(?is)^todo\s+delete(?:\s+(.*))?$`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// Route maps message text to a command name and its argument.
func Route(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if m := addTaskRe.FindStringSubmatch(text); m != nil {
		return CmdAddTask, strings.TrimSpace(m[1])
	}
	if m := newListRe.FindStringSubmatch(text); m != nil {
		return CmdNewList, strings.TrimSpace(m[1])
	}
	if m := doneRe.FindStringSubmatch(text); m != nil {
		return CmdDone, strings.TrimSpace(m[1])
	}
	if m := deleteRe.FindStringSubmatch(text); m != nil {
		return CmdDelete, strings.TrimSpace(m[1])
	}
	switch strings.ToLower(spaceRe.ReplaceAllString(text, " ")) {
	case "generate todo":
		return CmdGenerate, ""
	case "todo tasks":
		return CmdOpenTasks, ""
	case "todo lists":
		return CmdLists, ""
	case "emails":
		return CmdEmails, ""
	case "chats":
		return CmdChats, ""
	case "teams":
		return CmdTeams, ""
	case "profile":
		return CmdProfile, ""
	}
	return CmdHelp, ""
}

// Dispatch runs the command text names. Every outcome, including failures, reaches the
// user through notify; the returned error is for logging.
func Dispatch(ctx context.Context, flows Flows, cmd, arg string, notify app.Notify) error {
	var err error
	switch cmd {
	case CmdGenerate:
		_, err = flows.GenerateTodos(ctx, notify)
	case CmdAddTask:
		_, err = flows.AddTask(ctx, arg, notify)
	case CmdOpenTasks:
		err = flows.OpenTasks(ctx, notify)
	case CmdLists:
		err = flows.Lists(ctx, notify)
	case CmdNewList:
		_, err = flows.NewList(ctx, arg, notify)
	case CmdEmails:
		err = flows.Emails(ctx, notify)
	case CmdChats:
		err = flows.Chats(ctx, notify)
	case CmdTeams:
		err = flows.TeamsMessages(ctx, notify)
	case CmdProfile:
		err = flows.Profile(ctx, notify)
	case CmdDone:
		_, err = flows.CompleteTask(ctx, arg, notify)
	case CmdDelete:
		_, err = flows.DeleteTask(ctx, arg, notify)
	default:
		notify(HelpText)
	}
	return err
}
