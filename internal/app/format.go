package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/shpitdev/commsync-todo/internal/todo"
)

// AddTaskUsage is shown for "add task" without text.
const AddTaskUsage = "Please provide a task description.\n\n" +
	"Usage: add task <description of your task>\n\n" +
	"Examples:\n" +
	"- add task Review the Q4 report by Friday\n" +
	"- add task Call the client about the proposal\n" +
	"- add task Prepare the slides for Monday's meeting"

const (
	CompleteTaskUsage = "Please name the task to complete.\n\nUsage: todo done <task title>"
	DeleteTaskUsage   = "Please name the task to delete.\n\nUsage: todo delete <task title>"
)

const notePreview = 100

var rule = strings.Repeat("=", 60)

func formatGenerateReport(res todo.Result) string {
	var b strings.Builder
	b.WriteString(res.Summary)
	if len(res.Errors) > 0 {
		fmt.Fprintf(&b, "\n\n%d task(s) could not be created.", len(res.Errors))
	}
	if len(res.Created) > 0 {
		prio := make(map[string]todo.Priority)
		for _, c := range res.Candidates() {
			if _, ok := prio[c.Task]; !ok {
				prio[c.Task] = c.Priority
			}
		}
		b.WriteString("\n\nSample of created tasks:")
		for i, t := range res.Created[:min(createdPreview, len(res.Created))] {
			fmt.Fprintf(&b, "\n%d. %s%s", i+1, priorityMarker(prio[t.Title]), t.Title)
		}
		if n := len(res.Created) - createdPreview; n > 0 {
			fmt.Fprintf(&b, "\n... and %d more", n)
		}
	}
	b.WriteString("\n\nUse 'todo tasks' to view all your tasks")
	return b.String()
}

func priorityMarker(p todo.Priority) string {
	switch todo.Importance(p) {
	case graph.ImportanceHigh:
		return "[high] "
	case graph.ImportanceLow:
		return "[low] "
	}
	return ""
}

func formatCandidate(c todo.Candidate) string {
	lines := []string{"[ ] **" + c.Task + "**"}
	if imp := todo.Importance(c.Priority); imp != graph.ImportanceNormal {
		lines = append(lines, "   Priority: "+imp)
	}
	if c.DueDate != "" {
		lines = append(lines, "   Due: "+c.DueDate)
	}
	if note := strings.TrimSpace(todo.TaskBody(c)); note != "" {
		lines = append(lines, "   Note: "+truncate(note, notePreview))
	}
	return strings.Join(lines, "\n")
}

// formatOpenTasks groups tasks by list, in the order lists first appear, and marks
// tasks due before today as overdue.
func formatOpenTasks(tasks []graph.ListedTask, today string) string {
	if len(tasks) == 0 {
		return "No incomplete tasks found. Great job!"
	}
	type group struct {
		name  string
		tasks []graph.TodoTask
	}
	var order []string
	groups := make(map[string]*group)
	for _, t := range tasks {
		g, ok := groups[t.ListID]
		if !ok {
			g = &group{name: t.ListName}
			groups[t.ListID] = g
			order = append(order, t.ListID)
		}
		g.tasks = append(g.tasks, t.Task)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Incomplete tasks\nTotal: %d incomplete %s\n", len(tasks), plural(len(tasks), "task"))
	for _, id := range order {
		g := groups[id]
		fmt.Fprintf(&b, "\n**%s** (%d %s)\n", g.name, len(g.tasks), plural(len(g.tasks), "task"))
		for i, t := range g.tasks[:min(openTasksPerList, len(g.tasks))] {
			fmt.Fprintf(&b, "   %d. %s[ ] %s%s\n", i+1, importanceMarker(t.Importance), orNoTitle(t.Title), dueInfo(t.DueDate(), today))
		}
		if n := len(g.tasks) - openTasksPerList; n > 0 {
			fmt.Fprintf(&b, "   ... and %d more %s\n", n, plural(n, "task"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func importanceMarker(imp string) string {
	switch strings.ToLower(imp) {
	case graph.ImportanceHigh:
		return "! "
	case graph.ImportanceLow:
		return "v "
	}
	return ""
}

func dueInfo(due, today string) string {
	switch {
	case due == "":
		return ""
	case due < today:
		return " (Overdue: " + due + ")"
	default:
		return " (Due: " + due + ")"
	}
}

func formatLists(lists []graph.TodoTaskList) string {
	if len(lists) == 0 {
		return "No To Do lists found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your To Do lists (%d):\n", len(lists))
	for i, l := range lists {
		id := l.ID
		if len(id) > 8 {
			id = id[:8] + "..."
		}
		fmt.Fprintf(&b, "\n%d. %s\n   ID: %s\n", i+1, formatList(l), id)
	}
	b.WriteString("\nUse 'todo tasks' to view your open tasks")
	return b.String()
}

func formatList(l graph.TodoTaskList) string {
	name := strings.TrimSpace(l.DisplayName)
	if name == "" {
		name = graph.UnnamedList
	}
	owner := "Shared"
	if l.IsOwner {
		owner = "Owner"
	}
	return fmt.Sprintf("**%s** (%s)", name, owner)
}

func formatChats(chats []graph.Chat) string {
	if len(chats) == 0 {
		return "No chats found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your %d most recent chats:\n", len(chats))
	for i, c := range chats {
		topic := strings.TrimSpace(c.Topic)
		if topic == "" {
			topic = graph.UnnamedChat
		}
		kind := c.ChatType
		if kind == "" {
			kind = "unknown"
		}
		fmt.Fprintf(&b, "\n%d. **%s**\n  Type: %s\n", i+1, topic, kind)
		if !c.LastUpdatedDateTime.IsZero() {
			fmt.Fprintf(&b, "  Last updated: %s\n", c.LastUpdatedDateTime.UTC().Format("2006-01-02 15:04"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProfile(u graph.User) string {
	email := u.UserPrincipalName
	if strings.TrimSpace(email) == "" {
		email = u.Mail
	}
	return fmt.Sprintf("Your Profile\n\n**Name:** %s\n**Email:** %s\n**Job Title:** %s\n**Department:** %s\n**Office:** %s",
		orNA(u.DisplayName), orNA(email), orNA(u.JobTitle), orNA(u.Department), orNA(u.OfficeLocation))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func orNoTitle(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(No title)"
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
