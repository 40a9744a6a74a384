package todo

import (
	"strings"
	"text/template"
)

var extractionTmpl = template.Must(template.New("extract").Parse(strings.TrimSpace(`
You are a project specialist. Build a to-do list from the content below so the user does not lose track of important goals.
Your main goal is to identify pending activities, whether they belong to the user or to someone else.

IMPORTANT:
- Include only relevant, actionable tasks.
- Do not repeat yourself.
- Do not leave relevant details behind.
- If the content holds no tasks, return an empty list.
- The content is an email or a team chat message.

FIELDS:
- priority: one of "high", "normal" or "low", based on the urgency the content implies.
- due_date: a deadline stated in the content ("by Friday", "on the 30th", "next week"), resolved against the current date and written as YYYY-MM-DD. Use null when no deadline is stated. Never invent one.
- person_involved: the full name (First Last) of someone the task is assigned to, someone who must be contacted, or someone waiting on it. Use null when nobody is clearly associated. Never invent names.
- comments: useful context, or null.

The current date is {{.Today}}.

[Input]
{{.Input}}
[End of Input]
`)))

var synthesisTmpl = template.Must(template.New("synthesize").Parse(strings.TrimSpace(`
You are an assistant specialized in organization and productivity.
Turn the user's short message into one detailed, well-structured task.

INSTRUCTIONS:
- Expand the message into a clear, actionable task.
- Add useful context and details where appropriate, but keep the task focused.
- Use professional but friendly language.

FIELDS:
- priority: "high", "normal" or "low", based on the implied urgency.
- comments: suggestions or steps when the task is complex, otherwise null.
- due_date: YYYY-MM-DD only, and only when a deadline is explicitly mentioned; otherwise null. Never invent deadlines.
- person_involved: First Last of a person the message names ("talk to X", "call X", "wait for X"); otherwise null. Never invent names.

The current date is {{.Today}}.

USER MESSAGE:
{{.Input}}

Produce exactly ONE task for this message.
`)))

var dedupTmpl = template.Must(template.New("dedup").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).Parse(strings.TrimSpace(`
You are a task analysis specialist. Decide whether each new task already exists in the list of incomplete tasks.

INSTRUCTIONS:
- Compare every new task with the existing tasks.
- A new task is a DUPLICATE when:
  * its main objective is the same, even if worded differently
  * it refers to the same subject or action
  * it has a similar context or deadline
- A new task is UNIQUE when:
  * it is a different or additional action
  * it covers a distinct aspect of the work
  * it is a follow-up or next step of an existing task

EXISTING INCOMPLETE TASKS:
{{range $i, $t := .Existing}}{{add $i 1}}. {{$t.Title}}
{{if $t.Body}}   Details: {{$t.Body}}
{{end}}{{if $t.DueDate}}   Due: {{$t.DueDate}}
{{end}}{{end}}
NEW TASKS TO EVALUATE:
{{range $i, $c := .New}}{{add $i 1}}. {{$c.Task}}
{{if $c.Comments}}   Details: {{$c.Comments}}
{{end}}{{if $c.DueDate}}   Due: {{$c.DueDate}}
{{end}}{{end}}
For every new task, return its task_number and a status:
- "unique" when the task does NOT exist in the current list
- "duplicate" when the task ALREADY exists in the current list
`)))

type promptInput struct {
	Today string
	Input string
}

type dedupPromptInput struct {
	Existing []ExistingTask
	New      []Candidate
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
