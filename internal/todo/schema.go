package todo

import "google.golang.org/genai"

func nullableString(desc string) *genai.Schema {
	nullable := true
	return &genai.Schema{Type: genai.TypeString, Nullable: &nullable, Description: desc}
}

// candidateListSchema is shared by extraction and single-task synthesis.
var candidateListSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"entries": {
			Type:        genai.TypeArray,
			Description: "List of to-do entries; empty when the content holds no actionable task",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"task": {Type: genai.TypeString, Description: "Task to be done"},
					"priority": {
						Type:        genai.TypeString,
						Enum:        []string{string(PriorityHigh), string(PriorityNormal), string(PriorityLow)},
						Description: "Priority level of the task",
					},
					"comments":        nullableString("Comments about the task"),
					"due_date":        nullableString("Due date as YYYY-MM-DD, only when stated in the content"),
					"person_involved": nullableString("Person involved as First Last, only when named in the content"),
				},
				Required:         []string{"task", "priority", "comments", "due_date", "person_involved"},
				PropertyOrdering: []string{"task", "priority", "comments", "due_date", "person_involved"},
			},
		},
	},
	Required: []string{"entries"},
}

// verdictListSchema is the deduplication response.
var verdictListSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"task_status": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"task_number": {Type: genai.TypeInteger, Description: "1-based position of the new task"},
					"status": {
						Type: genai.TypeString,
						Enum: []string{string(VerdictUnique), string(VerdictDuplicate)},
					},
				},
				Required: []string{"task_number", "status"},
			},
		},
	},
	Required: []string{"task_status"},
}

// CandidateListSchema returns the extraction response schema.
func CandidateListSchema() *genai.Schema { return candidateListSchema }

// VerdictListSchema returns the deduplication response schema.
func VerdictListSchema() *genai.Schema { return verdictListSchema }
