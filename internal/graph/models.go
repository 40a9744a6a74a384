package graph

import "time"

// Field names follow the Graph v1.0 JSON representation so the same types serve the
// client and the mock server.

type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type ItemBody struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content"`
}

type Attachment struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Message is a mailbox message.
type Message struct {
	ID               string       `json:"id"`
	Subject          string       `json:"subject"`
	From             *Recipient   `json:"from,omitempty"`
	ToRecipients     []Recipient  `json:"toRecipients,omitempty"`
	CcRecipients     []Recipient  `json:"ccRecipients,omitempty"`
	ReceivedDateTime time.Time    `json:"receivedDateTime"`
	Importance       string       `json:"importance,omitempty"`
	IsRead           bool         `json:"isRead"`
	HasAttachments   bool         `json:"hasAttachments"`
	BodyPreview      string       `json:"bodyPreview,omitempty"`
	Body             *ItemBody    `json:"body,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
}

type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ChatMessageFrom identifies the sender; exactly one of User or Application is set
// for regular messages. System events carry neither.
type ChatMessageFrom struct {
	User        *Identity `json:"user,omitempty"`
	Application *Identity `json:"application,omitempty"`
}

type Reaction struct {
	ReactionType string    `json:"reactionType"`
	User         *Identity `json:"user,omitempty"`
}

type ChatMessage struct {
	ID              string           `json:"id"`
	CreatedDateTime time.Time        `json:"createdDateTime"`
	MessageType     string           `json:"messageType,omitempty"`
	Importance      string           `json:"importance,omitempty"`
	From            *ChatMessageFrom `json:"from,omitempty"`
	Body            *ItemBody        `json:"body,omitempty"`
	Attachments     []Attachment     `json:"attachments,omitempty"`
	Reactions       []Reaction       `json:"reactions,omitempty"`
}

type Chat struct {
	ID                  string    `json:"id"`
	Topic               string    `json:"topic,omitempty"`
	ChatType            string    `json:"chatType,omitempty"`
	LastUpdatedDateTime time.Time `json:"lastUpdatedDateTime"`
}

// UnnamedChat is the topic reported for chats without one (one-on-one chats).
const UnnamedChat = "Unnamed Chat"

// ChatThreadMessage is a chat message annotated with the chat it was posted in.
type ChatThreadMessage struct {
	ChatID    string
	ChatTopic string
	Message   ChatMessage
}

type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type TodoTaskList struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	IsOwner           bool   `json:"isOwner"`
	WellknownListName string `json:"wellknownListName,omitempty"`
}

// UnnamedList is reported for lists without a display name.
const UnnamedList = "(Unnamed list)"

const (
	TaskStatusNotStarted = "notStarted"
	TaskStatusCompleted  = "completed"

	ImportanceLow    = "low"
	ImportanceNormal = "normal"
	ImportanceHigh   = "high"
)

type TodoTask struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Status          string            `json:"status,omitempty"`
	Importance      string            `json:"importance,omitempty"`
	Body            *ItemBody         `json:"body,omitempty"`
	DueDateTime     *DateTimeTimeZone `json:"dueDateTime,omitempty"`
	CreatedDateTime time.Time         `json:"createdDateTime"`
}

// DueDate returns the date part (YYYY-MM-DD) of the task's due date, or "".
func (t TodoTask) DueDate() string {
	if t.DueDateTime == nil {
		return ""
	}
	d := t.DueDateTime.DateTime
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}

// BodyText returns the task body content, or "".
func (t TodoTask) BodyText() string {
	if t.Body == nil {
		return ""
	}
	return t.Body.Content
}

// ListedTask is an open task together with its owning list.
type ListedTask struct {
	ListID   string
	ListName string
	Task     TodoTask
}

// NewTask describes a task to create. Empty fields are omitted from the request.
type NewTask struct {
	Title      string
	Body       string
	DueDate    string
	Importance string
}

// TaskUpdate is a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Title      *string
	Body       *string
	DueDate    *string
	Importance *string
	Status     *string
}

// User is the signed-in mailbox owner's profile.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName,omitempty"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	Department        string `json:"department,omitempty"`
	OfficeLocation    string `json:"officeLocation,omitempty"`
}
