package mockgraph

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape used to seed a Server.
//
//	profile:
//	  display_name: Me
//	  mail: me@example.com
//	messages:
//	  - subject: Quarterly report
//	    from: {name: Maria Santos, address: maria@example.com}
//	    to: [{name: Me, address: me@example.com}]
//	    received: 2025-03-03T09:00:00Z
//	    body: "<p>Please send the report by Friday.</p>"
//	chats:
//	  - topic: Launch
//	    messages:
//	      - from: Joao Lima
//	        sent: 2025-03-03T10:00:00Z
//	        body: Can you book the venue?
//	lists:
//	  - name: Tasks
//	    tasks:
//	      - title: Review Q4 report
//	        due: 2025-03-07
type Fixture struct {
	Profile  *FixtureProfile  `yaml:"profile"`
	Messages []FixtureMessage `yaml:"messages"`
	Chats    []FixtureChat    `yaml:"chats"`
	Lists    []FixtureList    `yaml:"lists"`
}

type FixtureProfile struct {
	DisplayName    string `yaml:"display_name"`
	Mail           string `yaml:"mail"`
	JobTitle       string `yaml:"job_title"`
	Department     string `yaml:"department"`
	OfficeLocation string `yaml:"office_location"`
}

type FixtureAddress struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type FixtureMessage struct {
	Subject     string           `yaml:"subject"`
	From        FixtureAddress   `yaml:"from"`
	To          []FixtureAddress `yaml:"to"`
	CC          []FixtureAddress `yaml:"cc"`
	Received    string           `yaml:"received"`
	Importance  string           `yaml:"importance"`
	IsRead      bool             `yaml:"is_read"`
	Body        string           `yaml:"body"`
	Attachments []string         `yaml:"attachments"`
}

type FixtureChat struct {
	ID       string               `yaml:"id"`
	Topic    string               `yaml:"topic"`
	Messages []FixtureChatMessage `yaml:"messages"`
}

type FixtureChatMessage struct {
	From        string   `yaml:"from"`
	App         string   `yaml:"app"`
	Sent        string   `yaml:"sent"`
	Body        string   `yaml:"body"`
	Importance  string   `yaml:"importance"`
	Type        string   `yaml:"type"`
	Attachments []string `yaml:"attachments"`
	Reactions   int      `yaml:"reactions"`
}

type FixtureList struct {
	Name  string        `yaml:"name"`
	Tasks []FixtureTask `yaml:"tasks"`
}

type FixtureTask struct {
	Title      string `yaml:"title"`
	Body       string `yaml:"body"`
	Due        string `yaml:"due"`
	Importance string `yaml:"importance"`
	Completed  bool   `yaml:"completed"`
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(b)
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(b []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Load seeds the server with the fixture contents.
func (s *Server) Load(f Fixture) error {
	if p := f.Profile; p != nil {
		s.SetProfile(graph.User{
			DisplayName:       p.DisplayName,
			Mail:              p.Mail,
			UserPrincipalName: p.Mail,
			JobTitle:          p.JobTitle,
			Department:        p.Department,
			OfficeLocation:    p.OfficeLocation,
		})
	}

	for i, fm := range f.Messages {
		received, err := parseFixtureTime(fm.Received)
		if err != nil {
			return fmt.Errorf("messages[%d].received: %w", i, err)
		}
		m := graph.Message{
			Subject:          fm.Subject,
			From:             &graph.Recipient{EmailAddress: graph.EmailAddress(fm.From)},
			ToRecipients:     recipients(fm.To),
			CcRecipients:     recipients(fm.CC),
			ReceivedDateTime: received,
			Importance:       orDefault(fm.Importance, graph.ImportanceNormal),
			IsRead:           fm.IsRead,
			HasAttachments:   len(fm.Attachments) > 0,
			Body:             &graph.ItemBody{ContentType: bodyType(fm.Body), Content: fm.Body},
		}
		for _, name := range fm.Attachments {
			m.Attachments = append(m.Attachments, graph.Attachment{Name: name})
		}
		s.AddMessage(m)
	}

	for i, fc := range f.Chats {
		var msgs []graph.ChatMessage
		for j, fm := range fc.Messages {
			sent, err := parseFixtureTime(fm.Sent)
			if err != nil {
				return fmt.Errorf("chats[%d].messages[%d].sent: %w", i, j, err)
			}
			cm := graph.ChatMessage{
				CreatedDateTime: sent,
				MessageType:     orDefault(fm.Type, "message"),
				Importance:      orDefault(fm.Importance, graph.ImportanceNormal),
				Body:            &graph.ItemBody{ContentType: bodyType(fm.Body), Content: fm.Body},
			}
			switch {
			case fm.App != "":
				cm.From = &graph.ChatMessageFrom{Application: &graph.Identity{DisplayName: fm.App}}
			case fm.From != "":
				cm.From = &graph.ChatMessageFrom{User: &graph.Identity{DisplayName: fm.From}}
			}
			for _, name := range fm.Attachments {
				cm.Attachments = append(cm.Attachments, graph.Attachment{Name: name})
			}
			for k := 0; k < fm.Reactions; k++ {
				cm.Reactions = append(cm.Reactions, graph.Reaction{ReactionType: "like"})
			}
			msgs = append(msgs, cm)
		}
		s.AddChat(graph.Chat{ID: fc.ID, Topic: fc.Topic, ChatType: "group"}, msgs...)
	}

	for i, fl := range f.Lists {
		l := s.AddList(fl.Name)
		for j, ft := range fl.Tasks {
			t := graph.TodoTask{
				Title:      ft.Title,
				Importance: orDefault(ft.Importance, graph.ImportanceNormal),
			}
			if ft.Body != "" {
				t.Body = &graph.ItemBody{ContentType: "text", Content: ft.Body}
			}
			if ft.Due != "" {
				t.DueDateTime = &graph.DateTimeTimeZone{DateTime: ft.Due + "T00:00:00", TimeZone: "UTC"}
			}
			if ft.Completed {
				t.Status = graph.TaskStatusCompleted
			}
			if _, err := s.AddTask(l.ID, t); err != nil {
				return fmt.Errorf("lists[%d].tasks[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func parseFixtureTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

func recipients(in []FixtureAddress) []graph.Recipient {
	out := make([]graph.Recipient, 0, len(in))
	for _, a := range in {
		out = append(out, graph.Recipient{EmailAddress: graph.EmailAddress(a)})
	}
	return out
}

func bodyType(content string) string {
	if strings.Contains(content, "<") {
		return "html"
	}
	return "text"
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
