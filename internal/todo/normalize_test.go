package todo

import (
	"strings"
	"testing"
	"time"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeEmails_Format(t *testing.T) {
	msgs := []graph.Message{{
		Subject:          "Budget < 5k for Q4, approve if > 3k",
		From:             &graph.Recipient{EmailAddress: graph.EmailAddress{Name: "Maria Santos", Address: "maria@example.com"}},
		ToRecipients:     []graph.Recipient{{EmailAddress: graph.EmailAddress{Name: "Me", Address: "me@example.com"}}},
		CcRecipients:     []graph.Recipient{{EmailAddress: graph.EmailAddress{Address: "team@example.com"}}},
		ReceivedDateTime: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		Importance:       "high",
		HasAttachments:   true,
		Body:             &graph.ItemBody{ContentType: "html", Content: "<p>Please send the report to Maria Santos by <b>Friday</b>.</p>"},
		Attachments:      []graph.Attachment{{Name: "q4.xlsx"}},
	}}

	got := NormalizeEmails(msgs)
	require.Len(t, got, 1)
	want := strings.Join([]string{
		"Subject: Budget &lt; 5k for Q4, approve if &gt; 3k",
		"From: Maria Santos (maria@example.com)",
		"To: Me (me@example.com)",
		"CC: team@example.com",
		"Received: 2025-03-03 09:00:00",
		"Importance: high",
		"Read: No",
		"Has Attachments: Yes",
		"Email Body:",
		"Please send the report to Maria Santos by Friday.",
		"",
		"Attachments (1):",
		"   - q4.xlsx",
	}, "\n")
	assert.Equal(t, want, got[0])
}

func TestNormalizeChats_Format(t *testing.T) {
	sent := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	msgs := []graph.ChatThreadMessage{
		{
			ChatTopic: "Launch",
			Message: graph.ChatMessage{
				CreatedDateTime: sent,
				MessageType:     "message",
				Importance:      "urgent",
				From:            &graph.ChatMessageFrom{User: &graph.Identity{DisplayName: "Joao Lima"}},
				Body:            &graph.ItemBody{Content: "<div>Can you book the venue?</div>"},
				Attachments:     []graph.Attachment{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}},
				Reactions:       []graph.Reaction{{ReactionType: "like"}, {ReactionType: "heart"}},
			},
		},
		{
			Message: graph.ChatMessage{
				From: &graph.ChatMessageFrom{Application: &graph.Identity{DisplayName: "Build Bot"}},
				Body: &graph.ItemBody{Content: "<attachment id=\"1\"></attachment>"},
			},
		},
		{Message: graph.ChatMessage{}},
	}

	got := NormalizeChats(msgs)
	require.Len(t, got, 3)
	assert.Equal(t, strings.Join([]string{
		"Chat: Launch",
		"From: Joao Lima",
		"Sent: 2025-03-03 10:00:00",
		"Type: message",
		"Importance: urgent",
		"",
		"Message:",
		"Can you book the venue?",
		"",
		"Attachments: 4",
		"  - a",
		"  - b",
		"  - c",
		"",
		"Reactions: 2",
	}, "\n"), got[0])

	assert.Contains(t, got[1], "Chat: "+graph.UnnamedChat)
	assert.Contains(t, got[1], "From: Build Bot (Application)")
	assert.Contains(t, got[1], "Message: (no text content)")
	assert.NotContains(t, got[1], "Importance:")

	assert.Contains(t, got[2], "From: Unknown")
	assert.NotContains(t, got[2], "Message:")
}

func TestSafeFormat_SubstitutesPlaceholder(t *testing.T) {
	got := safeFormat("email", func() string { panic("bad <record>") })
	assert.Equal(t, "Error formatting email: bad &lt;record&gt;", got)
}

func TestStripTags(t *testing.T) {
	tests := map[string]string{
		"plain":                "plain",
		"<p>hi</p>":            "hi",
		"a <b>bold</b> move":   "a bold move",
		"<a<b>c>":              "ac>",
		"<<x>>":                "<>",
		"1 < 2":                "1 < 2",
		"<br/>line<br />break": "linebreak",
		"<>":                   "<>",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripTags(in), "input %q", in)
	}
}

func TestStripTags_NestedBracketsIsLinear(t *testing.T) {
	const n = 16000
	in := strings.Repeat("<", n) + "x" + strings.Repeat(">", n)

	start := time.Now()
	got := StripTags(in)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.False(t, tagRe.MatchString(got))
	assert.NotContains(t, got, "<")
}

func TestNormalizeChats_EscapesHeaderBrackets(t *testing.T) {
	got := NormalizeChats([]graph.ChatThreadMessage{{
		ChatTopic: "Q4 <draft>",
		Message: graph.ChatMessage{
			From: &graph.ChatMessageFrom{User: &graph.Identity{DisplayName: "Ana <ops>"}},
			Body: &graph.ItemBody{Content: "<p>keep costs < 5k</p>"},
		},
	}})
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Chat: Q4 &lt;draft&gt;")
	assert.Contains(t, got[0], "From: Ana &lt;ops&gt;")
	assert.Contains(t, got[0], "keep costs < 5k")
	assert.False(t, tagRe.MatchString(got[0]))
}

func genText(t *rapid.T, label string) string {
	return rapid.StringOfN(rapid.SampledFrom([]rune("ab <>/\"=é\n")), 0, 40, -1).Draw(t, label)
}

func TestNormalize_OneItemPerRecordWithoutMarkup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "emails")
		emails := make([]graph.Message, n)
		for i := range emails {
			emails[i] = graph.Message{
				Subject:      genText(t, "subject"),
				From:         &graph.Recipient{EmailAddress: graph.EmailAddress{Name: genText(t, "from"), Address: genText(t, "addr")}},
				ToRecipients: []graph.Recipient{{EmailAddress: graph.EmailAddress{Name: genText(t, "to")}}},
				Importance:   genText(t, "importance"),
				Body:         &graph.ItemBody{Content: genText(t, "body")},
				Attachments:  []graph.Attachment{{Name: genText(t, "attachment")}},
			}
		}
		m := rapid.IntRange(1, 8).Draw(t, "chats")
		chats := make([]graph.ChatThreadMessage, m)
		for i := range chats {
			chats[i] = graph.ChatThreadMessage{
				ChatTopic: genText(t, "topic"),
				Message: graph.ChatMessage{
					From: &graph.ChatMessageFrom{User: &graph.Identity{DisplayName: genText(t, "sender")}},
					Body: &graph.ItemBody{Content: genText(t, "content")},
				},
			}
		}

		gotEmails := NormalizeEmails(emails)
		gotChats := NormalizeChats(chats)
		if len(gotEmails) != n || len(gotChats) != m {
			t.Fatalf("length mismatch: emails %d/%d chats %d/%d", len(gotEmails), n, len(gotChats), m)
		}
		for _, item := range append(gotEmails, gotChats...) {
			if tagRe.MatchString(item) {
				t.Fatalf("markup left in item: %q", item)
			}
		}
	})
}
