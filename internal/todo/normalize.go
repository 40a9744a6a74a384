package todo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/graph"
)

// tagRe matches markup tags non-greedily.
var tagRe = regexp.MustCompile(`<[^<]+?>`)

// angleEscaper keeps header text readable without letting it look like markup.
var angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// StripTags removes markup tags from s in a single pass. When the removal splices a new
// tag together (nested brackets), every remaining "<" is dropped. A lone "<" with no
// closing ">" is kept.
func StripTags(s string) string {
	out := tagRe.ReplaceAllString(s, "")
	if tagRe.MatchString(out) {
		out = strings.ReplaceAll(out, "<", "")
	}
	return out
}

// plain escapes angle brackets in header fields.
func plain(s string) string {
	return angleEscaper.Replace(s)
}

// NormalizeEmails renders one plain-text item per message.
func NormalizeEmails(msgs []graph.Message) []string {
	out := make([]string, 0, len(msgs))
	for i := range msgs {
		out = append(out, safeFormat("email", func() string { return formatEmail(msgs[i]) }))
	}
	return out
}

// NormalizeChats renders one plain-text item per chat message.
func NormalizeChats(msgs []graph.ChatThreadMessage) []string {
	out := make([]string, 0, len(msgs))
	for i := range msgs {
		out = append(out, safeFormat("message", func() string { return formatChatMessage(msgs[i]) }))
	}
	return out
}

// safeFormat turns a formatting panic into a placeholder so one bad record cannot abort
// the batch.
func safeFormat(kind string, f func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = plain(fmt.Sprintf("Error formatting %s: %v", kind, r))
		}
	}()
	return f()
}

func formatEmail(m graph.Message) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("Subject: %s", plain(m.Subject))
	var fromName, fromAddr string
	if m.From != nil {
		fromName, fromAddr = m.From.EmailAddress.Name, m.From.EmailAddress.Address
	}
	line("From: %s", formatAddress(fromName, fromAddr))
	line("To: %s", joinRecipients(m.ToRecipients))
	if len(m.CcRecipients) > 0 {
		line("CC: %s", joinRecipients(m.CcRecipients))
	}
	if !m.ReceivedDateTime.IsZero() {
		line("Received: %s", m.ReceivedDateTime.UTC().Format("2006-01-02 15:04:05"))
	} else {
		line("Received: ")
	}
	line("Importance: %s", plain(m.Importance))
	line("Read: %s", yesNo(m.IsRead))
	line("Has Attachments: %s", yesNo(m.HasAttachments))
	line("Email Body:")
	body := ""
	if m.Body != nil {
		body = m.Body.Content
	} else {
		body = m.BodyPreview
	}
	b.WriteString(StripTags(body))
	if len(m.Attachments) > 0 {
		fmt.Fprintf(&b, "\n\nAttachments (%d):", len(m.Attachments))
		for _, a := range m.Attachments {
			fmt.Fprintf(&b, "\n   - %s", plain(orUnknown(a.Name)))
		}
	}
	return b.String()
}

func formatChatMessage(tm graph.ChatThreadMessage) string {
	m := tm.Message
	var lines []string
	topic := tm.ChatTopic
	if topic == "" {
		topic = graph.UnnamedChat
	}
	lines = append(lines, "Chat: "+plain(topic))

	switch {
	case m.From != nil && m.From.User != nil:
		lines = append(lines, "From: "+plain(orUnknown(m.From.User.DisplayName)))
	case m.From != nil && m.From.Application != nil:
		name := m.From.Application.DisplayName
		if name == "" {
			name = "Bot/App"
		}
		lines = append(lines, "From: "+plain(name)+" (Application)")
	default:
		lines = append(lines, "From: Unknown")
	}

	if !m.CreatedDateTime.IsZero() {
		lines = append(lines, "Sent: "+m.CreatedDateTime.UTC().Format("2006-01-02 15:04:05"))
	}
	msgType := m.MessageType
	if msgType == "" {
		msgType = "message"
	}
	lines = append(lines, "Type: "+plain(msgType))
	if m.Importance != "" && m.Importance != graph.ImportanceNormal {
		lines = append(lines, "Importance: "+plain(m.Importance))
	}

	if m.Body != nil {
		content := strings.TrimSpace(StripTags(m.Body.Content))
		if content != "" {
			lines = append(lines, "\nMessage:", content)
		} else {
			lines = append(lines, "\nMessage: (no text content)")
		}
	}

	if n := len(m.Attachments); n > 0 {
		lines = append(lines, "\nAttachments: "+strconv.Itoa(n))
		for _, a := range m.Attachments[:min(n, 3)] {
			lines = append(lines, "  - "+plain(orUnknown(a.Name)))
		}
	}
	if n := len(m.Reactions); n > 0 {
		lines = append(lines, "\nReactions: "+strconv.Itoa(n))
	}
	return strings.Join(lines, "\n")
}

func joinRecipients(rs []graph.Recipient) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, formatAddress(r.EmailAddress.Name, r.EmailAddress.Address))
	}
	return strings.Join(parts, ", ")
}

// formatAddress renders "Name (address)". Angle brackets are avoided because they
// read as markup.
func formatAddress(name, addr string) string {
	name, addr = plain(strings.TrimSpace(name)), plain(strings.TrimSpace(addr))
	switch {
	case name != "" && addr != "":
		return name + " (" + addr + ")"
	case addr != "":
		return addr
	default:
		return name
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
