package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>". Graph access tokens show up in upstream error strings.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|openai[_-]?api[_-]?key|client[_-]?secret|access[_-]?token)\b\s*[:=]\s*[^\s"'&]+`)

	// OpenAI keys embedded in free text ("sk-..." / "sk-proj-...").
	openAIKeyRe = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
//
// Safe to call on any message, including user-provided text and upstream error
// strings shown back to the chat user.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = openAIKeyRe.ReplaceAllString(out, "<redacted_key>")
	return strings.TrimSpace(out)
}
