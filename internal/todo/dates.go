package todo

import (
	"strings"
	"time"
)

// dueDateLayouts are tried in order. Day-first layouts come before any month-first
// reading because the source mailboxes use day-first dates.
var dueDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// NormalizeDueDate returns s as YYYY-MM-DD, or "" with ok=false when s is empty, a null
// marker or not a recognizable date. It never invents a date.
func NormalizeDueDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "nil", "n/a":
		return "", false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
