package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bearer", in: "request failed: Authorization: Bearer eyJhbGciOi.abc.def", want: "request failed: Authorization: Bearer <redacted>"},
		{name: "api key kv", in: "bad config api_key=AIzaSy123 model=x", want: "bad config <redacted_kv> model=x"},
		{name: "client secret", in: "token: client_secret=s3cr3t&grant_type=client_credentials", want: "token: <redacted_kv>&grant_type=client_credentials"},
		{name: "openai key", in: "invalid key sk-proj-abcdefghijklmnop1234", want: "invalid key <redacted_key>"},
		{name: "plain", in: "  nothing to hide  ", want: "nothing to hide"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets(tt.in))
		})
	}
}
