package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"masks username and domain", "alice@example.com", "a****@*******.com"},
		{"single char username kept", "a@example.com", "a@*******.com"},
		{"no at sign", "not-an-email", "[invalid-email]"},
		{"multiple at signs", "a@b@c.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("password=hunter2"))
	assert.True(t, SanitizeQueryString("next=/home&TOKEN=abc"))
	assert.False(t, SanitizeQueryString("page=2&sort=desc"))
	assert.False(t, SanitizeQueryString(""))
}
