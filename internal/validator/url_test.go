package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	domains := []string{"youtube.com", "youtu.be"}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"short link", "https://youtu.be/abc123", true},
		{"watch page", "https://www.youtube.com/watch?v=abc123", true},
		{"mobile", "http://m.youtube.com/watch?v=abc123", true},
		{"other host", "https://vimeo.com/123", false},
		{"no scheme", "youtube.com/watch?v=abc123", false},
		{"ftp scheme", "ftp://youtube.com/file", false},
		{"javascript", "javascript:alert('youtube.com')", false},
		{"relative", "/watch?v=youtube.com", false},
		{"empty", "", false},
		{"no host", "https:///youtube.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.url, domains))
		})
	}
}

func TestValidatorCopiesDomains(t *testing.T) {
	domains := []string{"youtu.be"}
	v := New(domains)
	domains[0] = "example.com"

	assert.True(t, v.Allowed("https://youtu.be/x"))
	assert.False(t, v.Allowed("https://example.com/x"))
}
