package stack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceURLs_ExampleDomain(t *testing.T) {
	urls := ServiceURLs("example.com")

	assert.Len(t, urls, 8)
	for _, u := range urls {
		assert.Contains(t, u.URL, "example.com", u.Name)
		assert.True(t, strings.HasPrefix(u.URL, "https://"), u.Name)
	}
}

func TestServiceURLs_WebhookPath(t *testing.T) {
	urls := ServiceURLs("example.com")

	assert.Equal(t, "https://n8n.example.com/webhook", urls[2].URL)
	assert.Equal(t, "https://s3.example.com", urls[5].URL)
}
