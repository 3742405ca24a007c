package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRedirectPage(t *testing.T) {
	html, err := RenderRedirectPage(RedirectPageData{
		Code:        "abc123",
		Destination: "https://example.com/?q=1&r=2",
		ServiceURL:  "https://sho.rt",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "/abc123")
	assert.Contains(t, html, `href="https://example.com/?q=1&amp;r=2"`)
	assert.Contains(t, html, `href="https://sho.rt"`)
	assert.Contains(t, html, "1500")
}

func TestRenderRedirectPage_EscapesDestination(t *testing.T) {
	html, err := RenderRedirectPage(RedirectPageData{
		Code:        "x</strong>",
		Destination: `https://evil.example/"><script>alert(1)</script>`,
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Equal(t, 1, strings.Count(html, "<script>"))
	assert.NotContains(t, html, "Shorten your own link")
}
