package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToMarkdown(t *testing.T) {
	markdown, err := ConvertToMarkdown(
		`<h1>Title</h1><p>Hello <a href="/next">next page</a></p>`,
		"https://example.com/page")
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Title")
	assert.Contains(t, markdown, "next page")
	assert.Contains(t, markdown, "/next")
}

func TestConvertToMarkdown_Empty(t *testing.T) {
	markdown, err := ConvertToMarkdown("", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, markdown)
}
