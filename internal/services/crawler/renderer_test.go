package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenderOutput(t *testing.T) {
	links, err := parseRenderOutput([]byte(`{"links":[{"url":"https://example.com/page","anchor_text":"Page","rel":""}]}`))
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/page", links[0].URL)
	assert.Equal(t, "Page", links[0].AnchorText)
	assert.Equal(t, "", links[0].Rel)
}

func TestParseRenderOutput_ScriptError(t *testing.T) {
	_, err := parseRenderOutput([]byte(`{"error":"Navigation timeout"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Navigation timeout")
}

func TestParseRenderOutput_EmptyLinks(t *testing.T) {
	links, err := parseRenderOutput([]byte(`{"links":[]}`))
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestParseRenderOutput_RelAttributes(t *testing.T) {
	links, err := parseRenderOutput([]byte(`{"links":[
		{"url":"https://a.com","anchor_text":"A","rel":"nofollow"},
		{"url":"https://b.com","anchor_text":"B","rel":"sponsored nofollow"}
	]}`))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "nofollow", links[0].Rel)
	assert.Equal(t, "sponsored nofollow", links[1].Rel)
}

func TestParseRenderOutput_InvalidJSON(t *testing.T) {
	_, err := parseRenderOutput([]byte("not json at all"))
	assert.Error(t, err)
}
