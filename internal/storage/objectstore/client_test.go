package objectstore

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipBytes_Roundtrip(t *testing.T) {
	original := []byte("<html><body>Some page content that compresses well well well</body></html>")

	compressed, err := gzipBytes(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestGzipBytes_Empty(t *testing.T) {
	compressed, err := gzipBytes(nil)
	require.NoError(t, err)

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}
