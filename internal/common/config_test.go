package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 25, config.Crawler.BatchPageThreshold)
	assert.Equal(t, 15*time.Second, config.Crawler.BatchInterval)
	assert.Equal(t, 5, config.Crawler.MaxChildSitemaps)
	assert.Equal(t, "script", config.Renderer.Mode)
	assert.Equal(t, "*/5 * * * *", config.Scheduler.MaintenanceSchedule)
}

func TestLoadFromFiles_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.toml")
	content := `
environment = "production"

[server]
port = 9090

[crawler]
shared_secret = "test-secret"
batch_page_threshold = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "test-secret", config.Crawler.SharedSecret)
	assert.Equal(t, 50, config.Crawler.BatchPageThreshold)
	// Untouched values keep defaults
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 15*time.Second, config.Crawler.BatchInterval)
}

func TestLoadFromFiles_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.yml")
	content := `
server:
  port: 7070
crawler:
  shared_secret: yaml-secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "yaml-secret", config.Crawler.SharedSecret)
}

func TestLoadFromFiles_MergeOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.toml")
	second := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(first, []byte(`
[server]
port = 9001

[crawler]
shared_secret = "base"
`), 0644))
	require.NoError(t, os.WriteFile(second, []byte(`
[server]
port = 9002
`), 0644))

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)

	// Later files win, earlier values survive where not overridden
	assert.Equal(t, 9002, config.Server.Port)
	assert.Equal(t, "base", config.Crawler.SharedSecret)
}

func TestLoadFromFiles_MissingFileSkipped(t *testing.T) {
	config, err := LoadFromFiles("/nonexistent/scout.toml")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCOUT_PORT", "6060")
	t.Setenv("SCOUT_SHARED_SECRET", "env-secret")
	t.Setenv("SCOUT_BATCH_INTERVAL", "30s")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "env-secret", config.Crawler.SharedSecret)
	assert.Equal(t, 30*time.Second, config.Crawler.BatchInterval)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 5050, "127.0.0.1")
	assert.Equal(t, 5050, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 5050, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestValidate(t *testing.T) {
	config := NewDefaultConfig()
	assert.Error(t, config.Validate(), "missing shared secret must fail")

	config.Crawler.SharedSecret = "s"
	assert.NoError(t, config.Validate())

	config.Storage.Object.Enabled = true
	assert.Error(t, config.Validate(), "enabled object storage requires endpoint")

	config.Storage.Object.Endpoint = "https://acct.r2.cloudflarestorage.com"
	config.Storage.Object.Bucket = "crawls"
	config.Storage.Object.AccessKey = "ak"
	config.Storage.Object.SecretKey = "sk"
	assert.NoError(t, config.Validate())

	config.Renderer.Enabled = true
	config.Renderer.Mode = "browser"
	assert.Error(t, config.Validate(), "unknown renderer mode must fail")

	config.Renderer.Mode = "chromedp"
	assert.NoError(t, config.Validate())
}

func TestDeepCloneConfig(t *testing.T) {
	config := NewDefaultConfig()
	config.WebSocket.ExcludePatterns = []string{"noise"}

	clone := DeepCloneConfig(config)
	clone.Server.Port = 1234
	clone.WebSocket.ExcludePatterns[0] = "changed"

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "noise", config.WebSocket.ExcludePatterns[0])
}
