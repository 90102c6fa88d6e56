package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"local_db_path":   "other.db",
		"session_timeout": "10s",
		"policy": map[string]any{
			"max_items":           3,
			"allowed_media_types": []string{"image/*"},
		},
		"remote": map[string]any{"s3_bucket": "vault", "s3_base_endpoint": "http://minio:9000"},
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJSON(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "other.db", cfg.LocalDBPath)
		assert.Equal(t, 10*time.Second, cfg.SessionTimeout)
		assert.Equal(t, 3, cfg.Policy.MaxItems)
		assert.Equal(t, []string{"image/*"}, cfg.Policy.AllowedMediaTypes)
		assert.Equal(t, "vault", cfg.Remote.S3Bucket)
		assert.Equal(t, "http://minio:9000", cfg.Remote.S3BaseEndpoint)
	})

	t.Run("absent fields keep current values", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJSON(cfg, []string{"-c", pathFlag}))

		assert.Equal(t, "gophvault.log", cfg.LogFile)
		assert.Equal(t, int64(5<<20), cfg.Policy.MaxFileBytes)
		assert.Equal(t, "us-east-1", cfg.Remote.S3Region)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		cfg := &Config{LocalDBPath: "defaults.db", SessionTimeout: 42 * time.Second}
		require.NoError(t, parseJSON(cfg, []string{"-d", "x.db"}))

		assert.Equal(t, "defaults.db", cfg.LocalDBPath)
		assert.Equal(t, 42*time.Second, cfg.SessionTimeout)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJSON(&Config{}, []string{"-config", bad})
		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("missing file → error", func(t *testing.T) {
		err := parseJSON(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")})
		assert.ErrorContains(t, err, "failed to read config")
	})
}
