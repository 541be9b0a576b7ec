package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, ServerListenAddr, c.ListenAddr)
	assert.Equal(t, RedisAddr, c.Storage.RedisAddr)
	assert.Equal(t, DefaultDataDir, c.Storage.DataDir)
	assert.Equal(t, "simulated", c.Upload.Backend)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "docassist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":4000"
storage:
  redis_addr: "redis:6379"
  disable_redis: true
llm:
  provider: openai
`), 0o600))

	t.Setenv("ASSIST_LISTEN_ADDR", ":5000")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ASSIST_AUTH_TOKEN", "tok")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", c.ListenAddr)
	assert.Equal(t, "redis:6379", c.Storage.RedisAddr)
	assert.True(t, c.Storage.DisableRedis)
	assert.Equal(t, 2, c.Storage.RedisDB)
	assert.Equal(t, "openai", c.LLM.Provider)
	assert.Equal(t, "tok", c.Auth.Token)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ASSIST_UPLOAD_BACKEND=s3\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ASSIST_UPLOAD_BACKEND") })

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3", c.Upload.Backend)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
