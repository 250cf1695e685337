package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML_Overrides(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(`
server:
  listen_addr: 0.0.0.0:9000
  write_timeout: 2s
field:
  frame_rate: 30
  seed: 42
api:
  base_url: https://safarnama.example/api
  timeout: 3s
session:
  path: /tmp/safarnama/session.db
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", c.Server.ListenAddr)
	assert.Equal(t, 2*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, 1000, c.Server.MaxConnections, "unset keys keep defaults")
	assert.Equal(t, 30, c.Field.FrameRate)
	assert.Equal(t, uint64(42), c.Field.Seed)
	assert.Equal(t, 1200.0, c.Field.Width)
	assert.Equal(t, 3*time.Second, c.API.Timeout)
	assert.Equal(t, "/tmp/safarnama/session.db", c.Session.Path)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadYAML_EmptyDocument(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadYAML_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("field:\n  gravity: 9.8\n"))
	assert.Error(t, err)
}

func TestLoadYAML_Validation(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("field:\n  frame_rate: 0\n  width: -1\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "frame_rate")
	assert.Contains(t, err.Error(), "width")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safarnama.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault_SessionPersistsUnderConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	want := DefaultSessionPath()
	require.NotEmpty(t, want)
	assert.True(t, strings.HasPrefix(want, dir), "session path %q outside %q", want, dir)
	assert.True(t, strings.HasSuffix(want, filepath.Join("safarnama", "session.db")))
	assert.Equal(t, want, Default().Session.Path)

	c, err := LoadYAML(strings.NewReader("session:\n  path: \"\"\n"))
	require.NoError(t, err)
	assert.Empty(t, c.Session.Path, "an explicit empty path keeps the session in memory")
}
