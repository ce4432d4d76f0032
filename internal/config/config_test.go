package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "pdf_index.db"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join("data", "resumes"), cfg.Resumes.Dir)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, 100, cfg.Index.BatchSize)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, 5, cfg.Search.MaxConcurrent)
	assert.Equal(t, time.Hour, cfg.Search.GetCacheTTL())
	assert.InDelta(t, 0.5, cfg.Search.Scoring.PhraseCap, 1e-9)
	assert.InDelta(t, 0.1, cfg.Search.Scoring.MinScore, 1e-9)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "prod", cfg.Log.Env)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  path: /var/lib/resumebot/index.db
resumes:
  dir: /srv/resumes
index:
  workers: 4
search:
  limit: 10
  cache_ttl: 600
redis:
  addr: localhost:6380
log:
  env: dev
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/resumebot/index.db", cfg.Storage.Path)
	assert.Equal(t, "/srv/resumes", cfg.Resumes.Dir)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, 100, cfg.Index.BatchSize) // default survives partial file
	assert.Equal(t, 10, cfg.Search.Limit)
	assert.Equal(t, 10*time.Minute, cfg.Search.GetCacheTTL())
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, "dev", cfg.Log.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  workers: -1
search:
  limit: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, 20, cfg.Search.Limit)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
