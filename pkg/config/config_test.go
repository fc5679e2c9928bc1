package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/pkg/config"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treeclone.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, model.Default, cfg.Clone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Lock.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NotExists(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Clone.OverwriteExistingFiles)
	assert.False(t, cfg.Clone.ContinueOnError)
	assert.Zero(t, cfg.Clone.MaxDepth)
	assert.Empty(t, cfg.Clone.Exclude)
	assert.Equal(t, config.Default().Lock, cfg.Lock)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_Exists(t *testing.T) {
	path := writeConfig(t, `
clone:
  overwrite_existing_files: true
  max_depth: 3
  exclude:
    - "*.tmp"
logging:
  level: debug
  format: json
lock:
  ttl: 30s
journal:
  path: /var/lib/treeclone/journal.jsonl
jobs:
  - name: photos
    source: /data/photos
    destination: /backup/photos
    verify: true
  - name: docs
    source: /data/docs
    destination: /backup/docs
    options:
      continue_on_error: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Clone.OverwriteExistingFiles)
	assert.Equal(t, 3, cfg.Clone.MaxDepth)
	assert.Equal(t, []string{"*.tmp"}, cfg.Clone.Exclude)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.True(t, cfg.Lock.Enabled, "unset keys keep their defaults")
	assert.Equal(t, "/var/lib/treeclone/journal.jsonl", cfg.Journal.Path)

	require.Len(t, cfg.Jobs, 2)
	assert.True(t, cfg.Jobs[0].Verify)
	assert.Nil(t, cfg.Jobs[0].Options)
	assert.Equal(t, cfg.Clone, cfg.Jobs[0].EffectiveOptions(cfg.Clone))
	require.NotNil(t, cfg.Jobs[1].Options)
	assert.True(t, cfg.Jobs[1].EffectiveOptions(cfg.Clone).ContinueOnError)
	assert.False(t, cfg.Jobs[1].EffectiveOptions(cfg.Clone).OverwriteExistingFiles)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	t.Setenv("TREECLONE_LOGGING_LEVEL", "warn")
	t.Setenv("TREECLONE_CLONE_CONTINUE_ON_ERROR", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Clone.ContinueOnError)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "clone: [not: valid")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"negative depth": "clone:\n  max_depth: -1\n",
		"level":          "logging:\n  level: loud\n",
		"format":         "logging:\n  format: xml\n",
		"ttl":            "lock:\n  ttl: 0s\n",
		"job name":       "jobs:\n  - name: ../x\n    source: /a\n    destination: /b\n",
		"job paths":      "jobs:\n  - name: x\n    source: /a\n",
		"duplicate job":  "jobs:\n  - name: x\n    source: /a\n    destination: /b\n  - name: x\n    source: /c\n    destination: /d\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			require.ErrorIs(t, err, errclass.ErrConfigInvalid)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "treeclone.yaml")
	cfg := config.Default()
	cfg.Clone.Exclude = []string{".git/"}
	cfg.Metrics.Textfile = "/tmp/treeclone.prom"
	cfg.Jobs = []config.Job{{Name: "a", Source: "/s", Destination: "/d", Verify: true}}

	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Clone.Exclude, loaded.Clone.Exclude)
	assert.Equal(t, cfg.Metrics, loaded.Metrics)
	assert.Equal(t, cfg.Lock, loaded.Lock)
	assert.Equal(t, cfg.Jobs, loaded.Jobs)
}

func TestMarshal_DurationsAreReadable(t *testing.T) {
	data, err := config.Marshal(config.Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "ttl: 10m0s")
	assert.Contains(t, string(data), "overwrite_existing_files: false")
}
