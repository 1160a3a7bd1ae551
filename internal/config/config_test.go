package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(30), cfg.Throttle.BaseInterval)
	assert.Equal(t, int64(50_000), cfg.Pagination.Budget)
	assert.Equal(t, 4096, cfg.Interner.Capacity)
	assert.False(t, cfg.Stream.Differential)
	assert.Equal(t, 1024, cfg.Renderer.InitialInstances)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
throttle:
  min_interval: 2
pagination:
  budget: 1000
stream:
  differential: true
  port_radius: 6
`))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cfg.Throttle.MinInterval)
	assert.Equal(t, uint64(120), cfg.Throttle.MaxInterval)
	assert.Equal(t, int64(1000), cfg.Pagination.Budget)
	assert.Equal(t, 100, cfg.Pagination.MaxItems)
	assert.True(t, cfg.Stream.Differential)
	assert.Equal(t, float32(6), cfg.Stream.PortRadius)
}

func TestValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		yaml string
		key  string
	}{
		"inverted intervals": {"throttle: {min_interval: 50, max_interval: 10}", "throttle.max_interval"},
		"base out of range":  {"throttle: {base_interval: 500}", "throttle.base_interval"},
		"zero threshold":     {"throttle: {threshold: 0}", "throttle.threshold"},
		"unit threshold":     {"throttle: {threshold: 1}", "throttle.threshold"},
		"threshold too wide": {"throttle: {threshold: 8, window: 8}", "throttle.threshold"},
		"zero window":        {"throttle: {window: 0}", "throttle.window"},
		"zero budget":        {"pagination: {budget: 0}", "pagination.budget"},
		"max below min":      {"pagination: {min_items: 10, max_items: 5}", "pagination.max_items"},
		"zero capacity":      {"interner: {capacity: 0}", "interner.capacity"},
		"negative radius":    {"stream: {flag_radius: -1}", "stream.flag_radius"},
		"renderer limit":     {"renderer: {initial_instances: 64, max_instances: 8}", "renderer.max_instances"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.ErrorContains(t, err, tc.key)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("throttle: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interner: {capacity: 16}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Interner.Capacity)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
