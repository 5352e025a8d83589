package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfigs creates a temporary "configs" directory and chdirs into its
// parent so the viper search paths resolve. Cleanup restores the working dir.
func setupTestConfigs(t *testing.T) string {
	root := t.TempDir()
	configDir := filepath.Join(root, "configs")
	require.NoError(t, os.Mkdir(configDir, 0755))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(oldWd) })

	return configDir
}

func TestLoad_Success(t *testing.T) {
	configDir := setupTestConfigs(t)

	content := `
track_blocks: true
track_conditions: false
include:
  - "src/*.lua"
exclude:
  - "src/vendor/*.lua"
report_format: "text"
log_level: "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "covtrack.yaml"), []byte(content), 0644))

	var cfg Config
	err := Load("covtrack", &cfg)
	require.NoError(t, err)
	assert.True(t, cfg.TrackBlocks)
	assert.False(t, cfg.TrackConditions)
	assert.Equal(t, []string{"src/*.lua"}, cfg.IncludePatterns)
	assert.Equal(t, []string{"src/vendor/*.lua"}, cfg.ExcludePatterns)
	assert.Equal(t, "text", cfg.ReportFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	setupTestConfigs(t)

	var cfg Config
	err := Load("nope", &cfg)
	assert.Error(t, err)
}

func TestValidate_AmbiguousOverlap(t *testing.T) {
	cfg := Config{
		IncludePatterns: []string{"src/*.lua"},
		ExcludePatterns: []string{"src/*.lua"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "src/*.lua", confErr.Pattern)
	assert.Equal(t, "exclude", confErr.Rule)
}

func TestValidate_BadGlob(t *testing.T) {
	cfg := Config{IncludePatterns: []string{"[unclosed"}}

	err := cfg.Validate()
	require.Error(t, err)

	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "include", confErr.Rule)
}

func TestDecide(t *testing.T) {
	cfg := Config{
		IncludePatterns: []string{"src/*.lua"},
		ExcludePatterns: []string{"src/gen_*.lua"},
	}

	included, rule := cfg.Decide("src/core.lua")
	assert.True(t, included)
	assert.Equal(t, "include:src/*.lua", rule)

	included, rule = cfg.Decide("src/gen_parser.lua")
	assert.False(t, included)
	assert.Equal(t, "exclude:src/gen_*.lua", rule)

	included, _ = cfg.Decide("lib/other.lua")
	assert.False(t, included)
}

func TestDecide_NoPatterns(t *testing.T) {
	var cfg Config

	included, rule := cfg.Decide("anything.lua")
	assert.True(t, included)
	assert.Equal(t, "default", rule)
}

func TestDecide_BaseNameMatch(t *testing.T) {
	cfg := Config{IncludePatterns: []string{"*.lua"}}

	included, _ := cfg.Decide("deep/nested/dir/mod.lua")
	assert.True(t, included)
}
