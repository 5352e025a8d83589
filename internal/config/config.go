// Package config holds the coverage engine configuration and its file loader.
package config

import (
	"fmt"
	"path"

	"github.com/spf13/viper"
)

// Config controls what the coverage engine tracks and how results are rendered.
type Config struct {
	// TrackBlocks enables block-level (branch/loop/function-body) counters.
	TrackBlocks bool `mapstructure:"track_blocks"`

	// TrackConditions enables per-operand condition outcome counters.
	TrackConditions bool `mapstructure:"track_conditions"`

	// IncludePatterns selects which file paths participate in tracking.
	// Empty means every registered file is included.
	IncludePatterns []string `mapstructure:"include"`

	// ExcludePatterns removes file paths from tracking. Exclude wins over include.
	ExcludePatterns []string `mapstructure:"exclude"`

	// ReportFormat names the formatter used by drivers ("text", "json", "markdown").
	ReportFormat string `mapstructure:"report_format"`

	// LogLevel configures the logger ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"log_level"`
}

// ConfigurationError reports an include/exclude rule problem found before a
// session starts. Rule names the side that decided ("include" or "exclude").
type ConfigurationError struct {
	Pattern string
	Rule    string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: pattern %q (%s rule): %s", e.Pattern, e.Rule, e.Reason)
}

// Load reads a configuration file from the "configs" directory into a struct.
// The configName parameter should be the base name of the file without the
// extension (e.g., "covtrack"). The result parameter should be a pointer to a
// struct that the configuration will be unmarshaled into.
func Load(configName string, result interface{}) error {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	return nil
}

// Validate checks pattern syntax and rejects ambiguous include/exclude overlap.
// A pattern appearing on both sides is ambiguous: exclude would win at runtime,
// so the error names the exclude rule as the deciding side. The static check
// only catches identical pattern strings; distinct globs that happen to match
// the same path (include "src/*" vs exclude "*.lua") are resolved per path by
// Decide, which applies exclude-wins and reports the deciding rule.
func (c *Config) Validate() error {
	for _, p := range c.IncludePatterns {
		if _, err := path.Match(p, "probe"); err != nil {
			return &ConfigurationError{Pattern: p, Rule: "include", Reason: "bad glob syntax"}
		}
	}
	for _, p := range c.ExcludePatterns {
		if _, err := path.Match(p, "probe"); err != nil {
			return &ConfigurationError{Pattern: p, Rule: "exclude", Reason: "bad glob syntax"}
		}
	}
	for _, inc := range c.IncludePatterns {
		for _, exc := range c.ExcludePatterns {
			if inc == exc {
				return &ConfigurationError{
					Pattern: inc,
					Rule:    "exclude",
					Reason:  "pattern listed as both include and exclude; exclude wins",
				}
			}
		}
	}
	return nil
}

// Decide reports whether a normalized path participates in tracking and which
// rule decided. Exclude always wins over include; with no include patterns
// every path is included by default.
func (c *Config) Decide(p string) (included bool, rule string) {
	for _, pat := range c.ExcludePatterns {
		if matchPath(pat, p) {
			return false, "exclude:" + pat
		}
	}
	if len(c.IncludePatterns) == 0 {
		return true, "default"
	}
	for _, pat := range c.IncludePatterns {
		if matchPath(pat, p) {
			return true, "include:" + pat
		}
	}
	return false, "default"
}

// matchPath matches the pattern against the full path and, for convenience,
// against the base name, so "*.lua" behaves as callers expect.
func matchPath(pattern, p string) bool {
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if ok, _ := path.Match(pattern, path.Base(p)); ok {
		return true
	}
	return false
}
