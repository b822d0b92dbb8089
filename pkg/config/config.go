package config

import (
	"fmt"
	"time"
)

const (
	// DefaultConfigFile is looked up in the working directory
	DefaultConfigFile = "config.yml"
	// DefaultTargetDir holds artifacts when target_dir is absent
	DefaultTargetDir = "/data/dump"
	// DefaultNameTemplate is the naming template used when an entry has no "name"
	DefaultNameTemplate = "{name}-{date}"
)

// Reserved top-level keys. Everything else at the top level is an entry.
const (
	KeyTargetDir     = "target_dir"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyMaxConcurrent = "max_concurrent"
	KeyTimeout       = "timeout"
	KeyStrict        = "strict"
	KeyStorage       = "storage"
)

var reservedKeys = map[string]bool{
	KeyTargetDir:     true,
	KeyLogLevel:      true,
	KeyLogFormat:     true,
	KeyMaxConcurrent: true,
	KeyTimeout:       true,
	KeyStrict:        true,
	KeyStorage:       true,
}

// Connection/selection options passed through to the dump tools
const (
	OptHost       = "host"
	OptPort       = "port"
	OptUser       = "user"
	OptPassword   = "password"
	OptDB         = "db"
	OptCollection = "collection"
)

var passthroughOptions = []string{OptHost, OptPort, OptUser, OptPassword, OptDB, OptCollection}

// Config is the root configuration structure. Entries keep the order they
// appear in the file.
type Config struct {
	TargetDir     string
	LogLevel      string
	LogFormat     string
	MaxConcurrent int
	Timeout       time.Duration
	Strict        bool
	Storage       StorageConfig
	Entries       []Entry
}

// StorageConfig lists the destinations final artifacts can be shipped to
type StorageConfig struct {
	Destinations []StorageDestination `yaml:"destinations"`
}

// StorageDestination defines one upload target
type StorageDestination struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"` // local, s3, backblaze, ssh
	Enabled *bool                  `yaml:"enabled"`
	BaseDir string                 `yaml:"base_dir"`
	Options map[string]interface{} `yaml:"options"`
}

// IsEnabled returns whether the destination is active (defaults to true)
func (d StorageDestination) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Entry is one logical backup target. Scalar entries are comments or
// placeholders and are never dumped. Err is set when the entry's settings
// could not be loaded; such entries are skipped at dispatch time.
type Entry struct {
	Name     string
	Scalar   bool
	Settings *Settings
	Err      error
}

// Settings is the record of recognized options for an entry
type Settings struct {
	Use       string
	Name      string
	Format    string
	Sed       []string
	Latest    *bool
	Upload    []string
	Timeout   time.Duration
	Strict    *bool
	ExtraArgs []string

	options map[string]string
}

// Has reports whether a passthrough option is present in the record
func (s *Settings) Has(key string) bool {
	_, ok := s.options[key]
	return ok
}

// Get returns the string value of a passthrough option ("" if absent)
func (s *Settings) Get(key string) string {
	return s.options[key]
}

// GetOr returns the option value, or fallback when absent or empty
func (s *Settings) GetOr(key, fallback string) string {
	if v := s.options[key]; v != "" {
		return v
	}
	return fallback
}

// GetNameTemplate returns the naming template (defaults to DefaultNameTemplate)
func (s *Settings) GetNameTemplate() string {
	if s.Name != "" {
		return s.Name
	}
	return DefaultNameTemplate
}

// LatestEnabled reports whether the "latest" alias should be maintained
func (s *Settings) LatestEnabled() bool {
	return s.Latest == nil || *s.Latest
}

// GetTimeout returns the effective per-invocation timeout (0 = none)
func (s *Settings) GetTimeout(global time.Duration) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return global
}

// IsStrict returns whether a failed dump stops the entry (entry overrides global)
func (s *Settings) IsStrict(global bool) bool {
	if s.Strict != nil {
		return *s.Strict
	}
	return global
}

// GetTargetDir returns the base directory for artifacts
func (c *Config) GetTargetDir() string {
	if c.TargetDir != "" {
		return c.TargetDir
	}
	return DefaultTargetDir
}

// GetLogLevel returns the log level (defaults to info)
func (c *Config) GetLogLevel() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}

// GetLogFormat returns the log format (defaults to console)
func (c *Config) GetLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	return "console"
}

// GetMaxConcurrent returns how many entries may run at once (defaults to 1)
func (c *Config) GetMaxConcurrent() int {
	if c.MaxConcurrent > 0 {
		return c.MaxConcurrent
	}
	return 1
}

// Destination looks up an enabled storage destination by name
func (c *Config) Destination(name string) (StorageDestination, bool) {
	for _, d := range c.Storage.Destinations {
		if d.Name == name && d.IsEnabled() {
			return d, true
		}
	}
	return StorageDestination{}, false
}

// Only restricts the configuration to the named entries, keeping file order
func (c *Config) Only(names []string) error {
	if len(names) == 0 {
		return nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}

	var kept []Entry
	for _, e := range c.Entries {
		if _, ok := wanted[e.Name]; ok {
			wanted[e.Name] = true
			kept = append(kept, e)
		}
	}

	for _, n := range names {
		if !wanted[n] {
			return fmt.Errorf("entry %q not found in configuration", n)
		}
	}

	c.Entries = kept
	return nil
}
