package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/coursefs/internal/util"
	"gopkg.in/yaml.v3"
)

// KB is bytes per KiB
const KB = 1024

// Verbosity levels accepted from the CLI and config files, mapped onto
// internal log levels by [NewConfig].
const (
	ErrorVerbose = 1 + iota
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "coursefs"
	DefaultName   = "coursefs"

	// DefaultChunkSize is the size of each pull from a download stream.
	// Small enough that short reads near the start of a large video don't
	// drag in much extra data, large enough to keep syscall churn down.
	DefaultChunkSize = 64 * KB

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO determines whether to bypass the page cache for remote files
	DefaultDirectIO = true

	// DefaultHTTPTimeout is the per-request timeout in seconds for portal and
	// download requests
	DefaultHTTPTimeout = 120
)

// Config contains runtime configuration values for the course filesystem.
type Config struct {
	MountOptions MountOptions
	LogLvl       util.LogLevel // Internal log level derived from verbosity

	ChunkSize    int     // Size of each stream pull in bytes (Default 64KB)
	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache for remote files (Default true)
	HTTPTimeout  int     // HTTP request timeout in seconds (Default 120)

	// File ownership reported for every node. Resolved once at startup from
	// the mounting process rather than looked up per call.
	OwnerUID uint32
	OwnerGID uint32
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions. LogLvl is the user-facing verbosity (1 error .. 5 trace).
type ConfigOverride struct {
	FsName       *string  `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name         *string  `yaml:"name,omitempty" json:"name,omitempty"`
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	ChunkSize    *int     `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO     *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
	HTTPTimeout  *int     `yaml:"http_timeout,omitempty" json:"http_timeout,omitempty"`
	OwnerUID     *uint32  `yaml:"owner_uid,omitempty" json:"owner_uid,omitempty"`
	OwnerGID     *uint32  `yaml:"owner_gid,omitempty" json:"owner_gid,omitempty"`
}

// NewConfig creates a Config with default values and any non-nil override
// fields applied on top.
func NewConfig(override *ConfigOverride) *Config {
	cfg := &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       util.InfoLevel,
		ChunkSize:    DefaultChunkSize,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		DirectIO:     DefaultDirectIO,
		HTTPTimeout:  DefaultHTTPTimeout,
		OwnerUID:     uint32(os.Getuid()),
		OwnerGID:     uint32(os.Getgid()),
	}
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.MountOptions.FsName = *override.FsName
	}
	if override.Name != nil {
		c.MountOptions.Name = *override.Name
	}
	if override.LogLvl != nil {
		c.LogLvl = verbosityToLevel(*override.LogLvl)
	}
	if override.ChunkSize != nil {
		c.ChunkSize = *override.ChunkSize
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
	if override.HTTPTimeout != nil {
		c.HTTPTimeout = *override.HTTPTimeout
	}
	if override.OwnerUID != nil {
		c.OwnerUID = *override.OwnerUID
	}
	if override.OwnerGID != nil {
		c.OwnerGID = *override.OwnerGID
	}
}

// verbosityToLevel converts user-facing verbosity (1..5, clamped) to the
// internal log level.
func verbosityToLevel(v int) util.LogLevel {
	if v < ErrorVerbose {
		v = ErrorVerbose
	}
	if v > TraceVerbose {
		v = TraceVerbose
	}
	levels := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return levels[v-1]
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewConfig and LoadConfigOverrideFile.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
