package config

import (
	"time"

	"github.com/nibzard/moonboard/internal/board"
	"github.com/nibzard/moonboard/internal/boarddir"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceDotEnv   ConfigSource = ".env"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, in load order.
	Files []string
	// DotEnvFile is the .env file that was read, if any.
	DotEnvFile string
}

// Default values.
const (
	DefaultDataDir          = boarddir.Dir
	DefaultStore            = "file"
	DefaultLogDir           = "~/.moonboard/logs"
	DefaultSeed             = true
	DefaultSprintLengthDays = 28
)

// Config holds the full configuration for moonboard.
type Config struct {
	// Paths
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`

	// Store selects the storage backend: file, sqlite or memory.
	Store string `toml:"store"`

	// Seed fills a brand new board with sample goals.
	Seed bool `toml:"seed"`

	// Hooks
	HookCommand string `toml:"hook_command"`

	Sprint SprintConfig `toml:"sprint"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// SprintConfig controls new sprints.
type SprintConfig struct {
	NamePrefix  string `toml:"name_prefix"`
	DefaultGoal string `toml:"default_goal"`
	LengthDays  int    `toml:"length_days"`
}

// SprintOptions converts the sprint settings for the board package.
func (c *Config) SprintOptions() board.SprintOptions {
	return board.SprintOptions{
		NamePrefix: c.Sprint.NamePrefix,
		Goal:       c.Sprint.DefaultGoal,
		Length:     time.Duration(c.Sprint.LengthDays) * 24 * time.Hour,
	}
}
