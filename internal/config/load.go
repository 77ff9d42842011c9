package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/moonboard/internal/boarddir"
)

// LoadWithSources loads configuration from multiple sources in priority
// order and tracks where each value came from:
// 1. Defaults
// 2. User config file (~/.moonboard/moonboard.toml or OS-specific config dir)
// 3. Project config file (moonboard.toml or .moonboard.toml in current directory)
// 4. .env in the current directory
// 5. Environment variables
// 6. CLI flags
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	cws := &ConfigWithSources{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}
	cfg := cws.Config

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		cws.Sources[field] = SourceDefault
	}

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, cws.Sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
		cws.Files = append(cws.Files, userConfigFile)
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, cws.Sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
		cws.Files = append(cws.Files, projectConfigFile)
	}

	// 4-5. Override from .env and the environment
	dotenv, err := readDotEnv(dotEnvFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dotEnvFile, err)
	}
	if dotenv != nil {
		cws.DotEnvFile = dotEnvFile
	}
	if err := loadFromEnv(cfg, dotenv, cws.Sources); err != nil {
		return nil, err
	}

	// 6. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, cws.Sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cws, nil
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"data_dir",
		"store",
		"log_dir",
		"seed",
		"hook_command",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"sprint.name_prefix",
		"sprint.default_goal",
		"sprint.length_days",
	}
}

// loadConfigFile decodes a TOML file over cfg and records every key the file
// defines.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, key := range md.Keys() {
		name := key.String()
		if _, ok := sources[name]; ok {
			sources[name] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config) error {
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	switch cfg.Store {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid store %q, must be one of: file, sqlite, memory", cfg.Store)
	}
	if cfg.Sprint.LengthDays < 0 {
		return fmt.Errorf("sprint.length_days must not be negative, got %d", cfg.Sprint.LengthDays)
	}

	cfg.LogDir = expandPath(cfg.LogDir)
	cfg.DataDir = expandPath(cfg.DataDir)

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	if cfg.DataDir == "" {
		cfg.DataDir = boarddir.DirPath(cfg.ProjectRoot)
	}
	cfg.DataDir = absPath(cfg.ProjectRoot, cfg.DataDir)
	cfg.LogDir = absPath(cfg.ProjectRoot, cfg.LogDir)
	return nil
}
