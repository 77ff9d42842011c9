package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// dotEnvFile is read from the working directory.
const dotEnvFile = ".env"

// readDotEnv parses a .env file without touching the process environment.
// A missing file yields a nil map.
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return godotenv.Read(path)
}

// envLookup resolves a variable from the process environment first, then
// from the parsed .env file.
type envLookup struct {
	dotenv  map[string]string
	sources map[string]ConfigSource
}

func (e envLookup) get(key string) (string, ConfigSource, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, SourceEnv, true
	}
	if v, ok := e.dotenv[key]; ok && v != "" {
		return v, SourceDotEnv, true
	}
	return "", "", false
}

func (e envLookup) str(key, field string, target *string) {
	if v, src, ok := e.get(key); ok {
		*target = v
		e.sources[field] = src
	}
}

func (e envLookup) boolean(key, field string, target *bool) {
	if v, src, ok := e.get(key); ok {
		*target = boolFromString(v)
		e.sources[field] = src
	}
}

func (e envLookup) integer(key, field string, target *int) error {
	v, src, ok := e.get(key)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*target = i
	e.sources[field] = src
	return nil
}

// loadFromEnv overrides config from MOONBOARD_* variables.
func loadFromEnv(cfg *Config, dotenv map[string]string, sources map[string]ConfigSource) error {
	env := envLookup{dotenv: dotenv, sources: sources}

	env.str("MOONBOARD_DATA_DIR", "data_dir", &cfg.DataDir)
	env.str("MOONBOARD_STORE", "store", &cfg.Store)
	env.str("MOONBOARD_LOG_DIR", "log_dir", &cfg.LogDir)
	env.boolean("MOONBOARD_SEED", "seed", &cfg.Seed)
	env.str("MOONBOARD_HOOK", "hook_command", &cfg.HookCommand)

	env.str("MOONBOARD_SPRINT_PREFIX", "sprint.name_prefix", &cfg.Sprint.NamePrefix)
	env.str("MOONBOARD_SPRINT_GOAL", "sprint.default_goal", &cfg.Sprint.DefaultGoal)
	if err := env.integer("MOONBOARD_SPRINT_DAYS", "sprint.length_days", &cfg.Sprint.LengthDays); err != nil {
		return err
	}

	// Logging configuration
	env.str("MOONBOARD_LOG_LEVEL", "log_level", &cfg.LogLevel)
	env.str("MOONBOARD_LOG_FORMAT", "log_format", &cfg.LogFormat)
	env.boolean("MOONBOARD_LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	env.boolean("MOONBOARD_LOG_CALLER", "log_caller", &cfg.LogCaller)
	return nil
}

func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
