package config

import (
	"flag"
)

// flagToSource maps flag names to source field names.
var flagToSource = map[string]string{
	"data-dir":       "data_dir",
	"store":          "store",
	"log-dir":        "log_dir",
	"seed":           "seed",
	"hook":           "hook_command",
	"sprint-days":    "sprint.length_days",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
}

// RegisterFlags defines the global flags on fs, bound to cfg.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Board data directory")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend (file, sqlite)")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Journal directory")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "Seed a new board with sample goals")
	fs.StringVar(&cfg.HookCommand, "hook", cfg.HookCommand, "Hook command to run after each saved change")
	fs.IntVar(&cfg.Sprint.LengthDays, "sprint-days", cfg.Sprint.LengthDays, "Length of new sprints in days (0 leaves the end date open)")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")
}

// parseFlags defines and parses CLI flags over cfg and records the flags that
// were set explicitly.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("moonboard", flag.ContinueOnError)
	}
	RegisterFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if field, ok := flagToSource[f.Name]; ok && sources != nil {
			sources[field] = SourceFlag
		}
	})
	return nil
}
