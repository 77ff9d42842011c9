package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nibzard/moonboard/internal/boarddir"
)

// projectConfigNames are checked in order in the working directory.
var projectConfigNames = []string{boarddir.ConfigFile, "." + boarddir.ConfigFile}

// findProjectConfigFile looks for a config file in the current directory.
func findProjectConfigFile() string {
	for _, name := range projectConfigNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// findUserConfigFile looks for a user-level config file.
// Checks ~/.moonboard/moonboard.toml first, then falls back to OS-specific
// config directories.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, boarddir.Dir, boarddir.ConfigFile)
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	if cfgDir := osUserConfigDir(); cfgDir != "" {
		userConfigPath := filepath.Join(cfgDir, "moonboard", "moonboard.toml")
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	return ""
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return appdata
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux", "openbsd", "freebsd", "netbsd":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.DataDir = DefaultDataDir
	cfg.Store = DefaultStore
	cfg.LogDir = DefaultLogDir
	cfg.Seed = DefaultSeed
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
	cfg.Sprint = SprintConfig{
		NamePrefix:  "Moon Cycle",
		DefaultGoal: "Focus for this cycle...",
		LengthDays:  DefaultSprintLengthDays,
	}
}

// GetConfigFile returns the config file with the highest priority that was
// read, or "" when only defaults were used.
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}
