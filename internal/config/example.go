package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# moonboard configuration file
# Values can be overridden by .env, MOONBOARD_* environment variables or CLI flags

# Board data directory (relative to the project root)
data_dir = ".moonboard"

# Storage backend: "file" (one JSON file per collection) or "sqlite"
store = "file"

# Journal directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.moonboard/logs"

# Seed a brand new board with sample goals
seed = true

# Hook command to run after each saved change
# hook_command = "/path/to/hook.sh"

# Logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = false
log_caller = false

[sprint]
name_prefix = "Moon Cycle"
default_goal = "Focus for this cycle..."
# Days from start to end date; 0 leaves the end date open
length_days = 28
`
}
