// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.moonboard/moonboard.toml or OS-specific config directory)
// 3. Project config file (moonboard.toml or .moonboard.toml in the project root)
// 4. A .env file in the project root
// 5. Environment variables (MOONBOARD_*)
// 6. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
// Variables already present in the process environment win over the same
// keys in .env.
//
// User-level config locations:
// - ~/.moonboard/moonboard.toml (preferred)
// - Windows: %APPDATA%\moonboard\moonboard.toml
// - macOS: ~/Library/Application Support/moonboard/moonboard.toml
// - Linux/BSD: $XDG_CONFIG_HOME/moonboard/moonboard.toml or ~/.config/moonboard/moonboard.toml
//
// Project-level config locations (overrides user config):
// - ./moonboard.toml (preferred)
// - ./.moonboard.toml
package config
