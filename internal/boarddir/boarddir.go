// Package boarddir provides constants and utilities for the .moonboard directory structure.
package boarddir

import "path/filepath"

const (
	// Dir is the name of the board state directory.
	Dir = ".moonboard"

	// ConfigFile is the project config file name, created next to Dir by init.
	ConfigFile = "moonboard.toml"

	// IgnoreFile keeps board data out of version control when the user wants that.
	IgnoreFile = ".gitignore"
)

// DirPath returns the full path to the .moonboard directory within a work directory.
func DirPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return Dir
	}
	return filepath.Join(workDir, Dir)
}

// ConfigPath returns the full path to the project config file within a work directory.
func ConfigPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return ConfigFile
	}
	return filepath.Join(workDir, ConfigFile)
}

// IgnorePath returns the path of the ignore file inside a board data directory.
func IgnorePath(dataDir string) string {
	return filepath.Join(dataDir, IgnoreFile)
}
