package boarddir

import (
	"path/filepath"
	"testing"
)

func TestPaths(t *testing.T) {
	tests := []struct {
		workDir    string
		wantDir    string
		wantConfig string
	}{
		{"", ".moonboard", "moonboard.toml"},
		{".", ".moonboard", "moonboard.toml"},
		{"/home/witch/grimoire", filepath.Join("/home/witch/grimoire", ".moonboard"), filepath.Join("/home/witch/grimoire", "moonboard.toml")},
	}
	for _, tt := range tests {
		if got := DirPath(tt.workDir); got != tt.wantDir {
			t.Errorf("DirPath(%q): got %q, want %q", tt.workDir, got, tt.wantDir)
		}
		if got := ConfigPath(tt.workDir); got != tt.wantConfig {
			t.Errorf("ConfigPath(%q): got %q, want %q", tt.workDir, got, tt.wantConfig)
		}
	}
	if got, want := IgnorePath(DirPath("w")), filepath.Join("w", ".moonboard", ".gitignore"); got != want {
		t.Errorf("IgnorePath: got %q, want %q", got, want)
	}
}
