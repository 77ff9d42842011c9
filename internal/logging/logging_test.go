// Package logging provides tests for the JSONL journal and tail output.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type record struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
}

// TestNewJournal tests creating a new journal.
func TestNewJournal(t *testing.T) {
	t.Run("successful creation with valid paths", func(t *testing.T) {
		j, err := NewJournal(t.TempDir(), t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer j.Close()

		if j.Dir == "" || j.RunID == "" || j.LogPath == "" {
			t.Errorf("expected fields to be set, got %+v", j)
		}
		if _, err := os.Stat(j.LogPath); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})

	t.Run("empty base dir returns error", func(t *testing.T) {
		_, err := NewJournal("", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "empty") {
			t.Fatalf("expected empty dir error, got %v", err)
		}
	})

	t.Run("creates log directory if missing", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "new-logs", "nested")
		j, err := NewJournal(base, t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer j.Close()
		if !strings.HasPrefix(j.Dir, base) {
			t.Errorf("Dir %q not under %q", j.Dir, base)
		}
	})
}

// TestJournalRecord tests writing records and the last-event file.
func TestJournalRecord(t *testing.T) {
	j, err := NewJournal(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	records := []record{
		{Type: "task.added", TaskID: "t1"},
		{Type: "task.moved", TaskID: "t1"},
	}
	for _, r := range records {
		if err := j.Record(r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(j.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	var got record
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if got != records[1] {
		t.Errorf("second line: got %+v, want %+v", got, records[1])
	}

	last, err := os.ReadFile(j.LastEventPath())
	if err != nil {
		t.Fatalf("last event file missing: %v", err)
	}
	if err := json.Unmarshal(last, &got); err != nil || got != records[1] {
		t.Errorf("last event: got %s (%v)", last, err)
	}

	if err := j.Record(records[0]); err == nil {
		t.Error("expected error after Close")
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestJournalNil(t *testing.T) {
	var j *Journal
	if err := j.Record(record{}); err != nil {
		t.Errorf("Record on nil journal: %v", err)
	}
	if j.LastEventPath() != "" {
		t.Error("nil journal should have no last event path")
	}
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil journal: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"my-board", "my-board"},
		{"My Board!", "My_Board"},
		{"a  b", "a_b"},
		{"", "board"},
		{"   ", "board"},
		{"***", "board"},
		{"v1.2_x", "v1.2_x"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := slugify(tt.input); got != tt.want {
				t.Errorf("slugify(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHashPath(t *testing.T) {
	a := hashPath("/home/witch/board")
	if len(a) != 8 {
		t.Errorf("expected 8 hex chars, got %q", a)
	}
	if a != hashPath("/home/witch/board") {
		t.Error("hash should be stable")
	}
	if a == hashPath("/home/witch/other") {
		t.Error("different paths should hash differently")
	}
}

func TestProjectSlug(t *testing.T) {
	slug := projectSlug("/home/witch/My Board")
	if !strings.HasPrefix(slug, "My_Board-") || len(slug) != len("My_Board-")+8 {
		t.Errorf("unexpected slug %q", slug)
	}
}

func TestFindLogDir(t *testing.T) {
	base := t.TempDir()
	work := t.TempDir()
	dir, err := FindLogDir(base, work)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(dir) != base {
		t.Errorf("FindLogDir: got %q, want a child of %q", dir, base)
	}

	j, err := NewJournal(base, work)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if j.Dir != dir {
		t.Errorf("journal dir %q differs from FindLogDir %q", j.Dir, dir)
	}

	if _, err := FindLogDir("", work); err == nil {
		t.Error("expected error for empty base dir")
	}
}

func TestResolveBaseDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "logs")
	if got := resolveBaseDir(abs, "/work"); got != abs {
		t.Errorf("absolute base: got %q", got)
	}
	work := t.TempDir()
	if got, want := resolveBaseDir("logs", work), filepath.Join(work, "logs"); got != want {
		t.Errorf("relative base: got %q, want %q", got, want)
	}
}

func TestFindLatestLog(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		got, err := FindLatestLog(filepath.Join(t.TempDir(), "nope"))
		if err != nil || got != "" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("picks newest jsonl", func(t *testing.T) {
		dir := t.TempDir()
		old := filepath.Join(dir, "20240101-000000-1.jsonl")
		newer := filepath.Join(dir, "20240102-000000-2.jsonl")
		other := filepath.Join(dir, "20240103-000000-3.last.json")
		for _, p := range []string{old, newer, other} {
			if err := os.WriteFile(p, []byte("{}\n"), 0644); err != nil {
				t.Fatal(err)
			}
		}
		now := time.Now()
		os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour))
		os.Chtimes(newer, now, now)
		os.Chtimes(other, now.Add(time.Hour), now.Add(time.Hour))

		got, err := FindLatestLog(dir)
		if err != nil {
			t.Fatal(err)
		}
		if got != newer {
			t.Errorf("got %q, want %q", got, newer)
		}
	})
}

func TestTailLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	var content strings.Builder
	for i := 1; i <= 5; i++ {
		content.WriteString(`{"n":` + string(rune('0'+i)) + "}\n")
	}
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		n    int
		want string
	}{
		{"all", 0, content.String()},
		{"last two", 2, "{\"n\":4}\n{\"n\":5}\n"},
		{"more than available", 10, content.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := TailLog(context.Background(), &buf, path, tt.n, false); err != nil {
				t.Fatalf("TailLog failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		var buf bytes.Buffer
		if err := TailLog(context.Background(), &buf, path+".missing", 0, false); err == nil {
			t.Error("expected error")
		}
	})
}

func TestTailLogFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	if err := os.WriteFile(path, []byte("{\"n\":1}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var buf syncBuffer
	done := make(chan error, 1)
	go func() { done <- TailLog(ctx, &buf, path, 0, true) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"n\":2}\n")
	f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), `"n":2`) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("TailLog returned %v", err)
	}
	if !strings.Contains(buf.String(), `"n":2`) {
		t.Errorf("appended line not followed: %q", buf.String())
	}
}

func TestFindLogRuns(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"20240101-000000-1.jsonl",
		"20240101-000000-1.last.json",
		"20240102-000000-2.jsonl",
		"notes.txt",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	os.Chtimes(filepath.Join(dir, files[2]), now.Add(time.Hour), now.Add(time.Hour))

	runs, err := FindLogRuns(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "20240102-000000-2" {
		t.Errorf("newest run first: got %s", runs[0].RunID)
	}
	if len(runs[1].Files) != 1 || len(runs[1].LastEventFiles) != 1 {
		t.Errorf("unexpected grouping %+v", runs[1])
	}

	if runs, err := FindLogRuns(filepath.Join(dir, "missing")); err != nil || runs != nil {
		t.Errorf("missing dir: got %v, %v", runs, err)
	}
}

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		wantID   string
		wantLast bool
	}{
		{"20240101-000000-1.jsonl", "20240101-000000-1", false},
		{"20240101-000000-1.last.json", "20240101-000000-1", true},
		{"readme.md", "", false},
	}
	for _, tt := range tests {
		id, last := extractRunID(tt.name)
		if id != tt.wantID || last != tt.wantLast {
			t.Errorf("extractRunID(%q): got %q,%v want %q,%v", tt.name, id, last, tt.wantID, tt.wantLast)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"loud", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormatter(t *testing.T) {
	tests := []struct {
		in   string
		want log.Formatter
	}{
		{"json", log.JSONFormatter},
		{"logfmt", log.LogfmtFormatter},
		{"text", log.TextFormatter},
		{"", log.TextFormatter},
	}
	for _, tt := range tests {
		if got := ParseFormatter(tt.in); got != tt.want {
			t.Errorf("ParseFormatter(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewConsoleFromConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleFromConfig(&buf, "warn", "json", false, false)

	logger.Info("hidden")
	logger.Warn("task moved", "task_id", "t1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %q", out)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", out, err)
	}
	if entry["msg"] != "task moved" || entry["task_id"] != "t1" {
		t.Errorf("unexpected entry %v", entry)
	}
}
