package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/nibzard/moonboard/internal/board"
)

var idPattern = regexp.MustCompile(`\[([0-9a-f]{8})\]`)

// cli runs commands against a board in a fresh temp project.
type cli struct {
	t      *testing.T
	dir    string
	logDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"MOONBOARD_DATA_DIR", "MOONBOARD_STORE", "MOONBOARD_LOG_DIR", "MOONBOARD_SEED",
		"MOONBOARD_HOOK", "MOONBOARD_LOG_LEVEL", "MOONBOARD_LOG_FORMAT", "MOONBOARD_LOG_TIMESTAMPS",
		"MOONBOARD_LOG_CALLER", "MOONBOARD_SPRINT_DAYS", "MOONBOARD_SPRINT_GOAL", "MOONBOARD_SPRINT_PREFIX",
	} {
		t.Setenv(key, "")
	}
	project := filepath.Join(dir, "project")
	if err := os.MkdirAll(project, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(project)
	return &cli{t: t, dir: project, logDir: filepath.Join(dir, "logs")}
}

func (c *cli) run(args ...string) (string, error) {
	return c.runInput("", args...)
}

func (c *cli) runInput(input string, args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr, oldIn := stdout, stderr, stdin
	stdout, stderr, stdin = &out, &errOut, strings.NewReader(input)
	defer func() {
		stdout, stderr, stdin = oldOut, oldErr, oldIn
	}()

	full := append([]string{"-log-dir", c.logDir}, args...)
	err := Run(context.Background(), full)
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("moonboard %s: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// add creates a goal and returns its short id.
func (c *cli) add(args ...string) string {
	c.t.Helper()
	out := c.mustRun(append([]string{"add"}, args...)...)
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		c.t.Fatalf("no id in add output %q", out)
	}
	return m[1]
}

func TestRun(t *testing.T) {
	t.Run("help flag", func(t *testing.T) {
		c := newCLI(t)
		for _, arg := range []string{"-h", "--help", "help"} {
			out, err := c.run(arg)
			if err != nil {
				t.Fatalf("%s: %v", arg, err)
			}
			if !strings.Contains(out, "Usage:") || !strings.Contains(out, "sprint [action]") {
				t.Errorf("%s: unexpected usage output:\n%s", arg, out)
			}
		}
	})

	t.Run("version", func(t *testing.T) {
		c := newCLI(t)
		for _, arg := range []string{"-v", "--version", "version"} {
			out, err := c.run(arg)
			if err != nil {
				t.Fatalf("%s: %v", arg, err)
			}
			if !strings.Contains(out, "moonboard version "+Version) {
				t.Errorf("%s: got %q", arg, out)
			}
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		c := newCLI(t)
		_, err := c.run("unknown-command")
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected unknown command error, got %v", err)
		}
	})

	t.Run("tui needs a terminal", func(t *testing.T) {
		c := newCLI(t)
		if _, err := c.run(); err == nil || !strings.Contains(err.Error(), "TTY") {
			t.Errorf("expected TTY error, got %v", err)
		}
	})

	t.Run("invalid store", func(t *testing.T) {
		c := newCLI(t)
		if _, err := c.run("-store", "postgres", "ls"); err == nil {
			t.Error("expected config error for unknown store")
		}
	})
}

func TestListSeededBoard(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("ls")
	for _, want := range []string{
		"No Active Moon Cycle",
		"Master Grimoire of Goals (3):",
		"Master the Tarot",
		"Set Up Ancestor Altar",
		"Learn LBRP",
		"This Moon's Magic (0):",
		"Rituals Complete (0):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}

	if _, err := os.Stat(filepath.Join(c.dir, ".moonboard")); err != nil {
		t.Errorf("board directory not created: %v", err)
	}
}

func TestListWithoutSeed(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("-seed=false", "ls", "backlog")
	if !strings.Contains(out, "Master Grimoire of Goals (0):") {
		t.Errorf("expected empty backlog, got:\n%s", out)
	}
	if strings.Contains(out, "This Moon's Magic") {
		t.Errorf("status filter ignored:\n%s", out)
	}
	if _, err := c.run("ls", "someday"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestAddShowEdit(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("add"); !errors.Is(err, board.ErrEmptyTitle) {
		t.Errorf("empty title: got %v, want ErrEmptyTitle", err)
	}
	if _, err := c.run("add", "-priority", "urgent", "Scry"); err == nil {
		t.Error("expected error for invalid priority")
	}

	id := c.add("-role", "hedge witch", "-action", "brew a sleep tincture", "-goal", "rest well",
		"-priority", "high", "-due", "2024-11-01", "Brew", "Tincture")

	out := c.mustRun("show", id)
	for _, want := range []string{
		"Brew Tincture",
		"Status:   backlog",
		"Priority: high",
		"Due:      2024-11-01",
		"As a hedge witch, I want to brew a sleep tincture so that I can rest well.",
		"(no steps)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := c.run("edit", id); err == nil {
		t.Error("expected error when edit has no flags")
	}
	out = c.mustRun("edit", "-title", "Brew Moon Tincture", "-priority", "", id)
	if !strings.Contains(out, "Updated ["+id+"] Brew Moon Tincture") {
		t.Errorf("unexpected edit output %q", out)
	}
	out = c.mustRun("show", id)
	if !strings.Contains(out, "Priority: none") {
		t.Errorf("priority not cleared:\n%s", out)
	}

	if _, err := c.run("show", "ffffffff"); !errors.Is(err, board.ErrTaskNotFound) {
		t.Errorf("show unknown id: got %v, want ErrTaskNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	c := newCLI(t)
	id := c.add("Cleanse the crystals")

	out, err := c.runInput("n\n", "rm", id)
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("expected cancel, got %q", out)
	}
	c.mustRun("show", id)

	out, err = c.runInput("y\n", "rm", id)
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, "Deleted ["+id+"]") {
		t.Errorf("unexpected rm output %q", out)
	}
	if _, err := c.run("show", id); !errors.Is(err, board.ErrTaskNotFound) {
		t.Errorf("deleted goal still found: %v", err)
	}

	id = c.add("Charge the wand")
	c.mustRun("rm", "-y", id)
	if _, err := c.run("show", id); err == nil {
		t.Error("rm -y did not delete")
	}
}

func TestChecklist(t *testing.T) {
	c := newCLI(t)
	id := c.add("Learn the runes")

	out := c.mustRun("check", id, "add", "Memorize", "Fehu")
	if !strings.Contains(out, "Added step: Memorize Fehu (0/1)") {
		t.Errorf("unexpected add output %q", out)
	}
	c.mustRun("check", id, "add", "Draw a daily rune")

	out = c.mustRun("check", id, "toggle", "1")
	if !strings.Contains(out, "(1/2)") {
		t.Errorf("unexpected toggle output %q", out)
	}
	out = c.mustRun("check", id, "edit", "2", "Draw", "two", "runes")
	if !strings.Contains(out, "Renamed step: Draw two runes (1/2)") {
		t.Errorf("unexpected edit output %q", out)
	}
	out = c.mustRun("check", id, "rm", "1")
	if !strings.Contains(out, "Removed step: Memorize Fehu (0/1)") {
		t.Errorf("unexpected rm output %q", out)
	}

	if _, err := c.run("check", id, "toggle", "5"); !errors.Is(err, board.ErrItemNotFound) {
		t.Errorf("toggle out of range: got %v, want ErrItemNotFound", err)
	}
	if _, err := c.run("check", id, "add"); !errors.Is(err, board.ErrEmptyText) {
		t.Errorf("empty step: got %v, want ErrEmptyText", err)
	}
	if _, err := c.run("check", id, "polish"); err == nil {
		t.Error("expected error for unknown action")
	}

	out = c.mustRun("show", id)
	if !strings.Contains(out, "Definition of Done (0/1, 0%):") || !strings.Contains(out, "Draw two runes") {
		t.Errorf("checklist not persisted:\n%s", out)
	}
}

func TestSprintLifecycle(t *testing.T) {
	c := newCLI(t)
	carried := c.add("Carry over")
	finished := c.add("Finish me")

	out := c.mustRun("sprint")
	if !strings.Contains(out, "No Active Moon Cycle") {
		t.Errorf("unexpected sprint status %q", out)
	}
	if _, err := c.run("move", carried, "sprint"); !errors.Is(err, board.ErrNoActiveSprint) {
		t.Errorf("move without sprint: got %v, want ErrNoActiveSprint", err)
	}

	out = c.mustRun("sprint", "start", "-goal", "Deepen practice", "-name", "Harvest Moon")
	if !strings.Contains(out, "Started Harvest Moon") || !strings.Contains(out, "Deepen practice") {
		t.Errorf("unexpected start output %q", out)
	}
	if _, err := c.run("sprint", "start"); !errors.Is(err, board.ErrSprintActive) {
		t.Errorf("second start: got %v, want ErrSprintActive", err)
	}

	out = c.mustRun("move", carried, "sprint")
	if !strings.Contains(out, "backlog -> sprint") {
		t.Errorf("unexpected move output %q", out)
	}
	out = c.mustRun("move", carried, "sprint")
	if !strings.Contains(out, "already in sprint") {
		t.Errorf("expected no-op move, got %q", out)
	}
	c.mustRun("move", finished, "sprint")
	c.mustRun("move", finished, "done")
	if _, err := c.run("move", finished, "backlog"); !errors.Is(err, board.ErrInvalidTransition) {
		t.Errorf("done -> backlog: got %v, want ErrInvalidTransition", err)
	}

	out = c.mustRun("standup", "-yesterday", "Shuffled", "-blockers", "None", "-date", "2024-10-02", carried, "Read", "three", "cards")
	if !strings.Contains(out, "(1 total)") {
		t.Errorf("unexpected standup output %q", out)
	}
	out = c.mustRun("show", carried)
	if !strings.Contains(out, "2024-10-02") || !strings.Contains(out, "Today:     Read three cards") {
		t.Errorf("stand-up not shown:\n%s", out)
	}
	if _, err := c.run("standup", c.add("Backlog only"), "Something"); err == nil {
		t.Error("expected stand-up on a backlog goal to fail")
	}

	c.mustRun("sprint", "goal", "Deepen", "the", "practice")
	out = c.mustRun("sprint", "status")
	if !strings.Contains(out, "Harvest Moon") || !strings.Contains(out, "Goal:    Deepen the practice") || !strings.Contains(out, "Goals:   2 (1 done)") {
		t.Errorf("unexpected sprint status:\n%s", out)
	}

	out = c.mustRun("ls", "done")
	if !strings.Contains(out, "Finish me") {
		t.Errorf("done column missing finished goal:\n%s", out)
	}

	out = c.mustRun("sprint", "complete", "-well", "Daily draws", "-not-well", "Skipped Sundays", "-differently", "Journal")
	if !strings.Contains(out, "Completed Harvest Moon") || !strings.Contains(out, "1 unfinished goal(s) returned") {
		t.Errorf("unexpected complete output %q", out)
	}
	if _, err := c.run("sprint", "complete"); !errors.Is(err, board.ErrNoActiveSprint) {
		t.Errorf("complete without sprint: got %v, want ErrNoActiveSprint", err)
	}

	out = c.mustRun("ls")
	if !strings.Contains(out, "Rituals Complete (0):") {
		t.Errorf("done column should be empty after the sprint:\n%s", out)
	}
	backlog := out[strings.Index(out, "Master Grimoire"):strings.Index(out, "This Moon's Magic")]
	if !strings.Contains(backlog, "Carry over") {
		t.Errorf("unfinished goal not returned to backlog:\n%s", out)
	}
	out = c.mustRun("ls", "-all", "done")
	if !strings.Contains(out, "Finish me") {
		t.Errorf("ls -all should keep earlier done goals:\n%s", out)
	}

	out = c.mustRun("sprint", "history")
	for _, want := range []string{"Harvest Moon", "Went well:       Daily draws", "Didn't go well:  Skipped Sundays", "Do differently:  Journal"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}

	out = c.mustRun("sprint", "start")
	if !strings.Contains(out, "Moon Cycle 2") {
		t.Errorf("expected default name for second sprint, got %q", out)
	}
}

func TestExportImport(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			c := newCLI(t)
			id := c.add("-priority", "low", "Moon water")
			c.mustRun("check", id, "add", "Leave jar out overnight")
			c.mustRun("sprint", "start")

			path := filepath.Join(c.dir, "board."+format)
			c.mustRun("export", path)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(data, []byte("Moon water")) {
				t.Fatalf("export missing goal:\n%s", data)
			}
			if format == "json" {
				var snap board.Snapshot
				if err := json.Unmarshal(data, &snap); err != nil {
					t.Fatalf("export is not JSON: %v", err)
				}
				if snap.SchemaVersion != board.SchemaVersion || len(snap.Tasks) != 4 || len(snap.Sprints) != 1 {
					t.Errorf("unexpected snapshot: version %d, %d tasks, %d sprints", snap.SchemaVersion, len(snap.Tasks), len(snap.Sprints))
				}
			}

			c.mustRun("rm", "-y", id)
			out, err := c.runInput("no\n", "import", path)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if !strings.Contains(out, "Cancelled.") {
				t.Errorf("expected cancelled import, got %q", out)
			}

			out = c.mustRun("import", "-y", path)
			if !strings.Contains(out, "Imported 4 goals and 1 sprints") {
				t.Errorf("unexpected import output %q", out)
			}
			out = c.mustRun("show", id)
			if !strings.Contains(out, "Leave jar out overnight") {
				t.Errorf("imported goal lost its checklist:\n%s", out)
			}
		})
	}
}

func TestExportToStdout(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("export", "-format", "yaml")
	if !strings.Contains(out, "schema_version: 1") {
		t.Errorf("expected yaml snapshot, got:\n%s", out)
	}
	if _, err := c.run("export", "-format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(c.dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":1,"tasks":[{"id":"x","title":"","status":"nowhere"}],"sprints":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.run("import", "-y", path); err == nil {
		t.Fatal("expected invalid import to fail")
	}
	out := c.mustRun("ls", "backlog")
	if !strings.Contains(out, "Master Grimoire of Goals (3):") {
		t.Errorf("board changed by a failed import:\n%s", out)
	}
}

func TestDoctor(t *testing.T) {
	c := newCLI(t)
	c.add("Ground and center")

	out := c.mustRun("doctor", "-v")
	for _, want := range []string{"Moonboard Doctor", "Store: file (default)", "Board data:", "All checks passed", "data_dir"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}

	if err := os.WriteFile(filepath.Join(c.dir, ".moonboard", "scrum-witches-tasks.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := c.run("doctor")
	if err == nil || !strings.Contains(err.Error(), "doctor checks failed") {
		t.Errorf("expected doctor failure, got %v\n%s", err, out)
	}
}

func TestDoctorLeavesMissingDataDir(t *testing.T) {
	c := newCLI(t)
	if err := os.WriteFile(filepath.Join(c.dir, "moonboard.toml"), []byte("seed = false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := c.mustRun("doctor")
	for _, want := range []string{"Not created yet", "None yet", "Active file: moonboard.toml", "All checks passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(c.dir, ".moonboard")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("doctor created the data directory: %v", err)
	}
}

// writeHook writes a shell hook into the project and returns its path.
func writeHook(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook scripts use /bin/sh")
	}
	path := filepath.Join(dir, "hook.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestHookRunsOncePerSave(t *testing.T) {
	c := newCLI(t)
	record := filepath.Join(c.dir, "hook.log")
	hook := writeHook(t, c.dir, `echo "$1 $2" >> `+record)

	out := c.mustRun("-seed=false", "-hook", hook, "add", "-priority", "high", "-role", "Seer", "Scry the future")
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in add output %q", out)
	}
	lines := readLines(t, record)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "task.added "+m[1]) {
		t.Fatalf("hook calls after add: %q", lines)
	}

	c.mustRun("-seed=false", "-hook", hook, "sprint", "start", "-goal", "See clearly", "-name", "Samhain")
	lines = readLines(t, record)
	if len(lines) != 2 || strings.TrimSpace(lines[1]) != "sprint.started" {
		t.Fatalf("hook calls after sprint start: %q", lines)
	}

	out = c.mustRun("tail")
	for _, unwanted := range []string{"task.updated", "sprint.updated"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("journal has a separate %s record:\n%s", unwanted, out)
		}
	}
	out = c.mustRun("show", m[1])
	if !strings.Contains(out, "high") || !strings.Contains(out, "Seer") {
		t.Errorf("add flags not stored:\n%s", out)
	}
	out = c.mustRun("sprint")
	if !strings.Contains(out, "Samhain") || !strings.Contains(out, "See clearly") {
		t.Errorf("sprint name and goal not stored:\n%s", out)
	}
}

func TestFailingHookKeepsChange(t *testing.T) {
	c := newCLI(t)
	hook := writeHook(t, c.dir, "exit 3")

	out, err := c.run("-seed=false", "-hook", hook, "add", "Still saved")
	if err != nil {
		t.Fatalf("a failing hook must not fail the command: %v", err)
	}
	if !idPattern.MatchString(out) {
		t.Errorf("unexpected add output %q", out)
	}
	out = c.mustRun("-seed=false", "ls", "backlog")
	if !strings.Contains(out, "Still saved") {
		t.Errorf("goal not stored after hook failure:\n%s", out)
	}
}

func TestJournalAndTail(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("tail")
	if !strings.Contains(out, "No log files found.") {
		t.Errorf("expected empty journal, got %q", out)
	}

	c.add("Light a candle")
	out = c.mustRun("tail")
	if !strings.Contains(out, "Tailing:") || !strings.Contains(out, "Light a candle") {
		t.Errorf("journal missing added goal:\n%s", out)
	}

	out = c.mustRun("tail", "-runs")
	if strings.Contains(out, "No log files found.") || !strings.Contains(out, "file(s)") {
		t.Errorf("expected a journal run, got %q", out)
	}
}

func TestInit(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("-seed=false", "init", "-gitignore")
	if !strings.Contains(out, "Created") || !strings.Contains(out, "Board ready") {
		t.Errorf("unexpected init output %q", out)
	}
	data, err := os.ReadFile(filepath.Join(c.dir, "moonboard.toml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "data_dir") {
		t.Errorf("unexpected config:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(c.dir, ".moonboard", ".gitignore")); err != nil {
		t.Errorf("ignore file not written: %v", err)
	}

	out = c.mustRun("init")
	if !strings.Contains(out, "already exists") {
		t.Errorf("init should not overwrite without -force, got %q", out)
	}
	c.mustRun("init", "-force")
}

func TestSQLiteStore(t *testing.T) {
	c := newCLI(t)
	c.mustRun("-store", "sqlite", "add", "Stored in sqlite")
	out := c.mustRun("-store", "sqlite", "ls", "backlog")
	if !strings.Contains(out, "Stored in sqlite") {
		t.Errorf("sqlite board missing goal:\n%s", out)
	}
	out = c.mustRun("ls", "backlog")
	if strings.Contains(out, "Stored in sqlite") {
		t.Errorf("file board should not see sqlite goals:\n%s", out)
	}
}
