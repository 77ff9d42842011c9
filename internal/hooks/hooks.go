// Package hooks invokes an external command after each saved board change.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Options configures a hook invocation.
type Options struct {
	// Command is the hook command line. Extra words are passed as leading
	// arguments.
	Command string
	// LastEventPath is the JSON file holding the event that triggered the hook.
	LastEventPath string
	// Label identifies the caller, exported as MOONBOARD_HOOK_LABEL.
	Label   string
	WorkDir string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Result describes a hook invocation.
type Result struct {
	Ran       bool
	EventType string
	TaskID    string
	SprintID  string
	ExitCode  int
	Output    string
}

// Invoke runs the hook as
//
//	<command> <event-type> <task-id> <last-event-path>
//
// with the same values exported as MOONBOARD_EVENT, MOONBOARD_TASK_ID,
// MOONBOARD_SPRINT_ID and MOONBOARD_LAST_EVENT. An empty command or a missing
// last-event file is not an error; the hook simply does not run.
func Invoke(ctx context.Context, opts Options) (Result, error) {
	var result Result
	if strings.TrimSpace(opts.Command) == "" || opts.LastEventPath == "" {
		return result, nil
	}

	info, err := os.Stat(opts.LastEventPath)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("stat last event: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("last event path %s is a directory", opts.LastEventPath)
	}

	data, err := os.ReadFile(opts.LastEventPath)
	if err != nil {
		return result, fmt.Errorf("read last event: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return result, fmt.Errorf("last event file %s is empty", opts.LastEventPath)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return result, fmt.Errorf("last event file %s is not valid JSON: %w", opts.LastEventPath, err)
	}
	result.EventType, result.TaskID, result.SprintID = extractEventFields(decoded)

	words := strings.Fields(opts.Command)
	args := append(words[1:], result.EventType, result.TaskID, opts.LastEventPath)
	cmd := exec.CommandContext(ctx, words[0], args...)
	cmd.Dir = opts.WorkDir
	cmd.Env = append(os.Environ(),
		"MOONBOARD_EVENT="+result.EventType,
		"MOONBOARD_TASK_ID="+result.TaskID,
		"MOONBOARD_SPRINT_ID="+result.SprintID,
		"MOONBOARD_LAST_EVENT="+opts.LastEventPath,
		"MOONBOARD_HOOK_LABEL="+opts.Label,
	)

	var out bytes.Buffer
	cmd.Stdout = writerOr(opts.Stdout, &out)
	cmd.Stderr = writerOr(opts.Stderr, &out)

	result.Ran = true
	err = cmd.Run()
	result.Output = out.String()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("hook %s exited with code %d", words[0], result.ExitCode)
		}
		result.ExitCode = -1
		return result, fmt.Errorf("run hook %s: %w", words[0], err)
	}
	return result, nil
}

func writerOr(w io.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

// extractEventFields pulls type, task_id and sprint_id out of a decoded event.
// Missing or non-string values come back empty.
func extractEventFields(v any) (eventType, taskID, sprintID string) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", "", ""
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return str("type"), str("task_id"), str("sprint_id")
}
