package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/moonboard/internal/board"
	"github.com/nibzard/moonboard/internal/config"
)

// formatFor picks json or yaml from an explicit flag value or a file name.
func formatFor(flagValue, path string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(flagValue))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			f = "yaml"
		default:
			f = "json"
		}
	}
	switch f {
	case "json", "yaml":
		return f, nil
	case "yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("invalid format %q, must be one of: json, yaml", flagValue)
}

func encodeSnapshot(snap board.Snapshot, format string) ([]byte, error) {
	if format == "yaml" {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeSnapshot(data []byte, format string) (board.Snapshot, error) {
	var snap board.Snapshot
	var err error
	if format == "yaml" {
		err = yaml.Unmarshal(data, &snap)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&snap)
	}
	if err != nil {
		return board.Snapshot{}, fmt.Errorf("parsing %s snapshot: %w", format, err)
	}
	return snap, nil
}

// exportCommand writes the whole board to stdout or a file.
func exportCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatFlag := fs.String("format", "", "Output format (json|yaml, default from file extension or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}
	path := fs.Arg(0)
	format, err := formatFor(*formatFlag, path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := encodeSnapshot(a.repo.Snapshot(), format)
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	if path == "" || path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(stderr, "Exported board to %s\n", path)
	return nil
}

// importCommand validates a snapshot and makes it the whole board.
func importCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatFlag := fs.String("format", "", "Input format (json|yaml, default from file extension or json)")
	yes := fs.Bool("y", false, "Replace the board without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: moonboard import [-format json|yaml] [-y] <file>")
	}
	path := fs.Arg(0)
	format, err := formatFor(*formatFlag, path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading import: %w", err)
	}
	snap, err := decodeSnapshot(data, format)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !*yes {
		ok, err := confirm(fmt.Sprintf("Replace %d goals and %d sprints with %d goals and %d sprints from %s? [y/N] ",
			len(a.repo.Board().Tasks), len(a.repo.Board().Sprints), len(snap.Tasks), len(snap.Sprints), path))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Cancelled.")
			return nil
		}
	}
	if err := a.repo.Replace(ctx, snap); err != nil {
		return fmt.Errorf("importing board: %w", err)
	}
	fmt.Fprintf(stdout, "Imported %d goals and %d sprints\n", len(snap.Tasks), len(snap.Sprints))
	return nil
}
