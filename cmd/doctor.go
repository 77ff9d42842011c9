package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nibzard/moonboard/internal/boarddir"
	"github.com/nibzard/moonboard/internal/config"
	"github.com/nibzard/moonboard/internal/logging"
	"github.com/nibzard/moonboard/internal/storage"
)

// doctorCommand checks the configuration, the store and the stored board.
func doctorCommand(ctx context.Context, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("moonboard doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	cfg := cws.Config

	fmt.Fprintln(stdout, "Moonboard Doctor")
	fmt.Fprintln(stdout, "================")
	fmt.Fprintln(stdout)

	allOK := true

	// Check project root
	fmt.Fprintf(stdout, "Project root: %s\n", cfg.ProjectRoot)
	if _, err := os.Stat(cfg.ProjectRoot); err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintln(stdout, "  ✅ OK")
	}
	fmt.Fprintln(stdout)

	// Config files and values
	fmt.Fprintln(stdout, "Config:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(stdout, "  ✅ Files: none (defaults)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(stdout, "  ✅ File: %s\n", f)
	}
	if active := cws.GetConfigFile(); active != "" {
		fmt.Fprintf(stdout, "  ✅ Active file: %s\n", active)
	}
	if cws.DotEnvFile != "" {
		fmt.Fprintf(stdout, "  ✅ Dotenv: %s\n", cws.DotEnvFile)
	}
	fmt.Fprintf(stdout, "  ✅ Store: %s (%s)\n", cfg.Store, cws.Sources["store"])
	fmt.Fprintf(stdout, "  ✅ Sprint length: %d days (%s)\n", cfg.Sprint.LengthDays, cws.Sources["sprint.length_days"])
	if *verbose {
		for _, row := range configRows(cfg) {
			fmt.Fprintf(stdout, "     %-20s %-28s (%s)\n", row[0], row[1], cws.Sources[row[0]])
		}
	}
	fmt.Fprintln(stdout)

	// Data directory
	fmt.Fprintf(stdout, "Data directory: %s\n", cfg.DataDir)
	dataDirExists := false
	if info, err := os.Stat(cfg.DataDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(stdout, "  ⚠️  Not created yet (run: moonboard init)")
		} else {
			fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
			allOK = false
		}
	} else if !info.IsDir() {
		fmt.Fprintln(stdout, "  ❌ Not a directory")
		allOK = false
	} else {
		dataDirExists = true
		fmt.Fprintln(stdout, "  ✅ OK")
	}
	fmt.Fprintln(stdout)

	// Stored board. Opening a file or sqlite store creates the data
	// directory, which doctor must not do.
	fmt.Fprintln(stdout, "Board data:")
	if !dataDirExists && cfg.Store != storage.BackendMemory {
		fmt.Fprintln(stdout, "  ✅ None yet (a new board will be created on first use)")
	} else if err := doctorBoard(ctx, cfg); err != nil {
		allOK = false
	}
	fmt.Fprintln(stdout)

	// Journal
	fmt.Fprintf(stdout, "Log directory: %s\n", cfg.LogDir)
	if logDir, err := logging.FindLogDir(cfg.LogDir, cfg.ProjectRoot); err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		allOK = false
	} else if latest, err := logging.FindLatestLog(logDir); err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		allOK = false
	} else if latest == "" {
		fmt.Fprintln(stdout, "  ✅ No journal yet")
	} else {
		fmt.Fprintf(stdout, "  ✅ Latest journal: %s\n", latest)
	}
	fmt.Fprintln(stdout)

	// Hook
	fmt.Fprintln(stdout, "Hook:")
	hook := strings.TrimSpace(cfg.HookCommand)
	if hook == "" {
		fmt.Fprintln(stdout, "  ✅ None configured")
	} else if name := strings.Fields(hook)[0]; !hookAvailable(name) {
		fmt.Fprintf(stdout, "  ⚠️  %s: not found in PATH\n", name)
	} else {
		fmt.Fprintf(stdout, "  ✅ %s\n", hook)
	}
	fmt.Fprintln(stdout)

	if !allOK {
		fmt.Fprintln(stdout, "❌ Some checks failed")
		return fmt.Errorf("doctor checks failed")
	}
	fmt.Fprintln(stdout, "✅ All checks passed")
	return nil
}

// doctorBoard validates the stored board without seeding or rewriting it.
func doctorBoard(ctx context.Context, cfg *config.Config) error {
	a, err := openApp(ctx, cfg, false)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		return err
	}
	defer a.Close()

	res, err := a.repo.Check(ctx)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stdout, "  ⚠️  %s\n", w)
	}
	if !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintf(stdout, "  ❌ %v\n", e)
		}
		return res.Err()
	}

	keys, err := a.store.Keys(ctx)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(stdout, "  ✅ Empty (a new board will be created on first use)")
		return nil
	}
	fmt.Fprintf(stdout, "  ✅ Valid (%s)\n", strings.Join(keys, ", "))
	return nil
}

func configRows(cfg *config.Config) [][2]string {
	return [][2]string{
		{"data_dir", cfg.DataDir},
		{"store", cfg.Store},
		{"log_dir", cfg.LogDir},
		{"seed", fmt.Sprint(cfg.Seed)},
		{"hook_command", cfg.HookCommand},
		{"log_level", cfg.LogLevel},
		{"log_format", cfg.LogFormat},
		{"log_timestamps", fmt.Sprint(cfg.LogTimestamps)},
		{"log_caller", fmt.Sprint(cfg.LogCaller)},
		{"sprint.name_prefix", cfg.Sprint.NamePrefix},
		{"sprint.default_goal", cfg.Sprint.DefaultGoal},
		{"sprint.length_days", fmt.Sprint(cfg.Sprint.LengthDays)},
	}
}

func hookAvailable(name string) bool {
	if strings.ContainsRune(name, filepath.Separator) {
		_, err := os.Stat(name)
		return err == nil
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// tailCommand prints the latest change journal.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the journal (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the journal (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	runs := fs.Bool("runs", false, "List journal runs instead of tailing the latest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	logDir, err := logging.FindLogDir(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		return fmt.Errorf("finding log directory: %w", err)
	}

	if *runs {
		list, err := logging.FindLogRuns(logDir)
		if err != nil {
			return fmt.Errorf("listing journal runs: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(stdout, "No log files found.")
			return nil
		}
		for _, r := range list {
			fmt.Fprintf(stdout, "%s  %s  %d file(s)\n", r.RunID, r.ModTime.Local().Format("2006-01-02 15:04:05"), len(r.Files)+len(r.LastEventFiles))
		}
		return nil
	}

	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest log: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No log files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)

	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}

// initCommand writes moonboard.toml and creates the board.
func initCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "Overwrite an existing moonboard.toml")
	gitignore := fs.Bool("gitignore", false, "Keep board data out of git")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	configPath := boarddir.ConfigPath(cfg.ProjectRoot)
	_, statErr := os.Stat(configPath)
	switch {
	case statErr == nil && !*force:
		fmt.Fprintf(stdout, "%s already exists (use -force to overwrite)\n", configPath)
	case statErr == nil || errors.Is(statErr, os.ErrNotExist):
		if err := os.WriteFile(configPath, []byte(config.ExampleConfig()), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(stdout, "Created %s\n", configPath)
	default:
		return fmt.Errorf("checking config: %w", statErr)
	}

	if cfg.Store != "memory" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	if *gitignore {
		ignorePath := boarddir.IgnorePath(cfg.DataDir)
		if err := os.WriteFile(ignorePath, []byte("*\n"), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", boarddir.IgnoreFile, err)
		}
		fmt.Fprintf(stdout, "Created %s\n", ignorePath)
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	b := a.repo.Board()
	fmt.Fprintf(stdout, "Board ready in %s (%d goals, %d sprints)\n", cfg.DataDir, len(b.Tasks), len(b.Sprints))
	return nil
}
