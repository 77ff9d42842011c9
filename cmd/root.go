// Package cmd implements the CLI command structure for moonboard.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nibzard/moonboard/internal/config"
	"github.com/nibzard/moonboard/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Standard streams, swapped out in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

// Run executes the moonboard CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("moonboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// With no subcommand the board opens in the terminal UI.
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "add":
		return addCommand(ctx, cfg, remainingArgs)
	case "ls", "list":
		return lsCommand(ctx, cfg, remainingArgs)
	case "show":
		return showCommand(ctx, cfg, remainingArgs)
	case "edit":
		return editCommand(ctx, cfg, remainingArgs)
	case "rm", "delete":
		return rmCommand(ctx, cfg, remainingArgs)
	case "move", "mv":
		return moveCommand(ctx, cfg, remainingArgs)
	case "check":
		return checkCommand(ctx, cfg, remainingArgs)
	case "standup":
		return standupCommand(ctx, cfg, remainingArgs)
	case "sprint":
		return sprintCommand(ctx, cfg, remainingArgs)
	case "export":
		return exportCommand(ctx, cfg, remainingArgs)
	case "import":
		return importCommand(ctx, cfg, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cws, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "init":
		return initCommand(ctx, cfg, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// tuiCommand launches the interactive board.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !ui.IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY (use ls, add, move and friends for scripting)")
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()
	// The alt screen owns the terminal. Warnings reach the status line instead.
	a.log.SetOutput(io.Discard)
	return ui.RunTUI(ctx, a.repo, ui.WithWarnings(a.drainWarnings))
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "moonboard version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "moonboard - Scrum for Witches, a personal kanban for your magical goals")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  moonboard [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui                       Open the interactive board (default command)")
	fmt.Fprintln(w, "  add <title>               Add a goal to the backlog")
	fmt.Fprintln(w, "  ls [status]               List goals by column")
	fmt.Fprintln(w, "  show <id>                 Show a goal in full")
	fmt.Fprintln(w, "  edit <id>                 Edit a goal's story, priority or due date")
	fmt.Fprintln(w, "  rm <id>                   Delete a goal")
	fmt.Fprintln(w, "  move <id> <status>        Move a goal to backlog, sprint or done")
	fmt.Fprintln(w, "  check <id> <action>       Edit the Definition of Done (add, toggle, edit, rm)")
	fmt.Fprintln(w, "  standup <id> <today>      Log a daily stand-up for a sprint goal")
	fmt.Fprintln(w, "  sprint [action]           Show, start, complete, rename or list sprints")
	fmt.Fprintln(w, "  export [file]             Write the whole board as JSON or YAML")
	fmt.Fprintln(w, "  import <file>             Replace the board from an export")
	fmt.Fprintln(w, "  doctor                    Check configuration and stored data")
	fmt.Fprintln(w, "  tail                      Show the change journal")
	fmt.Fprintln(w, "  init                      Create moonboard.toml and the board directory")
	fmt.Fprintln(w, "  version                   Show version information")
	fmt.Fprintln(w, "  help                      Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ids may be shortened to any unique prefix.")
}
