package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nibzard/moonboard/internal/board"
	"github.com/nibzard/moonboard/internal/config"
)

// storyFlags are the task fields shared by add and edit.
type storyFlags struct {
	title    *string
	role     *string
	action   *string
	goal     *string
	priority *string
	due      *string
}

func registerStoryFlags(fs *flag.FlagSet, withTitle bool) *storyFlags {
	sf := &storyFlags{
		role:     fs.String("role", "", "As a... (who the goal serves)"),
		action:   fs.String("action", "", "I want to... (what to do)"),
		goal:     fs.String("goal", "", "So that I can... (why)"),
		priority: fs.String("priority", "", "Priority (low|medium|high|none)"),
		due:      fs.String("due", "", "Due date YYYY-MM-DD (empty clears)"),
	}
	if withTitle {
		sf.title = fs.String("title", "", "Goal title")
	}
	return sf
}

// apply copies every explicitly set flag onto t.
func (sf *storyFlags) apply(fs *flag.FlagSet, t *board.Task) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "title":
			t.Title = *sf.title
		case "role":
			t.Role = *sf.role
		case "action":
			t.Action = *sf.action
		case "goal":
			t.Goal = *sf.goal
		case "priority":
			var p board.Priority
			p, err = board.ParsePriority(*sf.priority)
			t.Priority = p
		case "due":
			err = t.SetDueDate(*sf.due)
		}
	})
	return err
}

func setCount(fs *flag.FlagSet) int {
	n := 0
	fs.Visit(func(*flag.Flag) { n++ })
	return n
}

// addCommand adds a goal to the backlog.
func addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sf := registerStoryFlags(fs, false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	title := strings.Join(fs.Args(), " ")

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.repo.AddTaskWith(ctx, title, func(t *board.Task) error {
		return sf.apply(fs, t)
	})
	if err != nil {
		return fmt.Errorf("adding goal: %w", err)
	}
	fmt.Fprintf(stdout, "Added [%s] %s\n", shortID(t.ID), t.Title)
	return nil
}

// lsCommand lists goals column by column.
func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	all := fs.Bool("all", false, "Include done goals from earlier sprints")
	verbose := fs.Bool("v", false, "Show stories and checklists")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	statuses := board.Statuses()
	if fs.NArg() == 1 {
		s, err := board.ParseStatus(fs.Arg(0))
		if err != nil {
			return err
		}
		statuses = []board.Status{s}
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()
	b := a.repo.Board()

	if active := b.ActiveSprint(); active != nil {
		fmt.Fprintf(stdout, "%s: %s\n\n", active.Name, active.Goal)
	} else {
		fmt.Fprint(stdout, "No Active Moon Cycle\n\n")
	}

	for _, status := range statuses {
		tasks := b.Column(status)
		if *all {
			tasks = b.TasksByStatus(status)
		}
		fmt.Fprintf(stdout, "%s (%d):\n", columnTitle(status), len(tasks))
		if len(tasks) == 0 {
			fmt.Fprintln(stdout, "  (empty)")
		}
		for _, t := range tasks {
			printTaskLine(stdout, t, *verbose)
		}
		fmt.Fprintln(stdout)
	}
	return nil
}

func columnTitle(s board.Status) string {
	switch s {
	case board.StatusBacklog:
		return "Master Grimoire of Goals"
	case board.StatusSprint:
		return "This Moon's Magic"
	case board.StatusDone:
		return "Rituals Complete"
	}
	return string(s)
}

// printTaskLine prints one goal as a list entry.
func printTaskLine(w io.Writer, t board.Task, verbose bool) {
	line := fmt.Sprintf("  [%s] %s", shortID(t.ID), t.Title)
	if t.Priority != "" {
		line += fmt.Sprintf(" (%s)", t.Priority)
	}
	if t.DueDate != nil {
		line += " due " + *t.DueDate
	}
	if completed, total := t.ChecklistCounts(); total > 0 && t.Status != board.StatusBacklog {
		line += fmt.Sprintf(" %d/%d %.0f%%", completed, total, t.Progress())
	}
	fmt.Fprintln(w, line)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "      %s\n", t.Story())
	for i, item := range t.DefinitionOfDone {
		fmt.Fprintf(w, "      %d. %s %s\n", i+1, checkbox(item.Completed), item.Text)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// showCommand prints a goal in full.
func showCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: moonboard show <id>")
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()
	b := a.repo.Board()
	t, err := b.FindTask(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, t.Title)
	fmt.Fprintln(stdout, strings.Repeat("=", len([]rune(t.Title))))
	fmt.Fprintf(stdout, "ID:       %s\n", t.ID)
	fmt.Fprintf(stdout, "Status:   %s\n", t.Status)
	priority := string(t.Priority)
	if priority == "" {
		priority = "none"
	}
	fmt.Fprintf(stdout, "Priority: %s\n", priority)
	if t.DueDate != nil {
		fmt.Fprintf(stdout, "Due:      %s\n", *t.DueDate)
	}
	for _, s := range b.Sprints {
		if s.HasTask(t.ID) {
			fmt.Fprintf(stdout, "Sprint:   %s (%s)\n", s.Name, s.Status)
		}
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, t.Story())

	fmt.Fprintln(stdout)
	completed, total := t.ChecklistCounts()
	fmt.Fprintf(stdout, "Definition of Done (%d/%d, %.0f%%):\n", completed, total, t.Progress())
	if total == 0 {
		fmt.Fprintln(stdout, "  (no steps)")
	}
	for i, item := range t.DefinitionOfDone {
		fmt.Fprintf(stdout, "  %d. %s %s\n", i+1, checkbox(item.Completed), item.Text)
	}

	if len(t.DailyStandups) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Daily Stand-ups:")
		for _, s := range t.DailyStandups {
			fmt.Fprintf(stdout, "  %s\n", s.Date)
			if s.Yesterday != "" {
				fmt.Fprintf(stdout, "    Yesterday: %s\n", s.Yesterday)
			}
			fmt.Fprintf(stdout, "    Today:     %s\n", s.Today)
			if s.Blockers != "" {
				fmt.Fprintf(stdout, "    Blockers:  %s\n", s.Blockers)
			}
		}
	}
	return nil
}

// editCommand updates the flags given on the command line and leaves the
// rest of the goal untouched.
func editCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sf := registerStoryFlags(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: moonboard edit [options] <id>")
	}
	if setCount(fs) == 0 {
		return fmt.Errorf("nothing to change: pass at least one of -title, -role, -action, -goal, -priority, -due")
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.repo.EditTask(ctx, fs.Arg(0), func(t *board.Task) error {
		return sf.apply(fs, t)
	})
	if err != nil {
		return fmt.Errorf("editing goal: %w", err)
	}
	fmt.Fprintf(stdout, "Updated [%s] %s\n", shortID(t.ID), t.Title)
	return nil
}

// rmCommand deletes a goal after confirmation.
func rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard rm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("y", false, "Delete without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: moonboard rm [-y] <id>")
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.repo.Board().FindTask(fs.Arg(0))
	if err != nil {
		return err
	}
	if !*yes {
		ok, err := confirm(fmt.Sprintf("Banish %q forever? [y/N] ", t.Title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Cancelled.")
			return nil
		}
	}
	if err := a.repo.DeleteTask(ctx, t.ID); err != nil {
		return fmt.Errorf("deleting goal: %w", err)
	}
	fmt.Fprintf(stdout, "Deleted [%s] %s\n", shortID(t.ID), t.Title)
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(question string) (bool, error) {
	fmt.Fprint(stdout, question)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// moveCommand moves a goal between columns.
func moveCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard move", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: moonboard move <id> <backlog|sprint|done>")
	}
	to, err := board.ParseStatus(fs.Arg(1))
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.repo.Board().FindTask(fs.Arg(0))
	if err != nil {
		return err
	}
	res, err := a.repo.MoveTask(ctx, t.ID, to)
	if err != nil {
		return err
	}
	if !res.Changed {
		fmt.Fprintf(stdout, "[%s] %s is already in %s\n", shortID(t.ID), t.Title, to)
		return nil
	}
	fmt.Fprintf(stdout, "Moved [%s] %s: %s -> %s\n", shortID(t.ID), t.Title, res.From, res.To)
	return nil
}

// checkCommand edits a goal's Definition of Done.
func checkCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: moonboard check <id> add <text> | toggle <n> | edit <n> <text> | rm <n>")
	}
	id, action, rest := rest[0], rest[1], rest[2:]

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var message string
	t, err := a.repo.EditTask(ctx, id, func(t *board.Task) error {
		switch action {
		case "add":
			item, err := t.AddChecklistItem(strings.Join(rest, " "))
			if err != nil {
				return err
			}
			message = "Added step: " + item.Text
		case "toggle", "done", "undo":
			if len(rest) != 1 {
				return fmt.Errorf("usage: moonboard check <id> toggle <n>")
			}
			item, err := resolveItem(t, rest[0])
			if err != nil {
				return err
			}
			if err := t.ToggleChecklistItem(item.ID); err != nil {
				return err
			}
			message = fmt.Sprintf("%s %s", checkbox(!item.Completed), item.Text)
		case "edit":
			if len(rest) < 2 {
				return fmt.Errorf("usage: moonboard check <id> edit <n> <text>")
			}
			item, err := resolveItem(t, rest[0])
			if err != nil {
				return err
			}
			text := strings.Join(rest[1:], " ")
			if err := t.EditChecklistItem(item.ID, text); err != nil {
				return err
			}
			message = "Renamed step: " + text
		case "rm", "remove":
			if len(rest) != 1 {
				return fmt.Errorf("usage: moonboard check <id> rm <n>")
			}
			item, err := resolveItem(t, rest[0])
			if err != nil {
				return err
			}
			if err := t.RemoveChecklistItem(item.ID); err != nil {
				return err
			}
			message = "Removed step: " + item.Text
		default:
			return fmt.Errorf("unknown check action %q (expected add, toggle, edit, rm)", action)
		}
		return nil
	})
	if err != nil {
		return err
	}
	completed, total := t.ChecklistCounts()
	fmt.Fprintf(stdout, "%s (%d/%d)\n", message, completed, total)
	return nil
}

// resolveItem finds a checklist item by 1-based position or id prefix.
func resolveItem(t *board.Task, ref string) (board.ChecklistItem, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(t.DefinitionOfDone) {
			return board.ChecklistItem{}, fmt.Errorf("%w: step %d of %d", board.ErrItemNotFound, n, len(t.DefinitionOfDone))
		}
		return t.DefinitionOfDone[n-1], nil
	}
	var match *board.ChecklistItem
	for i := range t.DefinitionOfDone {
		if strings.HasPrefix(t.DefinitionOfDone[i].ID, ref) {
			if match != nil {
				return board.ChecklistItem{}, fmt.Errorf("ambiguous step id %q", ref)
			}
			match = &t.DefinitionOfDone[i]
		}
	}
	if match == nil {
		return board.ChecklistItem{}, fmt.Errorf("%w: %s", board.ErrItemNotFound, ref)
	}
	return *match, nil
}

// standupCommand logs a stand-up against a sprint goal.
func standupCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard standup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yesterday := fs.String("yesterday", "", "What did I do yesterday?")
	blockers := fs.String("blockers", "", "What's blocking me?")
	date := fs.String("date", "", "Date of the stand-up (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: moonboard standup [options] <id> <what will I do today>")
	}
	day := *date
	if day == "" {
		day = time.Now().Format(board.DueDateLayout)
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	today := strings.Join(fs.Args()[1:], " ")
	t, err := a.repo.EditTask(ctx, fs.Arg(0), func(t *board.Task) error {
		_, err := t.AddStandup(day, *yesterday, today, *blockers)
		return err
	})
	if err != nil {
		return fmt.Errorf("logging stand-up: %w", err)
	}
	fmt.Fprintf(stdout, "Logged stand-up for [%s] %s (%d total)\n", shortID(t.ID), t.Title, len(t.DailyStandups))
	return nil
}
