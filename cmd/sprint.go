package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/moonboard/internal/board"
	"github.com/nibzard/moonboard/internal/config"
)

// sprintCommand manages moon cycles.
func sprintCommand(ctx context.Context, cfg *config.Config, args []string) error {
	action := "status"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}

	switch action {
	case "status":
		return sprintStatus(ctx, cfg, args)
	case "start":
		return sprintStart(ctx, cfg, args)
	case "complete", "finish":
		return sprintComplete(ctx, cfg, args)
	case "goal":
		return sprintEdit(ctx, cfg, "goal", args)
	case "rename":
		return sprintEdit(ctx, cfg, "rename", args)
	case "history":
		return sprintHistory(ctx, cfg, args)
	}
	return fmt.Errorf("unknown sprint action %q (expected status, start, complete, goal, rename, history)", action)
}

func sprintStatus(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	b := a.repo.Board()
	active := b.ActiveSprint()
	if active == nil {
		fmt.Fprintln(stdout, "No Active Moon Cycle. Start one with: moonboard sprint start")
		return nil
	}
	printSprint(b, *active)
	return nil
}

func printSprint(b *board.Board, s board.Sprint) {
	fmt.Fprintf(stdout, "%s [%s] (%s)\n", s.Name, shortID(s.ID), s.Status)
	fmt.Fprintf(stdout, "  Goal:    %s\n", s.Goal)
	fmt.Fprintf(stdout, "  Started: %s\n", displayTime(s.StartDate))
	if s.EndDate != "" {
		fmt.Fprintf(stdout, "  Ends:    %s\n", displayTime(s.EndDate))
	}

	done := 0
	for _, id := range s.TaskIDs {
		if t := b.GetTask(id); t != nil && t.Status == board.StatusDone {
			done++
		}
	}
	fmt.Fprintf(stdout, "  Goals:   %d (%d done)\n", len(s.TaskIDs), done)
	for _, id := range s.TaskIDs {
		t := b.GetTask(id)
		if t == nil {
			continue
		}
		fmt.Fprintf(stdout, "    %s [%s] %s\n", checkbox(t.Status == board.StatusDone), shortID(t.ID), t.Title)
	}
}

func displayTime(v string) string {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return v
}

func sprintStart(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard sprint start", flag.ContinueOnError)
	fs.SetOutput(stderr)
	goal := fs.String("goal", "", "Goal for the new cycle")
	name := fs.String("name", "", "Name for the new cycle (default: next Moon Cycle N)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.repo.StartSprintWith(ctx, *name, *goal)
	if err != nil {
		return fmt.Errorf("starting sprint: %w", err)
	}
	fmt.Fprintf(stdout, "Started %s [%s]: %s\n", s.Name, shortID(s.ID), s.Goal)
	return nil
}

func sprintComplete(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("moonboard sprint complete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	well := fs.String("well", "", "What went well this cycle?")
	notWell := fs.String("not-well", "", "What didn't go well?")
	differently := fs.String("differently", "", "What will I do differently next cycle?")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.repo.CompleteSprint(); err != nil {
		return fmt.Errorf("completing sprint: %w", err)
	}
	res, err := a.repo.FinalizeSprint(ctx, board.Retrospective{
		WhatWentWell:    *well,
		WhatDidntGoWell: *notWell,
		DoDifferently:   *differently,
	})
	if err != nil {
		return fmt.Errorf("completing sprint: %w", err)
	}

	fmt.Fprintf(stdout, "Completed %s\n", res.Sprint.Name)
	if n := len(res.Reverted); n > 0 {
		fmt.Fprintf(stdout, "  %d unfinished goal(s) returned to the grimoire\n", n)
	}
	if n := len(res.Orphaned); n > 0 {
		fmt.Fprintf(stdout, "  %d sprint goal(s) outside this cycle also returned to the grimoire\n", n)
	}
	return nil
}

func sprintEdit(ctx context.Context, cfg *config.Config, action string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: moonboard sprint %s <text>", action)
	}
	text := strings.Join(args, " ")

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if action == "goal" {
		err = a.repo.SetSprintGoal(ctx, text)
	} else {
		err = a.repo.RenameSprint(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("updating sprint: %w", err)
	}
	fmt.Fprintln(stdout, "Sprint updated.")
	return nil
}

func sprintHistory(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	b := a.repo.Board()
	completed := b.CompletedSprints()
	if len(completed) == 0 {
		fmt.Fprintln(stdout, "No completed moon cycles yet.")
		return nil
	}
	for i, s := range completed {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printSprint(b, s)
		if r := s.Retrospective; r != nil {
			fmt.Fprintln(stdout, "  Retrospective:")
			fmt.Fprintf(stdout, "    Went well:       %s\n", r.WhatWentWell)
			fmt.Fprintf(stdout, "    Didn't go well:  %s\n", r.WhatDidntGoWell)
			fmt.Fprintf(stdout, "    Do differently:  %s\n", r.DoDifferently)
		}
	}
	return nil
}
