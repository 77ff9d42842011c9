package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nibzard/moonboard/internal/board"
	"github.com/nibzard/moonboard/internal/config"
	"github.com/nibzard/moonboard/internal/hooks"
	"github.com/nibzard/moonboard/internal/logging"
	"github.com/nibzard/moonboard/internal/storage"
)

// app bundles the store, repository, journal and console logger a command
// works with.
type app struct {
	ctx   context.Context
	cfg   *config.Config
	store storage.Store
	repo  *board.Repository
	log   *log.Logger

	journal       *logging.Journal
	journalFailed bool

	mu       sync.Mutex
	warnings []string
}

// openApp opens the configured store and, when load is set, loads the board.
func openApp(ctx context.Context, cfg *config.Config, load bool) (*app, error) {
	store, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}

	a := &app{
		ctx:   ctx,
		cfg:   cfg,
		store: store,
		log:   logging.NewConsoleFromConfig(stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller),
	}
	a.repo = board.NewRepository(store, board.RepositoryOptions{
		Seed:   cfg.Seed,
		Sprint: cfg.SprintOptions(),
	})
	a.repo.OnEvent(a.onEvent)

	if load {
		if err := a.repo.Load(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("loading board: %w", err)
		}
		for _, w := range a.repo.Warnings() {
			a.log.Warn(w)
			a.record(w)
		}
	}
	return a, nil
}

// onEvent journals a saved change and runs the hook. Failures are logged and
// never undo the change, which is already on disk.
func (a *app) onEvent(e board.Event) {
	a.log.Debug("board changed", "type", e.Type, "task_id", e.TaskID, "sprint_id", e.SprintID)

	if a.journal == nil && !a.journalFailed {
		j, err := logging.NewJournal(a.cfg.LogDir, a.cfg.ProjectRoot)
		if err != nil {
			a.journalFailed = true
			a.warn("journal disabled", err)
			return
		}
		a.journal = j
	}
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(e); err != nil {
		a.warn("journal write failed", err)
		return
	}

	if strings.TrimSpace(a.cfg.HookCommand) == "" {
		return
	}
	res, err := hooks.Invoke(a.ctx, hooks.Options{
		Command:       a.cfg.HookCommand,
		LastEventPath: a.journal.LastEventPath(),
		Label:         "moonboard",
		WorkDir:       a.cfg.ProjectRoot,
	})
	if err != nil {
		a.warn("hook failed", err, "event", e.Type, "exit_code", res.ExitCode)
		return
	}
	if res.Ran {
		a.log.Debug("hook ran", "event", e.Type, "output", strings.TrimSpace(res.Output))
	}
}

// warn logs a failure that did not stop the command and keeps it for
// surfaces that cannot show the console log.
func (a *app) warn(msg string, err error, keyvals ...any) {
	a.log.Warn(msg, append(keyvals, "err", err)...)
	a.record(fmt.Sprintf("%s: %v", msg, err))
}

func (a *app) record(w string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, w)
}

// drainWarnings returns and clears the warnings recorded so far.
func (a *app) drainWarnings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.warnings
	a.warnings = nil
	return w
}

// Close releases the journal and the store.
func (a *app) Close() error {
	jerr := a.journal.Close()
	if err := a.store.Close(); err != nil {
		return err
	}
	return jerr
}

// shortID returns the display form of an id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
