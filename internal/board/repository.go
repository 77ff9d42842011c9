package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nibzard/moonboard/internal/storage"
)

// Storage keys and the schema version written alongside them.
const (
	KeyTasks         = "scrum-witches-tasks"
	KeySprints       = "scrum-witches-sprints"
	KeySchemaVersion = "scrum-witches-schema-version"

	SchemaVersion = 1
)

// RepositoryOptions configures a Repository.
type RepositoryOptions struct {
	// Seed fills a brand new board with sample goals.
	Seed bool
	// Sprint controls naming and length of new sprints.
	Sprint SprintOptions
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the full board as exported and imported.
type Snapshot struct {
	SchemaVersion int      `json:"schema_version" yaml:"schema_version"`
	Tasks         []Task   `json:"tasks" yaml:"tasks"`
	Sprints       []Sprint `json:"sprints" yaml:"sprints"`
}

// Repository owns the in-memory board and writes it to the store after
// every mutation. It is meant to be driven from a single goroutine.
type Repository struct {
	store     storage.Store
	opts      RepositoryOptions
	board     *Board
	warnings  []string
	listeners []Listener
}

// NewRepository returns a repository over store. Call Load before use.
func NewRepository(store storage.Store, opts RepositoryOptions) *Repository {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Repository{store: store, opts: opts}
}

// OnEvent registers a listener for saved changes.
func (r *Repository) OnEvent(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Warnings returns non-fatal findings from the last Load.
func (r *Repository) Warnings() []string {
	return r.warnings
}

// Board returns a copy of the current board.
func (r *Repository) Board() *Board {
	if r.board == nil {
		return &Board{}
	}
	return r.board.Clone()
}

// Load reads both collections from the store, validates them and seeds a
// brand new board.
func (r *Repository) Load(ctx context.Context) error {
	version, err := r.readVersion(ctx)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: stored %d, supported %d", ErrUnsupportedSchema, version, SchemaVersion)
	}

	tasksRaw, tasksErr := r.store.Get(ctx, KeyTasks)
	if tasksErr != nil && !errors.Is(tasksErr, storage.ErrNotFound) {
		return fmt.Errorf("read tasks: %w", tasksErr)
	}
	sprintsRaw, sprintsErr := r.store.Get(ctx, KeySprints)
	if sprintsErr != nil && !errors.Is(sprintsErr, storage.ErrNotFound) {
		return fmt.Errorf("read sprints: %w", sprintsErr)
	}

	if res := ValidateRaw(tasksRaw, sprintsRaw); !res.Valid {
		return res.Err()
	}

	b, err := decodeBoard(tasksRaw, sprintsRaw)
	if err != nil {
		return err
	}
	b.normalize()

	res := b.Validate()
	if !res.Valid {
		return res.Err()
	}
	r.warnings = res.Warnings

	firstRun := errors.Is(tasksErr, storage.ErrNotFound)
	if firstRun && r.opts.Seed {
		b.Tasks = SeedTasks()
	}
	if firstRun || version < SchemaVersion {
		if err := r.save(ctx, b); err != nil {
			return err
		}
	}
	r.board = b
	if firstRun && r.opts.Seed {
		r.emit(Event{Type: EventBoardSeeded, Message: fmt.Sprintf("%d sample goals", len(b.Tasks))})
	}
	return nil
}

// readVersion returns the stored schema version. Data written before the
// version key existed is version 1; an empty store is version 0.
func (r *Repository) readVersion(ctx context.Context) (int, error) {
	raw, err := r.store.Get(ctx, KeySchemaVersion)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := r.store.Get(ctx, KeyTasks); err == nil {
			return 1, nil
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, nil
}

// Check validates the stored data without loading it.
func (r *Repository) Check(ctx context.Context) (*ValidationResult, error) {
	version, err := r.readVersion(ctx)
	if err != nil {
		return nil, err
	}
	tasksRaw, err := r.store.Get(ctx, KeyTasks)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	sprintsRaw, err := r.store.Get(ctx, KeySprints)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read sprints: %w", err)
	}

	result := ValidateRaw(tasksRaw, sprintsRaw)
	if version > SchemaVersion {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: KeySchemaVersion,
			Err:  fmt.Errorf("%w: stored %d, supported %d", ErrUnsupportedSchema, version, SchemaVersion),
		})
	}
	if !result.Valid {
		return result, nil
	}

	b, err := decodeBoard(tasksRaw, sprintsRaw)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Err: err})
		return result, nil
	}
	structural := b.Validate()
	result.Valid = structural.Valid
	result.Errors = append(result.Errors, structural.Errors...)
	result.Warnings = append(result.Warnings, structural.Warnings...)
	return result, nil
}

// decodeBoard parses the stored collections. Missing collections decode to
// an empty board.
func decodeBoard(tasksRaw, sprintsRaw []byte) (*Board, error) {
	b := &Board{}
	if len(tasksRaw) > 0 {
		if err := json.Unmarshal(tasksRaw, &b.Tasks); err != nil {
			return nil, fmt.Errorf("parse tasks: %w", err)
		}
	}
	if len(sprintsRaw) > 0 {
		if err := json.Unmarshal(sprintsRaw, &b.Sprints); err != nil {
			return nil, fmt.Errorf("parse sprints: %w", err)
		}
	}
	return b, nil
}

func (r *Repository) save(ctx context.Context, b *Board) error {
	b.normalize()
	tasks, err := json.MarshalIndent(b.Tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	sprints, err := json.MarshalIndent(b.Sprints, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sprints: %w", err)
	}
	err = r.store.PutMany(ctx, map[string][]byte{
		KeyTasks:         append(tasks, '\n'),
		KeySprints:       append(sprints, '\n'),
		KeySchemaVersion: []byte(strconv.Itoa(SchemaVersion) + "\n"),
	})
	if err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// apply runs fn on a copy of the board, saves it and only then makes it
// current. A failed transition or save leaves the board untouched.
func (r *Repository) apply(ctx context.Context, fn func(b *Board) ([]Event, error)) error {
	if r.board == nil {
		return fmt.Errorf("board not loaded")
	}
	next := r.board.Clone()
	events, err := fn(next)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := r.save(ctx, next); err != nil {
		return err
	}
	r.board = next
	for _, e := range events {
		r.emit(e)
	}
	return nil
}

func (r *Repository) emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.opts.Now().UTC()
	}
	for _, l := range r.listeners {
		l(e)
	}
}

// AddTask appends a new backlog task.
func (r *Repository) AddTask(ctx context.Context, title string) (Task, error) {
	return r.AddTaskWith(ctx, title, nil)
}

// AddTaskWith appends a new backlog task and lets fn fill in its remaining
// fields before the single save. The id and status set by the board win over
// anything fn assigns.
func (r *Repository) AddTaskWith(ctx context.Context, title string, fn func(t *Task) error) (Task, error) {
	var added Task
	err := r.apply(ctx, func(b *Board) ([]Event, error) {
		t, err := b.AddTask(title)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			draft := t.Clone()
			if err := fn(&draft); err != nil {
				return nil, err
			}
			draft.ID, draft.Status = t.ID, t.Status
			if err := b.UpdateTask(draft); err != nil {
				return nil, err
			}
			t = draft
		}
		added = t
		return []Event{{Type: EventTaskAdded, TaskID: t.ID, To: t.Status, Message: t.Title}}, nil
	})
	return added, err
}

// UpdateTask replaces a task by id.
func (r *Repository) UpdateTask(ctx context.Context, task Task) error {
	return r.apply(ctx, func(b *Board) ([]Event, error) {
		if err := b.UpdateTask(task); err != nil {
			return nil, err
		}
		return []Event{{Type: EventTaskUpdated, TaskID: task.ID, Message: task.Title}}, nil
	})
}

// EditTask applies fn to a copy of the task and saves the result as a full
// replace.
func (r *Repository) EditTask(ctx context.Context, id string, fn func(t *Task) error) (Task, error) {
	var edited Task
	err := r.apply(ctx, func(b *Board) ([]Event, error) {
		existing, err := b.FindTask(id)
		if err != nil {
			return nil, err
		}
		t := existing.Clone()
		if err := fn(&t); err != nil {
			return nil, err
		}
		t.ID = existing.ID
		if err := b.UpdateTask(t); err != nil {
			return nil, err
		}
		edited = t
		return []Event{{Type: EventTaskUpdated, TaskID: t.ID, Message: t.Title}}, nil
	})
	return edited, err
}

// DeleteTask removes a task and its sprint memberships.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	return r.apply(ctx, func(b *Board) ([]Event, error) {
		t := b.GetTask(id)
		if t == nil {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		title, from := t.Title, t.Status
		if err := b.DeleteTask(id); err != nil {
			return nil, err
		}
		return []Event{{Type: EventTaskDeleted, TaskID: id, From: from, Message: title}}, nil
	})
}

// MoveTask moves a task between columns.
func (r *Repository) MoveTask(ctx context.Context, id string, to Status) (MoveResult, error) {
	var res MoveResult
	err := r.apply(ctx, func(b *Board) ([]Event, error) {
		var err error
		res, err = b.MoveTask(id, to)
		if err != nil || !res.Changed {
			return nil, err
		}
		return []Event{{Type: EventTaskMoved, TaskID: id, SprintID: res.SprintID, From: res.From, To: res.To}}, nil
	})
	return res, err
}

// StartSprint starts a new sprint.
func (r *Repository) StartSprint(ctx context.Context) (Sprint, error) {
	return r.StartSprintWith(ctx, "", "")
}

// StartSprintWith starts a new sprint with an explicit name and goal. Blank
// values fall back to the configured prefix and default goal.
func (r *Repository) StartSprintWith(ctx context.Context, name, goal string) (Sprint, error) {
	var started Sprint
	err := r.apply(ctx, func(b *Board) ([]Event, error) {
		s, err := b.StartSprint(r.opts.Now(), r.opts.Sprint)
		if err != nil {
			return nil, err
		}
		if name != "" {
			if err := b.RenameSprint(name); err != nil {
				return nil, err
			}
		}
		if goal != "" {
			if err := b.SetSprintGoal(goal); err != nil {
				return nil, err
			}
		}
		s = *b.ActiveSprint()
		started = s
		return []Event{{Type: EventSprintStarted, SprintID: s.ID, Message: s.Name}}, nil
	})
	return started, err
}

// CompleteSprint returns the active sprint for retrospective capture.
func (r *Repository) CompleteSprint() (Sprint, error) {
	if r.board == nil {
		return Sprint{}, fmt.Errorf("board not loaded")
	}
	return r.board.CompleteSprint()
}

// FinalizeSprint closes the active sprint with its retrospective.
func (r *Repository) FinalizeSprint(ctx context.Context, retro Retrospective) (FinalizeResult, error) {
	var res FinalizeResult
	err := r.apply(ctx, func(b *Board) ([]Event, error) {
		var err error
		res, err = b.FinalizeSprint(retro)
		if err != nil {
			return nil, err
		}
		events := []Event{{Type: EventSprintCompleted, SprintID: res.Sprint.ID, Message: res.Sprint.Name}}
		for _, id := range res.Reverted {
			events = append(events, Event{Type: EventTaskReverted, TaskID: id, SprintID: res.Sprint.ID, From: StatusSprint, To: StatusBacklog})
		}
		for _, id := range res.Orphaned {
			events = append(events, Event{Type: EventTaskReverted, TaskID: id, From: StatusSprint, To: StatusBacklog, Message: "not a member of the completed sprint"})
		}
		return events, nil
	})
	return res, err
}

// SetSprintGoal updates the active sprint's goal.
func (r *Repository) SetSprintGoal(ctx context.Context, goal string) error {
	return r.apply(ctx, func(b *Board) ([]Event, error) {
		if err := b.SetSprintGoal(goal); err != nil {
			return nil, err
		}
		return []Event{{Type: EventSprintUpdated, SprintID: b.ActiveSprint().ID, Message: "goal: " + goal}}, nil
	})
}

// RenameSprint renames the active sprint.
func (r *Repository) RenameSprint(ctx context.Context, name string) error {
	return r.apply(ctx, func(b *Board) ([]Event, error) {
		if err := b.RenameSprint(name); err != nil {
			return nil, err
		}
		return []Event{{Type: EventSprintUpdated, SprintID: b.ActiveSprint().ID, Message: "name: " + name}}, nil
	})
}

// Snapshot returns the board for export.
func (r *Repository) Snapshot() Snapshot {
	b := r.Board()
	b.normalize()
	return Snapshot{SchemaVersion: SchemaVersion, Tasks: b.Tasks, Sprints: b.Sprints}
}

// Replace validates snap and makes it the whole board.
func (r *Repository) Replace(ctx context.Context, snap Snapshot) error {
	if snap.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: snapshot %d, supported %d", ErrUnsupportedSchema, snap.SchemaVersion, SchemaVersion)
	}
	next := (&Board{Tasks: snap.Tasks, Sprints: snap.Sprints}).Clone()
	next.normalize()

	tasksRaw, err := json.Marshal(next.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	sprintsRaw, err := json.Marshal(next.Sprints)
	if err != nil {
		return fmt.Errorf("marshal sprints: %w", err)
	}
	if res := ValidateRaw(tasksRaw, sprintsRaw); !res.Valid {
		return res.Err()
	}
	if res := next.Validate(); !res.Valid {
		return res.Err()
	}

	if err := r.save(ctx, next); err != nil {
		return err
	}
	r.board = next
	r.emit(Event{
		Type:    EventBoardImported,
		Message: fmt.Sprintf("%d tasks, %d sprints", len(next.Tasks), len(next.Sprints)),
	})
	return nil
}
