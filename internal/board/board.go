package board

import (
	"fmt"
	"strings"
	"time"
)

// Default sprint settings.
const (
	DefaultSprintPrefix = "Moon Cycle"
	DefaultSprintGoal   = "Focus for this cycle..."
)

// Board holds the two top-level collections.
type Board struct {
	Tasks   []Task
	Sprints []Sprint
}

// SprintOptions controls how StartSprint names and sizes a new sprint.
type SprintOptions struct {
	NamePrefix string
	Goal       string
	// Length sets EndDate relative to the start. Zero leaves EndDate empty.
	Length time.Duration
}

// MoveResult describes the outcome of MoveTask.
type MoveResult struct {
	TaskID   string
	SprintID string
	From     Status
	To       Status
	Changed  bool
}

// FinalizeResult describes the outcome of FinalizeSprint.
type FinalizeResult struct {
	Sprint Sprint
	// Reverted holds member tasks returned to the backlog.
	Reverted []string
	// Orphaned holds sprint-status tasks that were not members of the
	// completing sprint; they are returned to the backlog as well.
	Orphaned []string
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{
		Tasks:   make([]Task, len(b.Tasks)),
		Sprints: make([]Sprint, len(b.Sprints)),
	}
	for i, t := range b.Tasks {
		c.Tasks[i] = t.Clone()
	}
	for i, s := range b.Sprints {
		c.Sprints[i] = s.Clone()
	}
	return c
}

// GetTask returns a task by ID, or nil if not found.
func (b *Board) GetTask(id string) *Task {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			return &b.Tasks[i]
		}
	}
	return nil
}

// FindTask resolves a task by exact id, then by unique id prefix.
func (b *Board) FindTask(ref string) (*Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty id", ErrTaskNotFound)
	}
	if t := b.GetTask(ref); t != nil {
		return t, nil
	}
	var match *Task
	for i := range b.Tasks {
		if strings.HasPrefix(b.Tasks[i].ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous task id %q", ref)
			}
			match = &b.Tasks[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	}
	return match, nil
}

// ActiveSprint returns the active sprint, or nil if none.
func (b *Board) ActiveSprint() *Sprint {
	for i := range b.Sprints {
		if b.Sprints[i].Status == SprintActive {
			return &b.Sprints[i]
		}
	}
	return nil
}

// CompletedSprints returns completed sprints in creation order.
func (b *Board) CompletedSprints() []Sprint {
	var out []Sprint
	for _, s := range b.Sprints {
		if s.Status == SprintCompleted {
			out = append(out, s)
		}
	}
	return out
}

// Column returns the tasks shown in a status column. The done column only
// shows tasks finished in the active sprint.
func (b *Board) Column(status Status) []Task {
	active := b.ActiveSprint()
	var out []Task
	for _, t := range b.Tasks {
		if t.Status != status {
			continue
		}
		if status == StatusDone && (active == nil || !active.HasTask(t.ID)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TasksByStatus returns every task with the given status.
func (b *Board) TasksByStatus(status Status) []Task {
	var out []Task
	for _, t := range b.Tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// AddTask appends a new backlog task.
func (b *Board) AddTask(title string) (Task, error) {
	t, err := NewTask(title)
	if err != nil {
		return Task{}, err
	}
	b.Tasks = append(b.Tasks, t)
	return t, nil
}

// UpdateTask replaces the task with the same ID.
func (b *Board) UpdateTask(task Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return ErrEmptyTitle
	}
	existing := b.GetTask(task.ID)
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	}
	*existing = task.Clone()
	return nil
}

// DeleteTask removes a task and scrubs its id from every sprint.
func (b *Board) DeleteTask(id string) error {
	idx := -1
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	b.Tasks = append(b.Tasks[:idx], b.Tasks[idx+1:]...)

	for i := range b.Sprints {
		kept := b.Sprints[i].TaskIDs[:0]
		for _, tid := range b.Sprints[i].TaskIDs {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		b.Sprints[i].TaskIDs = kept
	}
	return nil
}

// MoveTask moves a task to another column. Only backlog->sprint,
// sprint->done and done->sprint are allowed, all of them against the active
// sprint. A rejected move leaves the board unchanged.
func (b *Board) MoveTask(id string, to Status) (MoveResult, error) {
	t := b.GetTask(id)
	if t == nil {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	res := MoveResult{TaskID: id, From: t.Status, To: to}
	if t.Status == to {
		return res, nil
	}

	active := b.ActiveSprint()
	switch {
	case t.Status == StatusBacklog && to == StatusSprint:
		if active == nil {
			return res, fmt.Errorf("move %s to sprint: %w", id, ErrNoActiveSprint)
		}
		if !active.HasTask(id) {
			active.TaskIDs = append(active.TaskIDs, id)
		}
	case t.Status == StatusSprint && to == StatusDone,
		t.Status == StatusDone && to == StatusSprint:
		if active == nil {
			return res, fmt.Errorf("move %s to %s: %w", id, to, ErrNoActiveSprint)
		}
		if !active.HasTask(id) {
			return res, fmt.Errorf("move %s to %s: %w", id, to, ErrNotInSprint)
		}
	default:
		return res, fmt.Errorf("move %s from %s to %s: %w", id, t.Status, to, ErrInvalidTransition)
	}

	t.Status = to
	res.SprintID = active.ID
	res.Changed = true
	return res, nil
}

// StartSprint begins a new sprint. It fails with ErrSprintActive when a
// sprint is already running.
func (b *Board) StartSprint(now time.Time, opts SprintOptions) (Sprint, error) {
	if active := b.ActiveSprint(); active != nil {
		return Sprint{}, fmt.Errorf("%w: %s", ErrSprintActive, active.Name)
	}
	prefix := orDefault(opts.NamePrefix, DefaultSprintPrefix)
	s := Sprint{
		ID:        newID(),
		Name:      fmt.Sprintf("%s %d", prefix, len(b.Sprints)+1),
		Goal:      orDefault(opts.Goal, DefaultSprintGoal),
		StartDate: now.UTC().Format(time.RFC3339),
		TaskIDs:   []string{},
		Status:    SprintActive,
	}
	if opts.Length > 0 {
		s.EndDate = now.Add(opts.Length).UTC().Format(time.RFC3339)
	}
	b.Sprints = append(b.Sprints, s)
	return s, nil
}

// CompleteSprint returns the active sprint so its retrospective can be
// captured. Nothing changes until FinalizeSprint.
func (b *Board) CompleteSprint() (Sprint, error) {
	active := b.ActiveSprint()
	if active == nil {
		return Sprint{}, ErrNoActiveSprint
	}
	return active.Clone(), nil
}

// FinalizeSprint attaches the retrospective to the active sprint, marks it
// completed and returns unfinished tasks to the backlog.
func (b *Board) FinalizeSprint(retro Retrospective) (FinalizeResult, error) {
	active := b.ActiveSprint()
	if active == nil {
		return FinalizeResult{}, ErrNoActiveSprint
	}
	r := retro
	active.Retrospective = &r
	active.Status = SprintCompleted

	res := FinalizeResult{}
	for i := range b.Tasks {
		t := &b.Tasks[i]
		if t.Status != StatusSprint {
			continue
		}
		t.Status = StatusBacklog
		if active.HasTask(t.ID) {
			res.Reverted = append(res.Reverted, t.ID)
		} else {
			res.Orphaned = append(res.Orphaned, t.ID)
		}
	}
	res.Sprint = active.Clone()
	return res, nil
}

// SetSprintGoal updates the active sprint's goal.
func (b *Board) SetSprintGoal(goal string) error {
	active := b.ActiveSprint()
	if active == nil {
		return ErrNoActiveSprint
	}
	active.Goal = goal
	return nil
}

// RenameSprint renames the active sprint.
func (b *Board) RenameSprint(name string) error {
	active := b.ActiveSprint()
	if active == nil {
		return ErrNoActiveSprint
	}
	if strings.TrimSpace(name) == "" {
		return ErrEmptyTitle
	}
	active.Name = name
	return nil
}

// normalize replaces nil slices with empty ones so the stored JSON always
// carries arrays.
func (b *Board) normalize() {
	if b.Tasks == nil {
		b.Tasks = []Task{}
	}
	if b.Sprints == nil {
		b.Sprints = []Sprint{}
	}
	for i := range b.Tasks {
		if b.Tasks[i].DefinitionOfDone == nil {
			b.Tasks[i].DefinitionOfDone = []ChecklistItem{}
		}
		if b.Tasks[i].DailyStandups == nil {
			b.Tasks[i].DailyStandups = []DailyStandup{}
		}
	}
	for i := range b.Sprints {
		if b.Sprints[i].TaskIDs == nil {
			b.Sprints[i].TaskIDs = []string{}
		}
	}
}
