package board

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle        = errors.New("title is empty")
	ErrEmptyText         = errors.New("text is empty")
	ErrTaskNotFound      = errors.New("task not found")
	ErrItemNotFound      = errors.New("checklist item not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoActiveSprint    = errors.New("no active sprint")
	ErrSprintActive      = errors.New("an active sprint is already in progress")
	ErrNotInSprint       = errors.New("task is not in the sprint")
	ErrUnsupportedSchema = errors.New("unsupported schema version")
)

// DueDateLayout is the date format for Task.DueDate.
const DueDateLayout = "2006-01-02"

// newID returns a fresh entity id.
var newID = func() string {
	return uuid.NewString()
}

// Status represents a task status (its column).
type Status string

const (
	StatusBacklog Status = "backlog"
	StatusSprint  Status = "sprint"
	StatusDone    Status = "done"
)

// Statuses lists task statuses in column order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusSprint, StatusDone}
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusBacklog:
		return StatusBacklog, nil
	case StatusSprint:
		return StatusSprint, nil
	case StatusDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("invalid status %q, must be one of: backlog, sprint, done", s)
}

// Priority represents a task priority. The zero value means unset.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority parses a priority name. "" and "none" clear the priority.
func ParsePriority(s string) (Priority, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case "", "none":
		return "", nil
	case string(PriorityLow), string(PriorityMedium), string(PriorityHigh):
		return Priority(p), nil
	}
	return "", fmt.Errorf("invalid priority %q, must be one of: low, medium, high", s)
}

// ChecklistItem is one Definition of Done step.
type ChecklistItem struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// DailyStandup is one stand-up check-in logged against a sprint task.
type DailyStandup struct {
	ID        string `json:"id" yaml:"id"`
	Date      string `json:"date" yaml:"date"`
	Yesterday string `json:"yesterday" yaml:"yesterday"`
	Today     string `json:"today" yaml:"today"`
	Blockers  string `json:"blockers" yaml:"blockers"`
}

// Task is a single goal on the board.
type Task struct {
	ID               string          `json:"id" yaml:"id"`
	Title            string          `json:"title" yaml:"title"`
	Role             string          `json:"role" yaml:"role"`
	Action           string          `json:"action" yaml:"action"`
	Goal             string          `json:"goal" yaml:"goal"`
	Status           Status          `json:"status" yaml:"status"`
	Priority         Priority        `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate          *string         `json:"dueDate" yaml:"dueDate"`
	DefinitionOfDone []ChecklistItem `json:"definitionOfDone" yaml:"definitionOfDone"`
	DailyStandups    []DailyStandup  `json:"dailyStandups" yaml:"dailyStandups"`
}

// NewTask returns a backlog task with an empty story, checklist and stand-up log.
func NewTask(title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	return Task{
		ID:               newID(),
		Title:            title,
		Status:           StatusBacklog,
		DefinitionOfDone: []ChecklistItem{},
		DailyStandups:    []DailyStandup{},
	}, nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.DefinitionOfDone = append([]ChecklistItem{}, t.DefinitionOfDone...)
	c.DailyStandups = append([]DailyStandup{}, t.DailyStandups...)
	return c
}

// Story renders the user story line shown on cards.
func (t Task) Story() string {
	return fmt.Sprintf("As a %s, I want to %s so that I can %s.",
		orDefault(t.Role, "Witch"),
		orDefault(t.Action, "..."),
		orDefault(t.Goal, "..."),
	)
}

// ChecklistCounts returns the number of completed and total checklist items.
func (t Task) ChecklistCounts() (completed, total int) {
	for _, item := range t.DefinitionOfDone {
		if item.Completed {
			completed++
		}
	}
	return completed, len(t.DefinitionOfDone)
}

// Progress returns the Definition of Done completion percentage, 0 when the
// checklist is empty.
func (t Task) Progress() float64 {
	completed, total := t.ChecklistCounts()
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// SetDueDate sets the due date from a YYYY-MM-DD string. An empty string
// clears it.
func (t *Task) SetDueDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		t.DueDate = nil
		return nil
	}
	if _, err := time.Parse(DueDateLayout, s); err != nil {
		return fmt.Errorf("invalid due date %q, want YYYY-MM-DD", s)
	}
	t.DueDate = &s
	return nil
}

// AddChecklistItem appends a Definition of Done step.
func (t *Task) AddChecklistItem(text string) (ChecklistItem, error) {
	if strings.TrimSpace(text) == "" {
		return ChecklistItem{}, ErrEmptyText
	}
	item := ChecklistItem{ID: newID(), Text: text}
	t.DefinitionOfDone = append(t.DefinitionOfDone, item)
	return item, nil
}

// ToggleChecklistItem flips the completed flag of an item.
func (t *Task) ToggleChecklistItem(id string) error {
	i := t.checklistIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	t.DefinitionOfDone[i].Completed = !t.DefinitionOfDone[i].Completed
	return nil
}

// EditChecklistItem replaces the text of an item.
func (t *Task) EditChecklistItem(id, text string) error {
	i := t.checklistIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	t.DefinitionOfDone[i].Text = text
	return nil
}

// RemoveChecklistItem deletes an item, keeping the order of the rest.
func (t *Task) RemoveChecklistItem(id string) error {
	i := t.checklistIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	t.DefinitionOfDone = append(t.DefinitionOfDone[:i], t.DefinitionOfDone[i+1:]...)
	return nil
}

func (t *Task) checklistIndex(id string) int {
	for i := range t.DefinitionOfDone {
		if t.DefinitionOfDone[i].ID == id {
			return i
		}
	}
	return -1
}

// AddStandup prepends a stand-up check-in. Only sprint tasks take stand-ups
// and "today" is required.
func (t *Task) AddStandup(date, yesterday, today, blockers string) (DailyStandup, error) {
	if t.Status != StatusSprint {
		return DailyStandup{}, ErrNotInSprint
	}
	if strings.TrimSpace(today) == "" {
		return DailyStandup{}, ErrEmptyText
	}
	s := DailyStandup{
		ID:        newID(),
		Date:      date,
		Yesterday: yesterday,
		Today:     today,
		Blockers:  blockers,
	}
	t.DailyStandups = append([]DailyStandup{s}, t.DailyStandups...)
	return s, nil
}

// SprintStatus represents a sprint's lifecycle state.
type SprintStatus string

const (
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Retrospective is the end-of-sprint reflection.
type Retrospective struct {
	WhatWentWell    string `json:"whatWentWell" yaml:"whatWentWell"`
	WhatDidntGoWell string `json:"whatDidntGoWell" yaml:"whatDidntGoWell"`
	DoDifferently   string `json:"doDifferently" yaml:"doDifferently"`
}

// Sprint is a time-boxed working set of tasks ("Moon Cycle").
type Sprint struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	StartDate     string         `json:"startDate" yaml:"startDate"`
	EndDate       string         `json:"endDate" yaml:"endDate"`
	Goal          string         `json:"goal" yaml:"goal"`
	TaskIDs       []string       `json:"taskIds" yaml:"taskIds"`
	Retrospective *Retrospective `json:"retrospective" yaml:"retrospective"`
	Status        SprintStatus   `json:"status" yaml:"status"`
}

// HasTask reports whether id is a member of the sprint.
func (s Sprint) HasTask(id string) bool {
	for _, tid := range s.TaskIDs {
		if tid == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the sprint.
func (s Sprint) Clone() Sprint {
	c := s
	c.TaskIDs = append([]string{}, s.TaskIDs...)
	if s.Retrospective != nil {
		r := *s.Retrospective
		c.Retrospective = &r
	}
	return c
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
