package board

import "time"

// EventType names a persisted board change.
type EventType string

const (
	EventBoardSeeded     EventType = "board.seeded"
	EventBoardImported   EventType = "board.imported"
	EventTaskAdded       EventType = "task.added"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskDeleted     EventType = "task.deleted"
	EventTaskMoved       EventType = "task.moved"
	EventTaskReverted    EventType = "task.reverted"
	EventSprintStarted   EventType = "sprint.started"
	EventSprintUpdated   EventType = "sprint.updated"
	EventSprintCompleted EventType = "sprint.completed"
)

// Event records one board change after it has been saved.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id,omitempty"`
	SprintID  string    `json:"sprint_id,omitempty"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Listener receives events after each successful save.
type Listener func(Event)
