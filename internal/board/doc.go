// Package board holds the task board data model and its state transitions.
//
// The board is two collections persisted in full on every mutation:
//
//	scrum-witches-tasks    JSON array of Task
//	scrum-witches-sprints  JSON array of Sprint
//
// A task looks like:
//
//	{
//	  "id": "5f0c...",
//	  "title": "Master the Tarot",
//	  "role": "Diviner",
//	  "action": "practice daily one-card pulls",
//	  "goal": "build intuition and card knowledge",
//	  "status": "backlog",
//	  "priority": "medium",
//	  "dueDate": null,
//	  "definitionOfDone": [{"id": "...", "text": "Learn the Major Arcana", "completed": false}],
//	  "dailyStandups": [{"id": "...", "date": "2026-10-19", "yesterday": "", "today": "", "blockers": ""}]
//	}
//
// # Task Status Values
//
//   - "backlog": not yet scheduled
//   - "sprint": part of the active sprint
//   - "done": finished during the active sprint
//
// # Allowed Moves
//
//   - backlog -> sprint (needs an active sprint; the task joins its member list)
//   - sprint -> done (task must be a member of the active sprint)
//   - done -> sprint (task must be a member of the active sprint)
//
// Every other move is rejected with ErrInvalidTransition and leaves the board
// unchanged.
//
// # Sprints
//
// At most one sprint is active. Finalizing the active sprint attaches its
// retrospective, marks it completed and returns every unfinished task to the
// backlog.
package board
