package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/moonboard/internal/board"
)

type fieldKind int

const (
	fieldTitle fieldKind = iota
	fieldRole
	fieldAction
	fieldGoal
	fieldPriority
	fieldDueDate
	fieldChecklistItem
	fieldChecklistAdd
	fieldStandupYesterday
	fieldStandupToday
	fieldStandupBlockers
	fieldStandupAdd
)

var fieldLabels = map[fieldKind]string{
	fieldTitle:            "Title",
	fieldRole:             "As a...",
	fieldAction:           "I want to...",
	fieldGoal:             "So that I can...",
	fieldPriority:         "Priority",
	fieldDueDate:          "Due date",
	fieldChecklistAdd:     "+ Add a completion step",
	fieldStandupYesterday: "What did I do yesterday?",
	fieldStandupToday:     "What will I do today?",
	fieldStandupBlockers:  "What's blocking me?",
	fieldStandupAdd:       "+ Log stand-up",
}

var priorityCycle = []board.Priority{"", board.PriorityLow, board.PriorityMedium, board.PriorityHigh}

type modalRow struct {
	kind   fieldKind
	itemID string
}

// taskEditor holds an unsaved copy of a task. Nothing reaches the board
// until the editor is saved.
type taskEditor struct {
	draft   board.Task
	focus   int
	editing bool
	input   textinput.Model

	yesterday string
	today     string
	blockers  string
}

func newTaskEditor(t board.Task) *taskEditor {
	return &taskEditor{draft: t.Clone()}
}

// rows lists the focusable rows. Stand-up rows only exist for sprint tasks.
func (e *taskEditor) rows() []modalRow {
	rows := []modalRow{
		{kind: fieldTitle},
		{kind: fieldRole},
		{kind: fieldAction},
		{kind: fieldGoal},
		{kind: fieldPriority},
		{kind: fieldDueDate},
	}
	for _, item := range e.draft.DefinitionOfDone {
		rows = append(rows, modalRow{kind: fieldChecklistItem, itemID: item.ID})
	}
	rows = append(rows, modalRow{kind: fieldChecklistAdd})
	if e.draft.Status == board.StatusSprint {
		rows = append(rows,
			modalRow{kind: fieldStandupYesterday},
			modalRow{kind: fieldStandupToday},
			modalRow{kind: fieldStandupBlockers},
			modalRow{kind: fieldStandupAdd},
		)
	}
	return rows
}

func (e *taskEditor) current() modalRow {
	rows := e.rows()
	if e.focus >= len(rows) {
		e.focus = len(rows) - 1
	}
	if e.focus < 0 {
		e.focus = 0
	}
	return rows[e.focus]
}

func (e *taskEditor) move(delta int) {
	e.focus += delta
	e.current()
}

// value returns the text a row edits.
func (e *taskEditor) value(row modalRow) string {
	switch row.kind {
	case fieldTitle:
		return e.draft.Title
	case fieldRole:
		return e.draft.Role
	case fieldAction:
		return e.draft.Action
	case fieldGoal:
		return e.draft.Goal
	case fieldDueDate:
		if e.draft.DueDate != nil {
			return *e.draft.DueDate
		}
	case fieldChecklistItem:
		for _, item := range e.draft.DefinitionOfDone {
			if item.ID == row.itemID {
				return item.Text
			}
		}
	case fieldStandupYesterday:
		return e.yesterday
	case fieldStandupToday:
		return e.today
	case fieldStandupBlockers:
		return e.blockers
	}
	return ""
}

func (e *taskEditor) beginEdit() {
	e.input = newInput(e.value(e.current()), "")
	e.editing = true
}

// commit stores the edited value into the draft.
func (e *taskEditor) commit(v string) error {
	e.editing = false
	row := e.current()
	switch row.kind {
	case fieldTitle:
		e.draft.Title = v
	case fieldRole:
		e.draft.Role = v
	case fieldAction:
		e.draft.Action = v
	case fieldGoal:
		e.draft.Goal = v
	case fieldDueDate:
		return e.draft.SetDueDate(v)
	case fieldChecklistItem:
		return e.draft.EditChecklistItem(row.itemID, v)
	case fieldChecklistAdd:
		if _, err := e.draft.AddChecklistItem(v); err != nil {
			return err
		}
		// Keep focus on the add row so several steps can be entered in a row.
		e.focus++
	case fieldStandupYesterday:
		e.yesterday = v
	case fieldStandupToday:
		e.today = v
	case fieldStandupBlockers:
		e.blockers = v
	}
	return nil
}

func (e *taskEditor) cyclePriority(delta int) {
	idx := 0
	for i, p := range priorityCycle {
		if p == e.draft.Priority {
			idx = i
		}
	}
	idx = (idx + delta + len(priorityCycle)) % len(priorityCycle)
	e.draft.Priority = priorityCycle[idx]
}

func (e *taskEditor) addStandup(date string) error {
	if _, err := e.draft.AddStandup(date, e.yesterday, e.today, e.blockers); err != nil {
		return err
	}
	e.yesterday, e.today, e.blockers = "", "", ""
	return nil
}

func (e *taskEditor) removeFocusedItem() error {
	row := e.current()
	if row.kind != fieldChecklistItem {
		return nil
	}
	if err := e.draft.RemoveChecklistItem(row.itemID); err != nil {
		return err
	}
	e.current()
	return nil
}

func (e *taskEditor) toggleFocusedItem() error {
	row := e.current()
	if row.kind != fieldChecklistItem {
		return nil
	}
	return e.draft.ToggleChecklistItem(row.itemID)
}

func (m *model) updateTaskEditor(msg tea.KeyMsg) tea.Cmd {
	e := m.editor
	if e.editing {
		switch msg.Type {
		case tea.KeyEnter:
			if err := e.commit(e.input.Value()); err != nil {
				m.setError(err)
			}
		case tea.KeyEsc:
			e.editing = false
		default:
			var cmd tea.Cmd
			e.input, cmd = e.input.Update(msg)
			return cmd
		}
		return nil
	}

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc":
		m.editor = nil
		m.mode = modeBoard
		m.setStatus("Changes discarded")
	case "ctrl+s":
		m.saveEditor()
	case "ctrl+d":
		m.confirmID = e.draft.ID
		m.mode = modeConfirm
	case "up", "k", "shift+tab":
		e.move(-1)
	case "down", "j", "tab":
		e.move(1)
	case "left", "h":
		if e.current().kind == fieldPriority {
			e.cyclePriority(-1)
		}
	case "right", "l":
		if e.current().kind == fieldPriority {
			e.cyclePriority(1)
		}
	case " ":
		if err := e.toggleFocusedItem(); err != nil {
			m.setError(err)
		}
	case "x", "delete":
		if err := e.removeFocusedItem(); err != nil {
			m.setError(err)
		}
	case "enter":
		switch e.current().kind {
		case fieldPriority:
			e.cyclePriority(1)
		case fieldStandupAdd:
			if err := e.addStandup(m.now().Format(board.DueDateLayout)); err != nil {
				m.setError(fmt.Errorf("log stand-up: %w", err))
			} else {
				m.setStatus("Stand-up added, ctrl+s saves it")
			}
		default:
			e.beginEdit()
		}
	}
	return nil
}

func (m *model) saveEditor() {
	draft := m.editor.draft.Clone()
	saved, err := m.svc.EditTask(m.ctx, draft.ID, func(t *board.Task) error {
		*t = draft
		return nil
	})
	if err != nil {
		m.setError(fmt.Errorf("save task: %w", err))
		return
	}
	m.editor = nil
	m.mode = modeBoard
	m.refresh()
	m.setStatus(fmt.Sprintf("Saved %q", saved.Title))
}

func (m *model) viewTaskEditor() string {
	e := m.editor
	focused := e.current()
	var b strings.Builder

	line := func(idx int, label, text string) {
		marker := "  "
		if idx == e.focus {
			marker = "> "
		}
		if idx == e.focus && e.editing {
			text = e.input.View()
		}
		b.WriteString(marker + label + text + "\n")
	}

	rows := e.rows()
	for i, row := range rows {
		switch row.kind {
		case fieldTitle:
			b.WriteString(labelStyle.Render("Goal") + "\n")
			line(i, "", titleStyle.Render(orPlaceholder(e.draft.Title, "Goal Title")))
		case fieldRole, fieldAction, fieldGoal:
			if row.kind == fieldRole {
				b.WriteString("\n" + labelStyle.Render("The Witch's Story") + "\n")
			}
			line(i, fmt.Sprintf("%-17s", fieldLabels[row.kind]), orPlaceholder(e.value(row), "..."))
		case fieldPriority:
			b.WriteString("\n")
			var opts []string
			for _, p := range priorityCycle[1:] {
				label := priorityLabel(p)
				if p == e.draft.Priority {
					label = priorityStyle(p).Render("[" + label + "]")
				} else {
					label = mutedStyle.Render(" " + label + " ")
				}
				opts = append(opts, label)
			}
			line(i, fmt.Sprintf("%-17s", fieldLabels[row.kind]), strings.Join(opts, " "))
		case fieldDueDate:
			line(i, fmt.Sprintf("%-17s", fieldLabels[row.kind]), orPlaceholder(e.value(row), "YYYY-MM-DD"))
		case fieldChecklistItem:
			if i == 6 {
				b.WriteString("\n" + labelStyle.Render("Definition of Done") + "\n")
			}
			box := "[ ]"
			for _, item := range e.draft.DefinitionOfDone {
				if item.ID == row.itemID && item.Completed {
					box = okStyle.Render("[x]")
				}
			}
			line(i, box+" ", e.value(row))
		case fieldChecklistAdd:
			if len(e.draft.DefinitionOfDone) == 0 {
				b.WriteString("\n" + labelStyle.Render("Definition of Done") + "\n")
			}
			line(i, "", mutedStyle.Render(fieldLabels[row.kind]))
		case fieldStandupYesterday, fieldStandupToday, fieldStandupBlockers:
			if row.kind == fieldStandupYesterday {
				b.WriteString("\n" + labelStyle.Render("Daily Stand-up") + "\n")
			}
			line(i, fmt.Sprintf("%-27s", fieldLabels[row.kind]), e.value(row))
		case fieldStandupAdd:
			line(i, "", mutedStyle.Render(fieldLabels[row.kind]))
		}
	}

	if len(e.draft.DailyStandups) > 0 {
		b.WriteString("\n" + labelStyle.Render("Stand-up log") + "\n")
		for _, s := range e.draft.DailyStandups {
			b.WriteString(mutedStyle.Render(s.Date) + "\n")
			if s.Yesterday != "" {
				b.WriteString("  yesterday: " + s.Yesterday + "\n")
			}
			b.WriteString("  today: " + s.Today + "\n")
			if s.Blockers != "" {
				b.WriteString("  blockers: " + s.Blockers + "\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(editorHint(focused.kind, e.editing)))
	return modalStyle.Render(b.String())
}

func editorHint(kind fieldKind, editing bool) string {
	if editing {
		return "enter: keep | esc: cancel edit"
	}
	hint := "j/k: move | enter: edit | ctrl+s: save | esc: discard | ctrl+d: delete"
	switch kind {
	case fieldPriority:
		hint = "h/l: change priority | " + hint
	case fieldChecklistItem:
		hint = "space: toggle | x: remove | " + hint
	}
	return hint
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return mutedStyle.Render(placeholder)
	}
	return s
}

// retroEditor captures the three retrospective answers for the sprint
// being completed.
type retroEditor struct {
	sprint  board.Sprint
	answers [3]string
	focus   int
	editing bool
	input   textinput.Model
}

var retroQuestions = [3]string{
	"What went well this cycle?",
	"What didn't go well?",
	"What will I do differently next cycle?",
}

func (r *retroEditor) retrospective() board.Retrospective {
	return board.Retrospective{
		WhatWentWell:    r.answers[0],
		WhatDidntGoWell: r.answers[1],
		DoDifferently:   r.answers[2],
	}
}

func (m *model) updateRetro(msg tea.KeyMsg) tea.Cmd {
	r := m.retro
	if r.editing {
		switch msg.Type {
		case tea.KeyEnter:
			r.answers[r.focus] = r.input.Value()
			r.editing = false
		case tea.KeyEsc:
			r.editing = false
		default:
			var cmd tea.Cmd
			r.input, cmd = r.input.Update(msg)
			return cmd
		}
		return nil
	}

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc":
		m.retro = nil
		m.mode = modeBoard
		m.setStatus("Retrospective cancelled, the moon cycle is still active")
	case "up", "k", "shift+tab":
		if r.focus > 0 {
			r.focus--
		}
	case "down", "j", "tab":
		if r.focus < len(r.answers) {
			r.focus++
		}
	case "ctrl+s":
		m.finalizeSprint()
	case "enter":
		if r.focus == len(r.answers) {
			m.finalizeSprint()
			return nil
		}
		r.input = newInput(r.answers[r.focus], "...")
		r.editing = true
	}
	return nil
}

func (m *model) finalizeSprint() {
	res, err := m.svc.FinalizeSprint(m.ctx, m.retro.retrospective())
	if err != nil {
		m.setError(fmt.Errorf("complete sprint: %w", err))
		return
	}
	m.retro = nil
	m.mode = modeBoard
	m.refresh()
	returned := len(res.Reverted) + len(res.Orphaned)
	m.setStatus(fmt.Sprintf("%s completed, %d unfinished goal(s) returned to the grimoire", res.Sprint.Name, returned))
}

func (m *model) viewRetro() string {
	r := m.retro
	var b strings.Builder
	b.WriteString(titleStyle.Render("Full Moon Retrospective: "+r.sprint.Name) + "\n\n")
	for i, q := range retroQuestions {
		marker := "  "
		if i == r.focus {
			marker = "> "
		}
		b.WriteString(marker + labelStyle.Render(q) + "\n")
		answer := r.answers[i]
		if i == r.focus && r.editing {
			answer = r.input.View()
		} else if answer == "" {
			answer = mutedStyle.Render("...")
		}
		b.WriteString("    " + answer + "\n\n")
	}
	marker := "  "
	if r.focus == len(r.answers) {
		marker = "> "
	}
	b.WriteString(marker + okStyle.Render("Complete Retrospective") + "\n\n")
	if r.editing {
		b.WriteString(mutedStyle.Render("enter: keep | esc: cancel edit"))
	} else {
		b.WriteString(mutedStyle.Render("j/k: move | enter: edit | ctrl+s: complete | esc: cancel"))
	}
	return modalStyle.Render(b.String())
}
