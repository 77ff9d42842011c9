// Package ui provides the interactive terminal board.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/moonboard/internal/board"
)

// Service is the board API the TUI drives. *board.Repository satisfies it.
type Service interface {
	Load(ctx context.Context) error
	Warnings() []string
	Board() *board.Board
	AddTask(ctx context.Context, title string) (board.Task, error)
	EditTask(ctx context.Context, id string, fn func(t *board.Task) error) (board.Task, error)
	DeleteTask(ctx context.Context, id string) error
	MoveTask(ctx context.Context, id string, to board.Status) (board.MoveResult, error)
	StartSprint(ctx context.Context) (board.Sprint, error)
	CompleteSprint() (board.Sprint, error)
	FinalizeSprint(ctx context.Context, retro board.Retrospective) (board.FinalizeResult, error)
	SetSprintGoal(ctx context.Context, goal string) error
	RenameSprint(ctx context.Context, name string) error
}

// TUIOption configures the TUI behavior.
type TUIOption func(*model)

// WithClock overrides the clock used to date stand-ups.
func WithClock(now func() time.Time) TUIOption {
	return func(m *model) {
		m.now = now
	}
}

// WithWarnings sets a source of non-fatal failures, such as a hook that
// exited non-zero, to show in the status line.
func WithWarnings(drain func() []string) TUIOption {
	return func(m *model) {
		m.drainWarnings = drain
	}
}

// RunTUI loads the board and runs the interactive kanban until the user quits.
func RunTUI(ctx context.Context, svc Service, opts ...TUIOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	return runProgram(ctx, newModel(ctx, svc, opts...))
}

func runProgram(ctx context.Context, m *model) error {
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if fm, ok := finalModel.(*model); ok && fm.loadErr != nil {
		return fm.loadErr
	}
	return nil
}

type mode int

const (
	modeBoard mode = iota
	modePrompt
	modeConfirm
	modeTask
	modeRetro
)

// boardLoadedMsg reports the result of reading the board from storage.
type boardLoadedMsg struct {
	err    error
	reload bool
}

// prompt is a one-line question at the bottom of the board.
type prompt struct {
	label  string
	input  textinput.Model
	submit func(string) error
}

type model struct {
	ctx  context.Context
	svc  Service
	now  func() time.Time
	mode mode

	board   *board.Board
	loading bool
	loadErr error

	drainWarnings func() []string

	col      int
	rows     [3]int
	carrying string

	prompt    *prompt
	confirmID string
	editor    *taskEditor
	retro     *retroEditor

	status    string
	statusErr bool
	showHelp  bool
	width     int
	height    int
}

func newModel(ctx context.Context, svc Service, opts ...TUIOption) *model {
	m := &model{
		ctx:   ctx,
		svc:   svc,
		now:   time.Now,
		board: &board.Board{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return m.load(false)
}

// load reads the board off the update loop and reports back with a
// boardLoadedMsg. Keys other than quit are ignored until it arrives.
func (m *model) load(reload bool) tea.Cmd {
	m.loading = true
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		return boardLoadedMsg{err: svc.Load(ctx), reload: reload}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.handle(msg)
	m.showWarnings()
	return m, cmd
}

func (m *model) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case boardLoadedMsg:
		m.loaded(msg)
	case tea.KeyMsg:
		if m.loading {
			if s := msg.String(); s == "ctrl+c" || s == "q" {
				return tea.Quit
			}
			return nil
		}
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeTask:
			return m.updateTaskEditor(msg)
		case modeRetro:
			return m.updateRetro(msg)
		}
		return m.updateBoard(msg)
	}
	return nil
}

func (m *model) loaded(msg boardLoadedMsg) {
	m.loading = false
	if msg.err != nil {
		m.loadErr = msg.err
		return
	}
	m.loadErr = nil
	m.refresh()
	if w := m.svc.Warnings(); len(w) > 0 {
		m.setWarning(w)
	} else if msg.reload {
		m.setStatus("Board reloaded")
	}
}

// showWarnings moves pending warnings into the status line. The console log
// is hidden behind the alt screen.
func (m *model) showWarnings() {
	if m.drainWarnings == nil {
		return
	}
	if w := m.drainWarnings(); len(w) > 0 {
		m.setWarning(w)
	}
}

func (m *model) updateBoard(msg tea.KeyMsg) tea.Cmd {
	if m.loadErr != nil {
		switch msg.String() {
		case "ctrl+c", "q":
			return tea.Quit
		case "r", "f5":
			return m.load(true)
		}
		return nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "r", "f5":
		return m.load(true)
	case "left", "h":
		m.focusColumn(m.col - 1)
	case "right", "l":
		m.focusColumn(m.col + 1)
	case "1", "2", "3":
		m.focusColumn(int(msg.String()[0] - '1'))
	case "up", "k":
		m.moveRow(-1)
	case "down", "j":
		m.moveRow(1)
	case " ":
		m.pickOrDrop()
	case "esc":
		if m.carrying != "" {
			m.carrying = ""
			m.setStatus("Move cancelled")
		}
	case ">", "L":
		m.shift(1)
	case "<", "H":
		m.shift(-1)
	case "n", "a":
		m.ask("New magical goal", "", func(v string) error {
			t, err := m.svc.AddTask(m.ctx, v)
			if err != nil {
				return err
			}
			m.refresh()
			m.focusColumn(0)
			m.selectTask(t.ID)
			m.setStatus(fmt.Sprintf("Added %q to the grimoire", t.Title))
			return nil
		})
	case "enter", "e":
		if t := m.selected(); t != nil {
			m.editor = newTaskEditor(*t)
			m.mode = modeTask
		}
	case "d", "x":
		if t := m.selected(); t != nil {
			m.confirmID = t.ID
			m.mode = modeConfirm
		}
	case "s":
		s, err := m.svc.StartSprint(m.ctx)
		if err != nil {
			m.setError(fmt.Errorf("start sprint: %w", err))
			return nil
		}
		m.refresh()
		m.setStatus(fmt.Sprintf("%s has begun", s.Name))
	case "c":
		s, err := m.svc.CompleteSprint()
		if err != nil {
			m.setError(fmt.Errorf("complete sprint: %w", err))
			return nil
		}
		m.retro = &retroEditor{sprint: s}
		m.mode = modeRetro
	case "g":
		active := m.board.ActiveSprint()
		if active == nil {
			m.setError(board.ErrNoActiveSprint)
			return nil
		}
		m.ask("Sprint goal", active.Goal, func(v string) error {
			if err := m.svc.SetSprintGoal(m.ctx, v); err != nil {
				return err
			}
			m.refresh()
			m.setStatus("Goal updated")
			return nil
		})
	case "G":
		active := m.board.ActiveSprint()
		if active == nil {
			m.setError(board.ErrNoActiveSprint)
			return nil
		}
		m.ask("Sprint name", active.Name, func(v string) error {
			if err := m.svc.RenameSprint(m.ctx, v); err != nil {
				return err
			}
			m.refresh()
			m.setStatus("Sprint renamed")
			return nil
		})
	}
	return nil
}

func (m *model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		m.prompt = nil
		m.mode = modeBoard
	case tea.KeyEnter:
		p := m.prompt
		m.prompt = nil
		m.mode = modeBoard
		if err := p.submit(p.input.Value()); err != nil {
			m.setError(err)
		}
	default:
		var cmd tea.Cmd
		m.prompt.input, cmd = m.prompt.input.Update(msg)
		return cmd
	}
	return nil
}

func (m *model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	id := m.confirmID
	m.confirmID = ""
	back := modeBoard
	if m.editor != nil {
		back = modeTask
	}

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "y", "Y":
		if err := m.svc.DeleteTask(m.ctx, id); err != nil {
			m.mode = back
			m.setError(fmt.Errorf("delete task: %w", err))
			return nil
		}
		if m.carrying == id {
			m.carrying = ""
		}
		m.editor = nil
		m.mode = modeBoard
		m.refresh()
		m.setStatus("Goal banished")
	default:
		m.mode = back
		m.setStatus("Delete cancelled")
	}
	return nil
}

func (m *model) ask(label, initial string, submit func(string) error) {
	m.prompt = &prompt{label: label, input: newInput(initial, ""), submit: submit}
	m.mode = modePrompt
}

// refresh copies the current board and keeps the selection in range.
func (m *model) refresh() {
	m.board = m.svc.Board()
	for i := range m.rows {
		m.clampRow(i)
	}
}

func (m *model) column(i int) []board.Task {
	return m.board.Column(board.Statuses()[i])
}

func (m *model) clampRow(col int) {
	n := len(m.column(col))
	if m.rows[col] >= n {
		m.rows[col] = n - 1
	}
	if m.rows[col] < 0 {
		m.rows[col] = 0
	}
}

func (m *model) focusColumn(col int) {
	if col < 0 || col >= len(m.rows) {
		return
	}
	m.col = col
	m.clampRow(col)
}

func (m *model) moveRow(delta int) {
	m.rows[m.col] += delta
	m.clampRow(m.col)
}

// selected returns the task under the cursor, or nil for an empty column.
func (m *model) selected() *board.Task {
	tasks := m.column(m.col)
	if len(tasks) == 0 {
		return nil
	}
	t := tasks[m.rows[m.col]]
	return &t
}

func (m *model) selectTask(id string) {
	for i, t := range m.column(m.col) {
		if t.ID == id {
			m.rows[m.col] = i
			return
		}
	}
}

// pickOrDrop picks up the selected card, or drops the carried one into the
// focused column.
func (m *model) pickOrDrop() {
	if m.carrying == "" {
		if t := m.selected(); t != nil {
			m.carrying = t.ID
			m.setStatus(fmt.Sprintf("Carrying %q, choose a column and press space", t.Title))
		}
		return
	}
	id := m.carrying
	m.carrying = ""
	m.moveTo(id, board.Statuses()[m.col])
}

// shift moves the selected card one column left or right.
func (m *model) shift(delta int) {
	t := m.selected()
	if t == nil {
		return
	}
	target := m.col + delta
	if target < 0 || target >= len(m.rows) {
		return
	}
	if m.moveTo(t.ID, board.Statuses()[target]) {
		m.focusColumn(target)
		m.selectTask(t.ID)
	}
}

func (m *model) moveTo(id string, to board.Status) bool {
	res, err := m.svc.MoveTask(m.ctx, id, to)
	if err != nil {
		m.setError(err)
		return false
	}
	m.refresh()
	if res.Changed {
		m.setStatus(fmt.Sprintf("Moved to %s", columnTitles[to]))
	}
	return true
}

func (m *model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m *model) setWarning(w []string) {
	m.status = "Warning: " + strings.Join(w, "; ")
	m.statusErr = true
}

func (m *model) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.loading && m.loadErr == nil && len(m.board.Tasks) == 0 && len(m.board.Sprints) == 0 {
		b.WriteString(mutedStyle.Render("Summoning the board...") + "\n")
		return b.String()
	}

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Error loading board:") + "\n")
		for _, line := range strings.Split(m.loadErr.Error(), "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n" + mutedStyle.Render("Fix the stored data (see `moonboard doctor`), then press r to reload or q to quit") + "\n")
		return b.String()
	}

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}

	switch m.mode {
	case modeTask:
		b.WriteString(m.viewTaskEditor() + "\n")
		m.writeStatus(&b)
		return b.String()
	case modeRetro:
		b.WriteString(m.viewRetro() + "\n")
		m.writeStatus(&b)
		return b.String()
	}

	m.writeSprintBar(&b)
	m.writeColumns(&b)
	m.writeStatus(&b)
	m.writeFooter(&b)
	return b.String()
}

func writeTitle(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Scrum for Witches") + "  ")
	b.WriteString(subtitleStyle.Render("Plan Your Magic with Agile Focus") + "\n\n")
}

func (m *model) boardWidth() int {
	if m.width > 0 {
		return m.width
	}
	return 120
}

func (m *model) writeSprintBar(b *strings.Builder) {
	var s strings.Builder
	if active := m.board.ActiveSprint(); active != nil {
		s.WriteString(titleStyle.Render(active.Name))
		s.WriteString(mutedStyle.Render("  " + sprintDates(*active)))
		s.WriteString("\n" + active.Goal)
		s.WriteString("\n" + mutedStyle.Render("Move goals from the grimoire to plan your cycle. c: Full Moon Retrospective"))
	} else {
		s.WriteString(titleStyle.Render("No Active Moon Cycle"))
		s.WriteString("\n" + mutedStyle.Render("Start a new sprint to begin. s: New Moon Cycle"))
	}
	if n := len(m.board.CompletedSprints()); n > 0 {
		s.WriteString(mutedStyle.Render(fmt.Sprintf("\n%d completed cycle(s)", n)))
	}
	b.WriteString(sprintBarStyle.Width(m.boardWidth()-2).Render(s.String()) + "\n")
}

func sprintDates(s board.Sprint) string {
	start := shortDate(s.StartDate)
	if s.EndDate == "" {
		return "since " + start
	}
	return start + " to " + shortDate(s.EndDate)
}

func shortDate(v string) string {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format(board.DueDateLayout)
	}
	return v
}

func (m *model) writeColumns(b *strings.Builder) {
	width := m.boardWidth() / len(m.rows)
	if width < 24 {
		width = 24
	}

	cols := make([]string, 0, len(m.rows))
	for i, status := range board.Statuses() {
		tasks := m.column(i)
		var c strings.Builder
		c.WriteString(labelStyle.Render(fmt.Sprintf("%d %s (%d)", i+1, columnTitles[status], len(tasks))) + "\n")
		if len(tasks) == 0 {
			c.WriteString(mutedStyle.Render("nothing here yet") + "\n")
		}
		for j, t := range tasks {
			selected := i == m.col && j == m.rows[i]
			c.WriteString(renderCard(t, width-4, selected, t.ID == m.carrying) + "\n")
		}
		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		cols = append(cols, style.Width(width-2).Render(c.String()))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...) + "\n")
}

func (m *model) writeStatus(b *strings.Builder) {
	switch {
	case m.mode == modePrompt && m.prompt != nil:
		b.WriteString(labelStyle.Render(m.prompt.label+": ") + m.prompt.input.View() + "\n")
	case m.mode == modeConfirm:
		title := m.confirmID
		if t := m.board.GetTask(m.confirmID); t != nil {
			title = t.Title
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("Banish %q forever? (y/n)", title)) + "\n")
	case m.status != "" && m.statusErr:
		b.WriteString(errorStyle.Render(m.status) + "\n")
	case m.status != "":
		b.WriteString(okStyle.Render(m.status) + "\n")
	}
}

func (m *model) writeFooter(b *strings.Builder) {
	hint := "?: help | n: new | enter: open | space: pick up/drop | </>: move | d: delete | q: quit"
	if m.carrying != "" {
		hint = "h/l or 1-3: choose column | space: drop | esc: cancel"
	}
	b.WriteString(mutedStyle.Render(hint) + "\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c      Quit\n")
	b.WriteString("  ?              Toggle this help screen\n")
	b.WriteString("  r, F5          Reload the board from storage\n")
	b.WriteString("  h/l, 1-3       Focus a column\n")
	b.WriteString("  j/k            Select a card\n")
	b.WriteString("  space          Pick up a card, then drop it in another column\n")
	b.WriteString("  < >            Move the selected card one column\n")
	b.WriteString("  n              Add a goal to the grimoire\n")
	b.WriteString("  enter          Open the selected goal\n")
	b.WriteString("  d              Delete the selected goal\n")
	b.WriteString("  s              Start a new moon cycle\n")
	b.WriteString("  c              Complete the cycle with a retrospective\n")
	b.WriteString("  g / G          Edit the cycle goal / name\n\n")
	b.WriteString("Inside a goal: j/k move, enter edits, space toggles a step,\n")
	b.WriteString("x removes a step, h/l change priority, ctrl+s saves, esc discards.\n\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
