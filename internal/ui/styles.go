package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/moonboard/internal/board"
)

var (
	amber  = lipgloss.Color("#FDE68A")
	purple = lipgloss.Color("#A78BFA")
	slate  = lipgloss.Color("#94A3B8")
	dim    = lipgloss.Color("#475569")
	red    = lipgloss.Color("#EF4444")
	yellow = lipgloss.Color("#EAB308")
	sky    = lipgloss.Color("#0EA5E9")
	green  = lipgloss.Color("#22C55E")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(amber)
	subtitleStyle = lipgloss.NewStyle().Foreground(purple)
	mutedStyle    = lipgloss.NewStyle().Foreground(slate)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	okStyle       = lipgloss.NewStyle().Foreground(green)
	labelStyle    = lipgloss.NewStyle().Foreground(purple).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)

	sprintBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Padding(0, 1)

	activeColumnStyle = columnStyle.BorderForeground(purple)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(dim).
			Padding(0, 1)

	selectedCardStyle = cardStyle.BorderForeground(amber)
	carriedCardStyle  = cardStyle.BorderForeground(purple).BorderStyle(lipgloss.DoubleBorder())

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(1, 2)
)

// columnTitles are the display names of the three columns.
var columnTitles = map[board.Status]string{
	board.StatusBacklog: "Master Grimoire of Goals",
	board.StatusSprint:  "This Moon's Magic",
	board.StatusDone:    "Rituals Complete",
}

func priorityStyle(p board.Priority) lipgloss.Style {
	switch p {
	case board.PriorityHigh:
		return lipgloss.NewStyle().Foreground(red).Bold(true)
	case board.PriorityMedium:
		return lipgloss.NewStyle().Foreground(yellow)
	case board.PriorityLow:
		return lipgloss.NewStyle().Foreground(sky)
	}
	return mutedStyle
}

func priorityLabel(p board.Priority) string {
	if p == "" {
		return "none"
	}
	return string(p)
}

// progressBar renders a fixed-width bar for a 0-100 percentage.
func progressBar(percent float64, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(purple).Render(bar)
}

// renderCard draws one task card. The progress bar only appears outside the
// backlog and only when the checklist has items.
func renderCard(t board.Task, width int, selected, carried bool) string {
	inner := width - 4
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(t.Title, inner)))
	if t.Priority != "" || t.DueDate != nil {
		b.WriteString("\n")
		var meta []string
		if t.Priority != "" {
			meta = append(meta, priorityStyle(t.Priority).Render(strings.ToUpper(string(t.Priority))))
		}
		if t.DueDate != nil {
			meta = append(meta, mutedStyle.Render("due "+*t.DueDate))
		}
		b.WriteString(strings.Join(meta, " "))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(lipgloss.NewStyle().Width(inner).Render(t.Story())))

	completed, total := t.ChecklistCounts()
	if t.Status != board.StatusBacklog && total > 0 {
		label := fmt.Sprintf(" %d/%d", completed, total)
		b.WriteString("\n")
		b.WriteString(progressBar(t.Progress(), inner-len(label)))
		b.WriteString(mutedStyle.Render(label))
	}

	style := cardStyle
	switch {
	case carried:
		style = carriedCardStyle
	case selected:
		style = selectedCardStyle
	}
	return style.Width(width - 2).Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
