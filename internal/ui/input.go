package ui

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
)

// newInput returns a focused single-line editor holding initial with the
// cursor at the end. The cursor does not blink, so the model never has to
// schedule blink ticks.
func newInput(initial, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.Cursor.Style = cursorStyle
	in.Cursor.SetMode(cursor.CursorStatic)
	in.SetValue(initial)
	in.CursorEnd()
	in.Focus()
	return in
}
