package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// evalPrompt is the single-line expression input shown in place of the
// status bar while composing an eval.
type evalPrompt struct {
	active bool
	input  textinput.Model
}

func newEvalPrompt() evalPrompt {
	ti := textinput.New()
	ti.Placeholder = "expression"
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "eval> "
	ti.PromptStyle = evalPromptStyle
	return evalPrompt{input: ti}
}

// Open activates the prompt and focuses the text input.
func (e *evalPrompt) Open() {
	e.active = true
	e.input.Reset()
	e.input.Focus()
}

// Close deactivates the prompt.
func (e *evalPrompt) Close() {
	e.active = false
	e.input.Blur()
}

// IsActive returns whether the prompt is accepting input.
func (e *evalPrompt) IsActive() bool {
	return e.active
}

// Update handles key events while the prompt is active. It returns the
// committed expression on Enter; Esc and an empty Enter cancel.
func (e *evalPrompt) Update(msg tea.KeyMsg) (expr string, done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		e.Close()
		return "", true, nil
	case "enter":
		expr = e.input.Value()
		e.Close()
		return expr, true, nil
	}

	var c tea.Cmd
	e.input, c = e.input.Update(msg)
	return "", false, c
}

// View renders the prompt line.
func (e *evalPrompt) View() string {
	if !e.active {
		return ""
	}
	return e.input.View()
}
