package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all TUI key bindings.
type keyMap struct {
	Advance  key.Binding
	Skip     key.Binding
	Return   key.Binding
	Continue key.Binding
	Pause    key.Binding
	Eval     key.Binding
	Input    key.Binding
	Help     key.Binding
	Quit     key.Binding
	PgUp     key.Binding
	PgDown   key.Binding
}

var keys = keyMap{
	Advance: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next"),
	),
	Skip: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "skip"),
	),
	Return: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "return"),
	),
	Continue: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "continue"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Eval: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "eval"),
	),
	Input: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "input"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "scroll up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "scroll down"),
	),
}

func hint(k, desc string) string {
	return keyStyle.Render(k) + keyDescStyle.Render(":"+desc)
}

// keyBarText renders the context-sensitive key hint string.
func keyBarText(exited, inputMode, waiting bool) string {
	if exited {
		return hint("q", "quit")
	}
	if inputMode {
		return inputModeStyle.Render("INPUT MODE") + "  " + hint("esc", "leave")
	}
	if waiting {
		return hint("n", "next") + "  " +
			hint("c", "continue") + "  " +
			hint("s", "skip") + "  " +
			hint("r", "return") + "  " +
			hint("e", "eval") + "  " +
			hint("i", "input") + "  " +
			hint("q", "quit") + "  " +
			hint("?", "help")
	}
	return hint("p", "pause") + "  " +
		hint("i", "input") + "  " +
		hint("q", "quit") + "  " +
		hint("?", "help")
}
