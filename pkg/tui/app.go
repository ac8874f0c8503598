package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/shtrace/pkg/protocol"
	"github.com/ormasoftchile/shtrace/pkg/session"
	"github.com/ormasoftchile/shtrace/pkg/source"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// --- Tea messages ---

// sessionEventMsg wraps one event from the session feed.
type sessionEventMsg struct{ ev session.Event }

// sessionClosedMsg signals the event feed has closed.
type sessionClosedMsg struct{}

// --- Model ---

// Model is the top-level Bubble Tea model for the debugger UI.
type Model struct {
	sess   *session.Session
	script string

	// Components
	src     sourcePane
	console outputPanel
	eval    evalPrompt
	status  statusBar
	spinner spinner.Model

	// Stack mirror. spans and resolvers run parallel to frames; the
	// resolvers carry fragment-match state across subshell statements.
	frames    []trace.Frame
	spans     []source.Span
	resolvers []*source.Resolver
	scripts   *source.Cache

	// State
	waiting   bool
	inputMode bool
	showHelp  bool
	quitting  bool
	exit      *session.ExitStatus

	// Layout
	width  int
	height int
	help   string // overlay content, re-rendered on resize
}

// NewModel builds the UI around a prepared session. script is the target
// path, shown in headers.
func NewModel(sess *session.Session, script string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	scripts := source.NewCache()
	return Model{
		sess:    sess,
		script:  script,
		src:     newSourcePane(scripts),
		console: newOutputPanel(),
		eval:    newEvalPrompt(),
		spinner: sp,
		scripts: scripts,
	}
}

type runResult struct {
	status session.ExitStatus
	err    error
}

// Run starts the session and serves the UI until the operator leaves,
// returning the child's exit status.
func Run(sess *session.Session, script string) (session.ExitStatus, error) {
	res := make(chan runResult, 1)
	go func() {
		status, err := sess.Run(context.Background())
		res <- runResult{status, err}
	}()

	p := tea.NewProgram(NewModel(sess, script), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return abandon(sess, res), err
	}
	r := <-res
	return r.status, r.err
}

// abandon ends a session whose UI never took over or fell over. The feed
// keeps draining so the session loop cannot wedge on a full event buffer,
// then the child is killed and reaped.
func abandon(sess *session.Session, res <-chan runResult) session.ExitStatus {
	go func() {
		for range sess.Events() {
		}
	}()
	sess.Quit()
	r := <-res
	return r.status
}

// Init returns the initial commands: start the spinner and listen for
// session events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listen(),
	)
}

// listen returns a command that waits for the next session event.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sess.Events()
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{ev: ev}
	}
}

// Update processes messages and returns the updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case sessionEventMsg:
		cmds = append(cmds, m.applyEvent(msg.ev)...)
		// Keep listening for more events
		cmds = append(cmds, m.listen())

	case sessionClosedMsg:
		if m.quitting {
			return m, tea.Quit
		}
	}

	return m, tea.Batch(cmds...)
}

// applyEvent folds one session event into the model.
func (m *Model) applyEvent(ev session.Event) []tea.Cmd {
	switch ev := ev.(type) {
	case session.OutputEvent:
		mode := modeStdout
		if ev.Stderr {
			mode = modeStderr
		}
		m.console.Append(mode, ev.Text)

	case session.DiagEvent:
		m.console.Append(modeDiag, ev.Text+"\n")

	case session.TraceEvent:
		m.applyTrace(ev)

	case session.ExitedEvent:
		status := ev.Status
		m.exit = &status
		m.waiting = false
		m.inputMode = false
		m.console.End()
		m.console.Append(modeDiag, status.Describe()+"\n")
		if m.quitting {
			return []tea.Cmd{tea.Quit}
		}
	}
	return nil
}

// applyTrace mirrors the new stack shape and resolves the executing
// statement's span. Only the top frame's statement changed, so only its
// span is re-resolved; caller spans keep their call-site resolution.
func (m *Model) applyTrace(ev session.TraceEvent) {
	// A new statement takes the keyboard back from input mode.
	m.inputMode = false
	if len(ev.Frames) == 0 {
		return
	}
	if len(m.resolvers) > len(ev.Frames) {
		m.resolvers = m.resolvers[:len(ev.Frames)]
		m.spans = m.spans[:len(ev.Frames)]
	}
	for len(m.resolvers) < len(ev.Frames) {
		f := ev.Frames[len(m.resolvers)]
		script, _ := m.scripts.Get(f.Script)
		m.resolvers = append(m.resolvers, source.NewResolver(script))
		m.spans = append(m.spans, source.Span{})
	}
	top := len(ev.Frames) - 1
	f := ev.Frames[top]
	m.spans[top] = m.resolvers[top].Resolve(f.Line, f.Command, f.Subshell)
	m.frames = ev.Frames
	m.waiting = ev.Waiting
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	// Eval prompt active: route all input there
	if m.eval.IsActive() {
		expr, done, cmd := m.eval.Update(msg)
		if done && expr != "" {
			return m, m.stepCmd(protocol.Eval(expr))
		}
		return m, cmd
	}

	// Input mode: keys go to the child's stdin
	if m.inputMode {
		if msg.String() == "esc" {
			m.inputMode = false
			return m, nil
		}
		if b := keyBytes(msg); len(b) > 0 {
			m.console.Append(modeStdout, string(b)) // local echo
			return m, m.inputCmd(b)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		if m.exit != nil {
			return m, tea.Quit
		}
		m.quitting = true
		return m, m.quitCmd()

	case key.Matches(msg, keys.Help):
		m.showHelp = true

	case key.Matches(msg, keys.PgUp):
		m.console.PageUp()

	case key.Matches(msg, keys.PgDown):
		m.console.PageDown()

	case key.Matches(msg, keys.Pause):
		if m.exit == nil {
			return m, m.pauseCmd()
		}

	case key.Matches(msg, keys.Continue):
		if m.exit == nil {
			m.waiting = false
			return m, m.continueCmd()
		}

	case key.Matches(msg, keys.Advance):
		if m.waiting {
			m.waiting = false
			return m, m.stepCmd(protocol.Advance)
		}

	case key.Matches(msg, keys.Skip):
		if m.waiting {
			m.waiting = false
			return m, m.stepCmd(protocol.Skip)
		}

	case key.Matches(msg, keys.Return):
		if m.waiting {
			m.waiting = false
			return m, m.stepCmd(protocol.Return)
		}

	case key.Matches(msg, keys.Eval):
		if m.waiting {
			m.eval.Open()
		}

	case key.Matches(msg, keys.Input):
		if m.exit == nil {
			m.inputMode = true
		}
	}

	return m, nil
}

// --- Session commands. Sent from command goroutines so the render loop
// never blocks on the session. ---

func (m Model) stepCmd(st protocol.Step) tea.Cmd {
	return func() tea.Msg { m.sess.Step(st); return nil }
}

func (m Model) pauseCmd() tea.Cmd {
	return func() tea.Msg { m.sess.Pause(); return nil }
}

func (m Model) continueCmd() tea.Cmd {
	return func() tea.Msg { m.sess.Continue(); return nil }
}

func (m Model) quitCmd() tea.Cmd {
	return func() tea.Msg { m.sess.Quit(); return nil }
}

func (m Model) inputCmd(b []byte) tea.Cmd {
	return func() tea.Msg { m.sess.WriteInput(b); return nil }
}

// keyBytes translates a key press to the bytes forwarded in input mode.
func keyBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeyEnter:
		return []byte("\n")
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyCtrlC:
		return []byte{0x03}
	case tea.KeyCtrlD:
		return []byte{0x04}
	}
	return nil
}

// layoutPanels recalculates pane dimensions from the terminal size.
func (m *Model) layoutPanels() {
	if m.width == 0 || m.height == 0 {
		return
	}
	mainH := m.height - 1 // status line
	if mainH < 8 {
		mainH = 8
	}
	consoleH := mainH * 2 / 5
	if consoleH < 6 {
		consoleH = 6
	}
	srcH := mainH - consoleH
	m.src.SetSize(m.width, srcH)
	m.console.SetSize(m.width, consoleH)
	m.status.width = m.width

	contentW := m.width - 12
	if contentW > 72 {
		contentW = 72
	}
	if contentW < 30 {
		contentW = 30
	}
	m.help = renderHelpBox(contentW)
}

// View renders the complete UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Starting shtrace..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	bottom := m.eval.View()
	if bottom == "" {
		bottom = m.status.View(m.spinner.View(), m.frames, m.exit, m.inputMode, m.waiting)
	}

	return m.src.View(m.frames, m.spans) + "\n" +
		m.console.View() + "\n" +
		bottom
}

// renderHelp renders the help overlay centered on the screen.
func (m Model) renderHelp() string {
	box := overlayBorder.Render(m.help)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
