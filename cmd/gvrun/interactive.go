package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/genvalue/engine"
	"github.com/wippyai/genvalue/generic"
)

type screen int

const (
	screenPick screen = iota
	screenArgs
	screenResult
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Call key.Binding
	Next key.Binding
	Back key.Binding
	Quit key.Binding

	screen screen
}

func newKeyMap() *keyMap {
	return &keyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Call: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "call")),
		Next: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k *keyMap) ShortHelp() []key.Binding {
	switch k.screen {
	case screenArgs:
		return []key.Binding{k.Next, k.Call, k.Back}
	case screenResult:
		return []key.Binding{k.Back, k.Quit}
	default:
		return []key.Binding{k.Up, k.Down, k.Call, k.Quit}
	}
}

func (k *keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// tui lets the user pick an export, type one argument per parameter and
// see the formatted results or the fault trace.
type tui struct {
	cfg      *fileConfig
	filename string
	session  *session
	loadErr  error

	keys   *keyMap
	help   help.Model
	funcs  []engine.Function
	cursor int
	inputs []textinput.Model
	focus  int

	callErr error
	output  string
}

type sessionMsg struct {
	session *session
	err     error
}

type resultMsg struct {
	output string
	err    error
}

func newTUI(filename string, cfg *fileConfig) *tui {
	return &tui{
		cfg:      cfg,
		filename: filename,
		keys:     newKeyMap(),
		help:     help.New(),
	}
}

func (m *tui) Init() tea.Cmd {
	return func() tea.Msg {
		s, err := openSession(context.Background(), m.filename, m.cfg)
		return sessionMsg{session: s, err: err}
	}
}

func (m *tui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		m.session, m.loadErr = msg.session, msg.err
		if m.session != nil {
			m.funcs = m.session.instance.Exports()
		}
		return m, nil

	case resultMsg:
		m.output, m.callErr = msg.output, msg.err
		m.keys.screen = screenResult
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (m.keys.screen != screenArgs && key.Matches(msg, m.keys.Quit)) {
			return m, tea.Quit
		}
	}

	switch m.keys.screen {
	case screenArgs:
		return m.updateArgs(msg)
	case screenResult:
		return m.updateResult(msg)
	default:
		return m.updatePick(msg)
	}
}

func (m *tui) updatePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok || len(m.funcs) == 0 {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(k, m.keys.Down):
		m.cursor = min(m.cursor+1, len(m.funcs)-1)
	case key.Matches(k, m.keys.Call):
		m.inputs = argInputs(m.funcs[m.cursor])
		m.focus = 0
		if len(m.inputs) == 0 {
			return m, m.call()
		}
		m.keys.screen = screenArgs
	}
	return m, nil
}

func (m *tui) updateArgs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Back):
			m.keys.screen = screenPick
			m.inputs = nil
			return m, nil
		case key.Matches(k, m.keys.Call):
			return m, m.call()
		case key.Matches(k, m.keys.Next):
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *tui) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && (key.Matches(k, m.keys.Back) || key.Matches(k, m.keys.Call)) {
		m.keys.screen = screenPick
		m.output, m.callErr = "", nil
	}
	return m, nil
}

func argInputs(fn engine.Function) []textinput.Model {
	inputs := make([]textinput.Model, len(fn.Params))
	for i, t := range fn.Params {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("%d %s> ", i, t)
		in.Placeholder = "0"
		in.Width = 32
		inputs[i] = in
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return inputs
}

// argList renders the inputs in -args syntax so both modes share a parser.
func argList(fn engine.Function, inputs []textinput.Model) string {
	items := make([]string, len(inputs))
	for i, in := range inputs {
		items[i] = fn.Params[i].String() + ":" + in.Value()
	}
	return strings.Join(items, ",")
}

func (m *tui) call() tea.Cmd {
	fn := m.funcs[m.cursor]
	args := argList(fn, m.inputs)
	s, report := m.session, m.cfg.Report
	return func() tea.Msg {
		results, err := s.call(context.Background(), fn.Name, args, report)
		if err != nil {
			return resultMsg{err: err}
		}
		defer releaseAll(results)
		if len(results) == 0 {
			return resultMsg{output: "(no results)"}
		}
		lines := make([]string, len(results))
		for i, v := range results {
			lines[i] = generic.Format(v.Ref())
		}
		return resultMsg{output: strings.Join(lines, "\n")}
	}
}

func (m *tui) View() string {
	switch {
	case m.loadErr != nil:
		return errorStyle.Render("Error: "+m.loadErr.Error()) + "\n\n" + helpStyle.Render("q quit")
	case m.session == nil:
		return "Loading " + m.filename + "..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("gvrun") + " " + m.filename + "\n\n")
	p := &printer{styled: true}

	switch m.keys.screen {
	case screenPick:
		if len(m.funcs) == 0 {
			b.WriteString("No exported function has a numeric signature.\n")
			break
		}
		for i, fn := range m.funcs {
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> "+fn.String()) + "\n")
			} else {
				b.WriteString("  " + p.signature(fn) + "\n")
			}
		}

	case screenArgs:
		fn := m.funcs[m.cursor]
		b.WriteString("Arguments for " + funcStyle.Render(fn.Name) + "\n\n")
		for _, in := range m.inputs {
			b.WriteString(in.View() + "\n")
		}

	case screenResult:
		fn := m.funcs[m.cursor]
		b.WriteString(funcStyle.Render(fn.Name) + " returned\n\n")
		if m.callErr != nil {
			var out strings.Builder
			(&printer{w: &out, styled: true}).failure(m.callErr)
			b.WriteString(out.String())
		} else {
			b.WriteString(resultStyle.Render(m.output) + "\n")
		}
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func runInteractive(filename string, cfg *fileConfig) error {
	m := newTUI(filename, cfg)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if m.session != nil {
		m.session.close(context.Background())
	}
	return err
}
