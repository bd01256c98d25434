package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/genvalue/engine"
	"github.com/wippyai/genvalue/generic"
	"github.com/wippyai/genvalue/trace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	frameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// printer writes results, styled when the output is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(f *os.File) *printer {
	return &printer{w: f, styled: term.IsTerminal(int(f.Fd()))}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) exports(fns []engine.Function) {
	fmt.Fprintln(p.w, "Exported functions:")
	for _, fn := range fns {
		fmt.Fprintf(p.w, "  %s\n", p.signature(fn))
	}
}

func (p *printer) signature(fn engine.Function) string {
	params := make([]string, len(fn.Params))
	for i, t := range fn.Params {
		params[i] = p.render(typeStyle, t.String())
	}
	s := p.render(funcStyle, fn.Name) + "(" + strings.Join(params, ", ") + ")"
	if len(fn.Results) > 0 {
		results := make([]string, len(fn.Results))
		for i, t := range fn.Results {
			results[i] = p.render(typeStyle, t.String())
		}
		s += " -> " + strings.Join(results, ", ")
	}
	return s
}

func (p *printer) results(values []*generic.Value) {
	if len(values) == 0 {
		fmt.Fprintln(p.w, p.render(resultStyle, "(no results)"))
		return
	}
	for _, v := range values {
		fmt.Fprintln(p.w, p.render(resultStyle, generic.Format(v.Ref())))
	}
}

// formatTrace renders a stack trace, styling the label and frames.
func formatTrace(st *trace.StackTrace, styled bool) string {
	if !styled {
		return st.String()
	}
	var b strings.Builder
	if st.Label != nil {
		b.WriteString("\n" + labelStyle.Render("@ "+strings.TrimSpace(*st.Label)) + "\n\n")
	}
	for i := len(st.Frames) - 1; i >= 0; i-- {
		b.WriteString(frameStyle.Render(st.Frames[i].String()))
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// failure prints err, with the stack trace when it is a checker fault.
func (p *printer) failure(err error) {
	var fault *engine.FaultError
	if !errors.As(err, &fault) {
		fmt.Fprintln(p.w, p.render(errorStyle, "Error: "+err.Error()))
		return
	}
	header := "memory fault"
	if fault.Function != "" {
		header += " in " + fault.Function
	}
	fmt.Fprintln(p.w, p.render(errorStyle, header))
	fmt.Fprintln(p.w, formatTrace(fault.Trace, p.styled))
}
