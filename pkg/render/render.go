// Package render is the terminal presentation layer: a progress
// indicator for quiet-mode dispatch, lipgloss-styled summary tables
// for attribution/cost output, and per-provider writers for
// verbose-mode streaming. Grounded on the Charm stack (bubbletea,
// bubbles, lipgloss) the way shawkym-agentpipe and teradata-labs-loom
// pull it in for exactly this kind of CLI orchestration tool — the
// teacher itself renders with plain fmt.Printf, so this is new
// territory for MARS rather than an adaptation of teacher code.
package render

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Renderer owns the terminal output for one debate run. It holds at
// most one active progress program at a time: a new progress scope
// must stop the previous one before starting, matching spec.md §5's
// shared-resource invariant.
type Renderer struct {
	mu   sync.Mutex
	out  io.Writer
	prog *tea.Program
}

// New creates a Renderer writing to out.
func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// progressModel is a minimal bubbletea model wrapping bubbles/progress
// to show round-level completion during quiet-mode dispatch.
type progressModel struct {
	bar   progress.Model
	label string
	ratio float64
	done  bool
}

// progressMsg updates the bar's completion ratio.
type progressMsg float64

// progressDoneMsg signals the program should exit.
type progressDoneMsg struct{}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.ratio = float64(msg)
		return m, nil
	case progressDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	return m.label + " " + m.bar.ViewAs(m.ratio) + "\n"
}

// StartProgress stops any previously active progress scope and starts
// a new one labelled with label, running in the background until
// StopProgress is called or Advance reaches 1.0.
func (r *Renderer) StartProgress(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prog != nil {
		r.prog.Quit()
		r.prog.Wait()
	}

	model := progressModel{bar: progress.New(progress.WithDefaultGradient()), label: label}
	r.prog = tea.NewProgram(model, tea.WithOutput(r.out))

	go func() {
		_, _ = r.prog.Run()
	}()
}

// Advance updates the active progress scope's completion ratio in
// [0,1]. It is a no-op if no scope is active.
func (r *Renderer) Advance(ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prog != nil {
		r.prog.Send(progressMsg(ratio))
	}
}

// StopProgress ends the active progress scope, if any.
func (r *Renderer) StopProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prog == nil {
		return
	}
	r.prog.Send(progressDoneMsg{})
	r.prog.Wait()
	r.prog = nil
}

// LogFailure reports a provider failure to the terminal. Satisfies
// the dispatch.Logger signature.
func (r *Renderer) LogFailure(providerName string, err error) {
	fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("[%s] failed: %v", providerName, err)))
}

// LogWarning reports a non-fatal warning (e.g. an unknown model in
// the cost report) to the terminal.
func (r *Renderer) LogWarning(msg string) {
	fmt.Fprintln(r.out, warnStyle.Render(msg))
}

// StreamSink returns a writer for a single provider's streamed output
// in verbose/sequential mode, prefixed so concurrent-looking output
// from a sequential run stays attributable.
func (r *Renderer) StreamSink(providerName string) io.Writer {
	return &prefixWriter{out: r.out, prefix: "[" + providerName + "] "}
}

type prefixWriter struct {
	out         io.Writer
	prefix      string
	atLineStart bool
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	if !w.atLineStart {
		fmt.Fprint(w.out, w.prefix)
		w.atLineStart = true
	}
	n, err := w.out.Write(p)
	if len(p) > 0 && p[len(p)-1] == '\n' {
		w.atLineStart = false
	}
	return n, err
}

// RenderTable lays out headers and rows as a lipgloss-bordered table.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b []byte
	b = append(b, []byte(renderRow(headers, widths, headerStyle))...)
	for _, row := range rows {
		b = append(b, []byte(renderRow(row, widths, cellStyle))...)
	}
	return string(b)
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	line := ""
	for i, c := range cells {
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		line += style.Width(width).Render(c)
	}
	return line + "\n"
}

// DefaultOutput returns the renderer target most callers want: the
// process's standard output.
func DefaultOutput() io.Writer {
	return os.Stdout
}
