// Package ui renders generation progress in the terminal.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/findata/internal/generator"
	"github.com/abhisek/findata/internal/ui/components"
	"github.com/abhisek/findata/internal/ui/theme"
)

const (
	defaultWidth = 60
	maxWarnings  = 3
)

type progressMsg generator.Progress

type finishedMsg struct{ err error }

// GenerateModel shows chunk and item progress for one run.
type GenerateModel struct {
	title  string
	cancel context.CancelFunc

	spinner spinner.Model
	items   progress.Model
	width   int

	last       generator.Progress
	sent       int
	failed     int
	skipped    int
	warnings   []string
	cancelling bool
	finished   bool
	err        error
}

// NewGenerateModel creates the model. cancel is called on ctrl+c.
func NewGenerateModel(title string, target int, cancel context.CancelFunc) GenerateModel {
	return GenerateModel{
		title:   title,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Primary))),
		items:   progress.New(progress.WithColors(theme.Primary, theme.Secondary), progress.WithWidth(defaultWidth)),
		width:   defaultWidth,
		last:    generator.Progress{Target: target},
	}
}

func (m GenerateModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, 100)
		m.items.SetWidth(m.width)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case progressMsg:
		p := generator.Progress(msg)
		m.last = p
		switch {
		case p.Skipped:
			m.skipped++
		case p.Err != nil:
			m.sent++
			m.failed++
			m.warnings = append(m.warnings, fmt.Sprintf("chunk %d: %v", p.Chunk+1, p.Err))
			if len(m.warnings) > maxWarnings {
				m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
			}
		default:
			m.sent++
		}
		return m, nil

	case finishedMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m GenerateModel) itemFraction() float64 {
	if m.last.Target <= 0 {
		return 0
	}
	return min(float64(m.last.Generated)/float64(m.last.Target), 1)
}

func (m GenerateModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m GenerateModel) render() string {
	var b strings.Builder

	status := m.spinner.View() + " "
	switch {
	case m.finished && m.err != nil:
		status = theme.Failed.Render("✗") + " "
	case m.finished:
		status = theme.Done.Render("✓") + " "
	}
	b.WriteString(status + theme.Title.Render(m.title) + "\n\n")

	b.WriteString(components.NewCountBar("chunks", m.sent+m.skipped, m.last.Chunks, m.width).View() + "\n")
	b.WriteString(m.items.ViewAs(m.itemFraction()) + "\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf("%d/%d items", m.last.Generated, m.last.Target)))
	if m.failed > 0 {
		b.WriteString("  " + theme.Failed.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	if m.skipped > 0 {
		b.WriteString("  " + theme.Hint.Render(fmt.Sprintf("%d skipped", m.skipped)))
	}
	b.WriteString("\n")

	for _, w := range m.warnings {
		b.WriteString(theme.Warn.Render("! "+w) + "\n")
	}

	switch {
	case m.finished && m.err != nil:
		b.WriteString(theme.Failed.Render(m.err.Error()) + "\n")
	case m.cancelling && !m.finished:
		b.WriteString(theme.Hint.Render("cancelling, waiting for in-flight calls…") + "\n")
	case !m.finished:
		b.WriteString(theme.Hint.Render("ctrl+c to stop and keep what was generated") + "\n")
	}

	return b.String()
}

// Generation drives a GenerateModel from engine progress callbacks.
type Generation struct {
	title  string
	target int
	out    io.Writer
	p      *tea.Program
}

// NewGeneration prepares a progress display written to out.
func NewGeneration(title string, target int, out io.Writer) *Generation {
	return &Generation{title: title, target: target, out: out}
}

// Progress forwards an engine progress event. Use it as
// generator.Options.OnProgress.
func (g *Generation) Progress(p generator.Progress) {
	if g.p != nil {
		g.p.Send(progressMsg(p))
	}
}

// Run shows the display while fn runs and returns fn's error. ctrl+c
// cancels the context passed to fn.
func (g *Generation) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.p = tea.NewProgram(
		NewGenerateModel(g.title, g.target, cancel),
		tea.WithOutput(g.out),
	)

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		g.p.Send(finishedMsg{err: err})
	}()

	if _, err := g.p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress display: %w", err)
	}
	return <-result
}
