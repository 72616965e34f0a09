package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rusty-tags/rtags/pkg/scheduler"
)

// buildProgressMsg wraps a scheduler.BandProgress snapshot for delivery
// through a tea.Program's message loop.
type buildProgressMsg scheduler.BandProgress

// buildDoneMsg signals that the scheduler run has returned and the program
// should quit.
type buildDoneMsg struct{}

// bandRow is the display-side record for one depth band. Bands below
// IsRoot run deepest-first, so row 0 is the deepest (leaf) band and the
// last row is the root crate's own band.
type bandRow struct {
	total, running, done, skipped, failed int
	started, finished                     bool
}

func (r bandRow) pending() int {
	p := r.total - r.running - r.done - r.skipped - r.failed
	if p < 0 {
		return 0
	}
	return p
}

// buildModel is a bubbletea model rendering one row per depth band while
// pkg/scheduler.Run works through them deepest-first. It is fed
// buildProgressMsg values from the scheduler's ProgressFunc via
// tea.Program.Send and quits on buildDoneMsg.
type buildModel struct {
	title string
	rows  []bandRow
}

func newBuildModel(title string) buildModel {
	return buildModel{title: title}
}

func (m buildModel) Init() tea.Cmd {
	return nil
}

func (m buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case buildProgressMsg:
		for len(m.rows) <= msg.Band {
			m.rows = append(m.rows, bandRow{})
		}
		row := &m.rows[msg.Band]
		row.total = msg.Total
		row.running = msg.Running
		row.done = msg.Done
		row.skipped = msg.Skipped
		row.failed = msg.Failed
		row.started = true
		if row.running == 0 && row.done+row.skipped+row.failed >= row.total {
			row.finished = true
		}
		return m, nil
	case buildDoneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

var (
	styleRowDone    = lipgloss.NewStyle().Foreground(colorGreen)
	styleRowRunning = lipgloss.NewStyle().Foreground(colorCyan)
	styleRowPending = lipgloss.NewStyle().Foreground(colorDim)
	styleBandLabel  = lipgloss.NewStyle().Foreground(colorGray).Width(10)
)

func (m buildModel) View() string {
	var b strings.Builder
	b.WriteString(StyleDim.Render(m.title))
	b.WriteString("\n")
	for i, row := range m.rows {
		label := styleBandLabel.Render(fmt.Sprintf("band %d", i))
		counts := fmt.Sprintf("pending %d  running %d  done %d  skipped %d  failed %d",
			row.pending(), row.running, row.done, row.skipped, row.failed)
		style := styleRowPending
		switch {
		case row.failed > 0:
			style = styleIconError
		case row.finished:
			style = styleRowDone
		case row.running > 0:
			style = styleRowRunning
		}
		b.WriteString(label + " " + style.Render(counts) + "\n")
	}
	return b.String()
}

// runWithTUI drives fn (a call to scheduler.Run) through a bubbletea
// program that renders buildModel, feeding it progress snapshots via the
// scheduler.ProgressFunc it passes to fn. fn runs on its own goroutine;
// runWithTUI forwards those snapshots to the program and blocks until fn
// returns.
func runWithTUI(title string, fn func(scheduler.ProgressFunc) ([]scheduler.SourceResult, error)) ([]scheduler.SourceResult, error) {
	program := tea.NewProgram(newBuildModel(title))

	var results []scheduler.SourceResult
	var runErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		results, runErr = fn(func(p scheduler.BandProgress) {
			program.Send(buildProgressMsg(p))
		})
		program.Send(buildDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		<-done
		return results, err
	}
	<-done
	return results, runErr
}
