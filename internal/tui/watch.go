package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/armature-sim/armature/internal/sim"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

const watchFrameRate = 30

type tickMsg time.Time

// Watch is an interactive live view of one session: real-time stepping,
// pause and reset.
type Watch struct {
	session  *sim.Session
	renderer *LiveRenderer
	dt       float64
	q0, v0   []float64
	paused   bool
	err      error
}

// NewWatch wraps a prepared session. q0 and v0 are the reset state; nil
// means neutral.
func NewWatch(s *sim.Session, dt float64, q0, v0 []float64) *Watch {
	return &Watch{
		session:  s,
		renderer: NewLiveRenderer(s.Model(), io.Discard, watchFrameRate),
		dt:       dt,
		q0:       q0,
		v0:       v0,
	}
}

// SetTerrainHeight places the drawn ground line.
func (w *Watch) SetTerrainHeight(z float64) { w.renderer.SetTerrainHeight(z) }

// Run starts the interactive loop and blocks until the user quits.
func (w *Watch) Run() error {
	if err := w.session.Reset(w.q0, w.v0); err != nil {
		return err
	}
	_, err := tea.NewProgram(w).Run()
	return err
}

func (w *Watch) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second/watchFrameRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		case " ":
			w.paused = !w.paused
		case "r":
			w.err = w.session.Reset(w.q0, w.v0)
			w.paused = false
		}
	case tickMsg:
		if !w.paused && w.err == nil {
			// Real-time: one frame of wall clock per frame of sim time.
			steps := int(1 / (watchFrameRate * w.dt))
			if steps < 1 {
				steps = 1
			}
			for i := 0; i < steps; i++ {
				if err := w.session.Step(w.dt); err != nil {
					w.err = err
					break
				}
			}
		}
		return w, tick()
	}
	return w, nil
}

func (w *Watch) View() string {
	st := w.session.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render(w.session.Model().Name()))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render("t="))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%8.3fs", st.Time)))
	if energy, err := w.session.Energy(); err == nil {
		b.WriteString(labelStyle.Render("  E="))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%10.4f", energy)))
	}
	if w.paused {
		b.WriteString("  ")
		b.WriteString(pausedStyle.Render("PAUSED"))
	}
	b.WriteByte('\n')

	b.WriteString(w.renderer.frame(st))

	if w.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", w.err)))
		b.WriteByte('\n')
	}

	b.WriteString(labelStyle.Render("q: "))
	b.WriteString(valueStyle.Render(fmtVec(st.Q)))
	b.WriteByte('\n')
	b.WriteString(labelStyle.Render("v: "))
	b.WriteString(valueStyle.Render(fmtVec(st.V)))
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	b.WriteByte('\n')
	return b.String()
}

func fmtVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%7.3f", x)
	}
	return strings.Join(parts, " ")
}
