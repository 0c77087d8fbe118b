package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
)

const (
	canvasWidth     = 48
	canvasHeight    = 18
	historyCapacity = 600
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model steps a vector field in real time and renders its phase orbit.
type Model struct {
	field     dynamics.Field
	stepper   integrators.Stepper
	state     dynamics.State
	t, dt     float64
	rtol      float64
	atol      float64
	running   bool
	fieldName string
	showHelp  bool

	initialState dynamics.State
	initialDt    float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	posHistory    []float64
	velHistory    []float64
	energyHistory []float64
}

// NewModel initializes the live view around a field and a stepper.
func NewModel(name string, f dynamics.Field, stepper integrators.Stepper, y0 dynamics.State, dt, rtol, atol float64) Model {
	params := make(map[string]float64)
	if c, ok := f.(dynamics.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64)
	for k, v := range params {
		keys = append(keys, k)
		if v == 0 {
			v = 1e-6
		}
		initialParams[k] = v
	}
	sort.Strings(keys)

	return Model{
		field:         f,
		stepper:       stepper,
		state:         y0.Clone(),
		t:             0,
		dt:            dt,
		rtol:          rtol,
		atol:          atol,
		running:       true,
		fieldName:     name,
		initialState:  y0.Clone(),
		initialDt:     dt,
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
		posHistory:    make([]float64, 0, historyCapacity),
		velHistory:    make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	c, ok := m.field.(dynamics.Configurable)
	if !ok {
		return
	}
	if err := c.SetParam(key, val); err != nil {
		return
	}
	m.params[key] = val
}

// step advances the orbit by one stepper call and records histories.
func (m *Model) step() {
	if adaptive, ok := m.stepper.(integrators.AdaptiveStepper); ok {
		next, _, hNext := adaptive.StepAdaptive(m.field, m.t, m.state, m.dt, m.rtol, m.atol)
		m.state = next
		m.t += m.dt
		if hNext > 1e-4 && hNext < 0.1 {
			m.dt = hNext
		}
	} else {
		m.state = m.stepper.Step(m.field, m.t, m.state, m.dt)
		m.t += m.dt
	}

	if len(m.state) >= 2 {
		m.posHistory = appendCapped(m.posHistory, m.state[0])
		m.velHistory = appendCapped(m.velHistory, m.state[1])
	}
	if h, ok := m.field.(dynamics.Hamiltonian); ok {
		m.energyHistory = appendCapped(m.energyHistory, h.Energy(m.state))
	}
}

func appendCapped(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[1:]
	}
	return hist
}

// reset restores the initial state, step size and parameters.
func (m *Model) reset() {
	m.t = 0
	m.dt = m.initialDt
	m.state = m.initialState.Clone()
	m.posHistory = m.posHistory[:0]
	m.velHistory = m.velHistory[:0]
	m.energyHistory = m.energyHistory[:0]
	if c, ok := m.field.(dynamics.Configurable); ok {
		for k, v := range m.initialParams {
			if err := c.SetParam(k, v); err != nil {
				continue
			}
			m.params[k] = v
		}
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	portrait := PhasePortrait(m.posHistory, m.velHistory, canvasWidth, canvasHeight)
	canvasView := canvasStyle.Render(portrait)

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.fieldName)) + "\n")
	if m.running {
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if chart := Chart(m.energyHistory, "Energy", 30, 4); chart != "" {
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.t)) + "\n")
	if len(m.energyHistory) > 0 {
		last := m.energyHistory[len(m.energyHistory)-1]
		s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f", last)) + "\n")
	}
	s.WriteString(labelStyle.Render("Integrator") + valueStyle.Render(m.stepper.Name()) + "\n")
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%.4f", m.dt)) + "\n")

	if len(m.paramKeys) > 0 {
		s.WriteString("\nPARAMETERS\n")
		for i, k := range m.paramKeys {
			val, initial := m.params[k], m.initialParams[k]
			barWidth, ratio := 10, val/(2.0*initial)
			if ratio > 1 {
				ratio = 1
			} else if ratio < 0 {
				ratio = 0
			}
			filled := int(ratio * float64(barWidth))
			bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
			line := fmt.Sprintf("%-10s %s %.3f", k, bar, val)
			if i == m.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + line + "\n")
			}
		}
	}

	if m.showHelp {
		s.WriteString(helpStyle.Render(
			"space  pause/resume\n" +
				"r      reset orbit\n" +
				"tab    select parameter\n" +
				"↑/↓    adjust parameter\n" +
				"?      toggle help\n" +
				"q      quit"))
	} else {
		s.WriteString(helpStyle.Render("space pause · r reset · tab/↑/↓ params · ? help · q quit"))
	}

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}
