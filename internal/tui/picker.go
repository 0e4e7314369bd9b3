package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const pickerVisible = 10

type agentPickerModel struct {
	agents   []string
	filtered []int // indices into agents
	cursor   int
	filter   textinput.Model
	done     bool
	canceled bool
}

// PickerResult holds the agent the user picked.
type PickerResult struct {
	Agent    string
	Canceled bool
}

// PickerApp wraps agentPickerModel for standalone use with tea.NewProgram.
type PickerApp struct {
	picker agentPickerModel
	result *PickerResult
}

func NewPickerApp(agents []string) *PickerApp {
	return &PickerApp{
		picker: newAgentPicker(agents),
	}
}

func (a *PickerApp) Init() tea.Cmd {
	return a.picker.Init()
}

func (a *PickerApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)

	if a.picker.done || a.picker.canceled {
		a.result = a.picker.Result()
		return a, tea.Quit
	}

	return a, cmd
}

func (a *PickerApp) View() string {
	return a.picker.View()
}

func (a *PickerApp) GetResult() *PickerResult {
	return a.result
}

func newAgentPicker(agents []string) agentPickerModel {
	ti := textinput.New()
	ti.Placeholder = "Filter agents..."
	ti.Focus()

	filtered := make([]int, len(agents))
	for i := range agents {
		filtered[i] = i
	}

	return agentPickerModel{
		agents:   agents,
		filtered: filtered,
		filter:   ti,
	}
}

func (m agentPickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m agentPickerModel) Update(msg tea.Msg) (agentPickerModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c", "esc":
			m.canceled = true
			return m, nil
		case "enter":
			if len(m.filtered) > 0 {
				m.done = true
			}
			return m, nil
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	prevFilter := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)

	if m.filter.Value() != prevFilter {
		m.applyFilter()
	}

	return m, cmd
}

func (m *agentPickerModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.filtered = m.filtered[:0]
	for i, a := range m.agents {
		if query == "" || strings.Contains(strings.ToLower(a), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

func (m agentPickerModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Select agent"))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(mutedStyle.Render("  No agents match filter"))
		b.WriteString("\n")
	} else {
		start := 0
		if m.cursor >= pickerVisible {
			start = m.cursor - pickerVisible + 1
		}
		end := min(start+pickerVisible, len(m.filtered))

		for vi := start; vi < end; vi++ {
			name := m.agents[m.filtered[vi]]
			if vi == m.cursor {
				b.WriteString(labelStyle.Render("> ") + agentStyle.Render(name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(keysStyle.Render(fmt.Sprintf(
		"\n%d of %d • Enter: select • Esc: cancel", len(m.filtered), len(m.agents))))

	return b.String()
}

func (m agentPickerModel) Result() *PickerResult {
	if m.canceled || len(m.filtered) == 0 {
		return &PickerResult{Canceled: true}
	}
	return &PickerResult{Agent: m.agents[m.filtered[m.cursor]]}
}
