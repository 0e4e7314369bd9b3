package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
)

type formField int

const (
	fieldAgent formField = iota
	fieldDate
	fieldFrom
	fieldTo
	fieldReason
	fieldBonus
	fieldHoliday
	fieldOvernight
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Agent", "Date", "From", "To", "Reason", "+20K Bonus", "Holiday", "Overnight",
}

type formModel struct {
	agents    []string
	agentIdx  int
	inputs    [fieldCount]textinput.Model
	bonus     bool
	holiday   bool
	overnight bool
	focus     formField
	now       time.Time
	errMsg    string
}

func newFormModel(agents []string, lastAgent, defaultReason string, now time.Time) formModel {
	m := formModel{agents: agents, now: now}

	for i, a := range agents {
		if strings.EqualFold(a, lastAgent) {
			m.agentIdx = i
		}
	}

	for _, f := range []formField{fieldDate, fieldFrom, fieldTo, fieldReason} {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 100
		ti.Width = 30
		m.inputs[f] = ti
	}
	m.inputs[fieldDate].Placeholder = "YYYY-MM-DD or yesterday"
	m.inputs[fieldDate].SetValue(now.Format("2006-01-02"))
	m.inputs[fieldFrom].Placeholder = "HH:MM"
	m.inputs[fieldFrom].CharLimit = 5
	m.inputs[fieldTo].Placeholder = "HH:MM"
	m.inputs[fieldTo].CharLimit = 5
	m.inputs[fieldReason].Placeholder = defaultReason

	m.focus = fieldAgent
	if len(agents) > 0 {
		m.focus = fieldFrom
		m.inputs[fieldFrom].Focus()
	}
	return m
}

func isTextField(f formField) bool {
	return f == fieldDate || f == fieldFrom || f == fieldTo || f == fieldReason
}

func (m *formModel) setFocus(f formField) tea.Cmd {
	if isTextField(m.focus) {
		m.inputs[m.focus].Blur()
	}
	m.focus = f
	if isTextField(f) {
		return m.inputs[f].Focus()
	}
	return nil
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}

		switch m.focus {
		case fieldAgent:
			switch keyMsg.String() {
			case "left", "h":
				m.cycleAgent(-1)
			case "right", "l", " ":
				m.cycleAgent(1)
			}
			return m, nil
		case fieldBonus, fieldHoliday, fieldOvernight:
			switch keyMsg.String() {
			case " ", "enter", "left", "right", "h", "l":
				m.toggle(m.focus)
			}
			return m, nil
		}

		if keyMsg.String() == "enter" {
			return m, m.setFocus((m.focus + 1) % fieldCount)
		}
	}

	if !isTextField(m.focus) {
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.errMsg = ""
	return m, cmd
}

func (m *formModel) cycleAgent(step int) {
	if len(m.agents) == 0 {
		return
	}
	m.agentIdx = (m.agentIdx + step + len(m.agents)) % len(m.agents)
}

func (m *formModel) toggle(f formField) {
	switch f {
	case fieldBonus:
		m.bonus = !m.bonus
	case fieldHoliday:
		m.holiday = !m.holiday
	case fieldOvernight:
		m.overnight = !m.overnight
	}
}

func (m *formModel) setAgent(name string) {
	for i, a := range m.agents {
		if a == name {
			m.agentIdx = i
			return
		}
	}
}

func (m formModel) agent() string {
	if len(m.agents) == 0 {
		return ""
	}
	return m.agents[m.agentIdx]
}

// Form returns the current input as a submittable form.
func (m formModel) Form() entry.Form {
	return entry.Form{
		Agent:     m.agent(),
		Date:      m.inputs[fieldDate].Value(),
		From:      m.inputs[fieldFrom].Value(),
		To:        m.inputs[fieldTo].Value(),
		Reason:    m.inputs[fieldReason].Value(),
		Bonus:     m.bonus,
		Holiday:   m.holiday,
		Overnight: m.overnight,
	}
}

// preview is the live total for the From/To pair, or "" while either is
// incomplete or invalid.
func (m formModel) preview() string {
	from, ok, err := duration.ParseTimeOfDay(m.inputs[fieldFrom].Value())
	if err != nil || !ok {
		return ""
	}
	to, ok, err := duration.ParseTimeOfDay(m.inputs[fieldTo].Value())
	if err != nil || !ok {
		return ""
	}
	return duration.FormatLabel(duration.Preview(from, to, m.overnight))
}

func (m formModel) crossesMidnight() bool {
	from, _, _ := duration.ParseTimeOfDay(m.inputs[fieldFrom].Value())
	to, _, _ := duration.ParseTimeOfDay(m.inputs[fieldTo].Value())
	return to.Minutes() < from.Minutes()
}

// fieldError reports a problem with the focused field only.
func (m formModel) fieldError() string {
	value := m.inputs[m.focus].Value()
	switch m.focus {
	case fieldFrom, fieldTo:
		if _, _, err := duration.ParseTimeOfDay(value); err != nil {
			return "use HH:MM (00:00 to 23:59)"
		}
	case fieldDate:
		if strings.TrimSpace(value) == "" {
			return ""
		}
		if _, err := entry.ParseDate(value, m.now); err != nil {
			return "unrecognized date"
		}
	}
	return ""
}

// reset clears the times for another entry, keeping agent, date and reason.
func (m *formModel) reset() tea.Cmd {
	m.inputs[fieldFrom].SetValue("")
	m.inputs[fieldTo].SetValue("")
	m.bonus, m.holiday, m.overnight = false, false, false
	m.errMsg = ""
	return m.setFocus(fieldFrom)
}

func checkbox(b bool) string {
	if b {
		return checkedStyle.Render("[x]")
	}
	return "[ ]"
}

func (m formModel) View() string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("otlog · overtime entry"))
	sb.WriteString("\n")

	fieldErr := m.fieldError()

	for f := formField(0); f < fieldCount; f++ {
		prefix := "  "
		label := fmt.Sprintf("%-11s", fieldLabels[f])
		if f == m.focus {
			prefix = "> "
			label = labelStyle.Render(label)
		}

		var value string
		switch f {
		case fieldAgent:
			value = m.agent()
			if value == "" {
				value = mutedStyle.Render("no agents configured")
			} else if f == m.focus {
				value = "← " + agentStyle.Render(value) + " →"
			}
		case fieldBonus:
			value = checkbox(m.bonus)
		case fieldHoliday:
			value = checkbox(m.holiday)
		case fieldOvernight:
			value = checkbox(m.overnight)
		default:
			value = m.inputs[f].View()
		}

		sb.WriteString(prefix + label + " " + value)
		if f == m.focus && fieldErr != "" {
			sb.WriteString("  " + errorStyle.Render(fieldErr))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if p := m.preview(); p != "" {
		sb.WriteString("Total: " + totalStyle.Render(p))
		switch {
		case m.crossesMidnight() && !m.overnight:
			sb.WriteString("  " + overnightStyle.Render("ends after midnight, mark Overnight?"))
		case m.overnight:
			sb.WriteString("  " + overnightStyle.Render("overnight"))
		}
	} else {
		sb.WriteString("Total: " + mutedStyle.Render("--"))
	}
	sb.WriteString("\n")

	if m.errMsg != "" {
		sb.WriteString(errorStyle.Render("Error: ") + m.errMsg + "\n")
	}

	sb.WriteString(keysStyle.Render("Tab/↑↓: move • ←/→: agent • Space: toggle • /: find agent • Ctrl+S: submit • Ctrl+C: quit"))

	return frameStyle.Render(sb.String())
}
