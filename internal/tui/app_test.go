package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

type memStore struct {
	mu      sync.Mutex
	entries []entry.Entry
	err     error
}

func (s *memStore) Append(_ context.Context, e entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *memStore) Rows(context.Context) ([]report.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]report.Row, len(s.entries))
	for i, e := range s.entries {
		rows[i] = e.Row()
	}
	return rows, nil
}

func (s *memStore) Close() error { return nil }

var agents = []string{"Eliecid", "David", "Luis"}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeInto(m formModel, s string) formModel {
	for _, r := range s {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func newTestForm() formModel {
	return newFormModel(agents, "david", "Scheduled OT", time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC))
}

func TestForm_StartsOnFromWithLastAgent(t *testing.T) {
	m := newTestForm()
	assert.Equal(t, fieldFrom, m.focus)
	assert.Equal(t, "David", m.agent())
	assert.Equal(t, "2025-10-17", m.Form().Date)
}

func TestForm_LivePreview(t *testing.T) {
	m := newTestForm()
	m = typeInto(m, "1400")
	assert.Empty(t, m.preview())

	m, _ = m.Update(key("tab"))
	m = typeInto(m, "16:3")
	assert.Empty(t, m.preview(), "half-typed time has no preview")
	assert.Empty(t, m.fieldError(), "half-typed time is not an error")

	m = typeInto(m, "0")
	assert.Equal(t, "2h 30m", m.preview())
	assert.Contains(t, m.View(), "2h 30m")
}

func TestForm_OvernightPreview(t *testing.T) {
	m := newTestForm()
	m = typeInto(m, "2200")
	m, _ = m.Update(key("tab"))
	m = typeInto(m, "0600")
	assert.Equal(t, "8h 0m", m.preview())
	assert.True(t, m.crossesMidnight())
	assert.Contains(t, m.View(), "ends after midnight, mark Overnight?")

	m.focus = fieldOvernight
	m, _ = m.Update(key("space"))
	assert.True(t, m.overnight)
	assert.Equal(t, "8h 0m", m.preview())
	assert.NotContains(t, m.View(), "mark Overnight?")
	assert.Contains(t, m.View(), "[x]")
}

func TestForm_ErrorOnlyOnFocusedField(t *testing.T) {
	m := newTestForm()
	m = typeInto(m, "2460")
	assert.NotEmpty(t, m.fieldError())

	m, _ = m.Update(key("tab"))
	assert.Equal(t, fieldTo, m.focus)
	assert.Empty(t, m.fieldError())
}

func TestForm_UnrecognizedDate(t *testing.T) {
	m := newTestForm()
	m.setFocus(fieldDate)
	m.inputs[fieldDate].SetValue("")
	m = typeInto(m, "tomorow")
	assert.NotEmpty(t, m.fieldError())

	m.inputs[fieldDate].SetValue("yesterday")
	assert.Empty(t, m.fieldError())
}

func TestForm_AgentCycling(t *testing.T) {
	m := newTestForm()
	m.setFocus(fieldAgent)

	m, _ = m.Update(key("right"))
	assert.Equal(t, "Luis", m.agent())
	m, _ = m.Update(key("right"))
	assert.Equal(t, "Eliecid", m.agent())
	m, _ = m.Update(key("left"))
	assert.Equal(t, "Luis", m.agent())
}

func TestApp_SubmitAndConfirm(t *testing.T) {
	store := &memStore{}
	app := NewApp(store, agents, "Luis", "Scheduled OT", nil)

	for _, r := range "1800" {
		app.Update(key(string(r)))
	}
	app.Update(key("tab"))
	for _, r := range "2000" {
		app.Update(key(string(r)))
	}

	_, cmd := app.Update(key("ctrl+s"))
	require.NotNil(t, cmd)
	assert.Equal(t, savingView, app.state)

	e, err := entry.New(app.form.Form(), app.now())
	require.NoError(t, err)
	app.Update(app.submit(e)())

	assert.Equal(t, confirmationView, app.state)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "Luis", store.entries[0].Agent)
	assert.Equal(t, "2 hr 0 min", store.entries[0].TotalTime)
	assert.Contains(t, app.View(), "Overtime logged!")

	app.Update(key("n"))
	assert.Equal(t, formView, app.state)
	assert.Empty(t, app.form.Form().From)
	assert.Equal(t, "Luis", app.form.agent())

	_, cmd = app.Update(key("esc"))
	require.NotNil(t, cmd)
	res := app.GetResult()
	require.NotNil(t, res)
	assert.False(t, res.Canceled)
	assert.Len(t, res.Entries, 1)
}

func TestApp_InvalidSubmitStaysOnForm(t *testing.T) {
	app := NewApp(&memStore{}, agents, "", "", nil)
	app.Update(key("ctrl+s"))
	assert.Equal(t, formView, app.state)
	assert.NotEmpty(t, app.form.errMsg)
}

func TestApp_StoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("sheet unavailable")}
	app := NewApp(store, agents, "", "", nil)

	e, err := entry.New(entry.Form{Agent: "Luis", From: "0900", To: "1000"}, time.Now())
	require.NoError(t, err)
	app.Update(app.submit(e)())

	assert.Equal(t, confirmationView, app.state)
	assert.Contains(t, app.View(), "sheet unavailable")

	app.Update(key("enter"))
	assert.Equal(t, formView, app.state)
}

func TestPicker_FilterAndSelect(t *testing.T) {
	p := NewPickerApp(agents)
	for _, r := range "d" {
		p.Update(key(string(r)))
	}
	assert.Len(t, p.picker.filtered, 2) // Eliecid, David

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(key("enter"))
	require.NotNil(t, cmd)
	require.NotNil(t, p.GetResult())
	assert.Equal(t, "David", p.GetResult().Agent)
}

func TestApp_PickerSetsAgent(t *testing.T) {
	app := NewApp(&memStore{}, agents, "", "", nil)
	app.form.setFocus(fieldAgent)

	app.Update(key("/"))
	require.Equal(t, pickerView, app.state)
	for _, r := range "dav" {
		app.Update(key(string(r)))
	}
	app.Update(key("enter"))

	assert.Equal(t, formView, app.state)
	assert.Equal(t, "David", app.form.agent())
}
