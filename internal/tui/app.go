package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/otlog/internal/entry"
)

type viewState int

const (
	formView viewState = iota
	pickerView
	savingView
	confirmationView
)

const submitTimeout = 30 * time.Second

// Result holds the entries stored during the session.
type Result struct {
	Canceled bool
	Entries  []entry.Entry
}

type submitMsg struct {
	entry entry.Entry
	err   error
}

type App struct {
	state   viewState
	form    formModel
	picker  agentPickerModel
	spinner spinner.Model
	result  *Result
	saved   []entry.Entry
	last    *entry.Entry
	errMsg  string

	store  entry.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewApp(store entry.Store, agents []string, lastAgent, defaultReason string, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:   formView,
		form:    newFormModel(agents, lastAgent, defaultReason, time.Now()),
		spinner: s,
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.form.setFocus(a.form.focus), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Canceled: len(a.saved) == 0, Entries: a.saved}
			return a, tea.Quit
		}
	case submitMsg:
		return a.handleSubmit(msg)
	}

	switch a.state {
	case formView:
		return a.updateForm(msg)
	case pickerView:
		return a.updatePicker(msg)
	case savingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case confirmationView:
		return a.updateConfirmation(msg)
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case formView:
		return a.form.View()
	case pickerView:
		return a.picker.View()
	case savingView:
		return a.spinner.View() + " Saving..."
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n\n" +
				keysStyle.Render("Enter: back to form • q: quit")
		}
		e := a.last
		summary := agentStyle.Render(e.Agent) + fmt.Sprintf("  %s  %s–%s  ", e.Date, e.From, e.To) + totalStyle.Render(e.TotalTime)
		return loggedStyle.Render("Overtime logged!") + "\n" + summary + "\n\n" +
			keysStyle.Render("n: new entry • q: quit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+s":
			e, err := entry.New(a.form.Form(), a.now())
			if err != nil {
				a.form.errMsg = err.Error()
				return a, nil
			}
			a.state = savingView
			return a, tea.Batch(a.spinner.Tick, a.submit(e))
		case "/":
			if a.form.focus == fieldAgent && len(a.form.agents) > 0 {
				a.picker = newAgentPicker(a.form.agents)
				a.state = pickerView
				return a, a.picker.Init()
			}
		case "esc":
			a.result = &Result{Canceled: len(a.saved) == 0, Entries: a.saved}
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	return a, cmd
}

func (a *App) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)

	if a.picker.done || a.picker.canceled {
		if res := a.picker.Result(); !res.Canceled {
			a.form.setAgent(res.Agent)
		}
		a.state = formView
		return a, nil
	}
	return a, cmd
}

func (a *App) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}

	if a.errMsg != "" {
		if keyMsg.String() == "q" {
			a.result = &Result{Canceled: len(a.saved) == 0, Entries: a.saved}
			return a, tea.Quit
		}
		a.errMsg = ""
		a.state = formView
		return a, a.form.setFocus(a.form.focus)
	}

	if keyMsg.String() == "n" {
		a.state = formView
		return a, a.form.reset()
	}

	a.result = &Result{Entries: a.saved}
	return a, tea.Quit
}

func (a *App) handleSubmit(msg submitMsg) (tea.Model, tea.Cmd) {
	a.state = confirmationView
	if msg.err != nil {
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.saved = append(a.saved, msg.entry)
	a.last = &a.saved[len(a.saved)-1]
	return a, nil
}

func (a *App) submit(e entry.Entry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		if err := a.store.Append(ctx, e); err != nil {
			a.logger.Error("storing entry failed", "agent", e.Agent, "date", e.Date, "error", err)
			return submitMsg{entry: e, err: fmt.Errorf("storing entry: %w", err)}
		}
		a.logger.Info("entry stored", "id", e.ID, "agent", e.Agent, "date", e.Date, "total", e.TotalTime)
		return submitMsg{entry: e}
	}
}
