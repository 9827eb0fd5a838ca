package main

import (
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/caja/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/caja/internal/config"
	"github.com/MrJamesThe3rd/caja/internal/database"
	"github.com/MrJamesThe3rd/caja/internal/money"
	"github.com/MrJamesThe3rd/caja/internal/report"
	"github.com/MrJamesThe3rd/caja/internal/shift"
	"github.com/MrJamesThe3rd/caja/internal/shift/store"
)

type model struct {
	appName  string
	register string

	ledger  *shift.Ledger
	history *shift.History
	reports *report.Service

	currentView View
	size        tea.WindowSizeMsg

	shiftView   view.ShiftModel
	historyView view.HistoryModel
}

type View int

const (
	ViewMenu    View = 0
	ViewShift   View = 1
	ViewHistory View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.ConnectionString()

	if err := database.Migrate(cfg.DB.Driver, dsn); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DB.Driver, dsn)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	repo := store.New(db, store.Dialect(cfg.DB.Driver), store.WithRetry(store.RetryPolicy{
		MaxRetries:      cfg.Store.RetryMax,
		InitialInterval: cfg.Store.RetryInitial,
		MaxInterval:     cfg.Store.RetryMaxWait,
	}))

	view.SetLocale(cfg.Locale.Language)

	ledger := shift.NewLedger(repo, shift.WithRegister(cfg.App.RegisterID))
	history := shift.NewHistory(repo, cfg.App.RegisterID)
	reports := report.NewService(history, money.NewFormatter(cfg.Locale.Language), time.Local)

	return model{
		appName:     cfg.App.Name,
		register:    ledger.RegisterID(),
		ledger:      ledger,
		history:     history,
		reports:     reports,
		currentView: ViewMenu,
		shiftView:   view.NewShiftModel(ledger),
		historyView: view.NewHistoryModel(history, reports),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = msg
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewShift
				m.shiftView = view.NewShiftModel(m.ledger)

				return m, tea.Batch(m.shiftView.Init(), m.resize())
			case "2":
				m.currentView = ViewHistory
				m.historyView = view.NewHistoryModel(m.history, m.reports)

				return m, tea.Batch(m.historyView.Init(), m.resize())
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewShift:
		var newModel tea.Model
		newModel, cmd = m.shiftView.Update(msg)
		m.shiftView = newModel.(view.ShiftModel)
	case ViewHistory:
		var newModel tea.Model
		newModel, cmd = m.historyView.Update(msg)
		m.historyView = newModel.(view.HistoryModel)
	}

	return m, cmd
}

// resize replays the last window size to a freshly created view.
func (m model) resize() tea.Cmd {
	if m.size.Width == 0 {
		return nil
	}

	size := m.size

	return func() tea.Msg { return size }
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + " - caja " + m.register + "\n\n" +
				"1. Turno activo\n" +
				"2. Historial de cierres\n\n" +
				"q. Salir",
		)
	case ViewShift:
		current = m.shiftView
	case ViewHistory:
		current = m.historyView
	default:
		return "Vista desconocida"
	}

	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(current.Title()),
		current.View(),
		help,
	)
}

func main() {
	m := initialModel()

	// The alt screen owns stderr from here on.
	if f, err := tea.LogToFile("caja-tui.log", "caja"); err == nil {
		defer f.Close()
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
