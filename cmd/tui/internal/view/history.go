package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/caja/internal/report"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type historyState int

const (
	historyStateTimeframe historyState = iota
	historyStateList
	historyStateReport
)

// HistoryModel browses closed shifts and shows their close report.
type HistoryModel struct {
	CommonModel
	history *shift.History
	reports *report.Service

	state           historyState
	timeframePicker TimeframePicker
	table           table.Model
	report          viewport.Model
	summaries       []shift.ClosedSummary
	period          string

	loading bool
	status  string
}

func NewHistoryModel(history *shift.History, reports *report.Service) HistoryModel {
	columns := []table.Column{
		{Title: "Cierre", Width: 17},
		{Title: "Operador", Width: 12},
		{Title: "Esperado", Width: 14},
		{Title: "Contado", Width: 14},
		{Title: "Diferencia", Width: 14},
		{Title: "", Width: 9},
		{Title: "Mov.", Width: 5},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return HistoryModel{
		history:         history,
		reports:         reports,
		timeframePicker: NewTimeframePicker(TimeframeToday),
		table:           t,
		report:          viewport.New(80, 20),
	}
}

func (m HistoryModel) Title() string { return "Historial de cierres" }

func (m HistoryModel) ShortHelp() string {
	switch m.state {
	case historyStateTimeframe:
		return "Esc: volver | Enter: elegir"
	case historyStateList:
		return "Esc: período | Enter: ver cierre"
	case historyStateReport:
		return "Esc: volver | ↑/↓: desplazar"
	}

	return ""
}

func (m HistoryModel) Init() tea.Cmd {
	return nil
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.loading = true
		m.state = historyStateList
		m.period = msg.Label

		return m, m.loadSummariesCmd(msg.Range)

	case loadSummariesMsg:
		m.loading = false
		if msg.err != nil {
			m.status = errorText(msg.err)
			return m, nil
		}

		m.summaries = msg.summaries
		m.status = ""
		m.refreshTable()

		if len(msg.summaries) == 0 {
			m.status = "No hay cierres en el período."
		}

		return m, nil

	case loadReportMsg:
		m.loading = false
		if msg.err != nil {
			m.status = errorText(msg.err)
			m.state = historyStateList

			return m, nil
		}

		m.report.SetContent(msg.text)
		m.report.GotoTop()
		m.state = historyStateReport

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))
		m.report.Width = msg.Width - 4
		m.report.Height = max(msg.Height-6, 5)

		return m, nil
	}

	switch m.state {
	case historyStateTimeframe:
		return m.updateTimeframe(msg)
	case historyStateList:
		return m.updateList(msg)
	case historyStateReport:
		return m.updateReport(msg)
	}

	return m, nil
}

func (m HistoryModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m HistoryModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.state = historyStateTimeframe
			m.timeframePicker.Reset()
			m.status = ""

			return m, nil
		case tea.KeyEnter:
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.summaries) {
				return m, nil
			}

			m.loading = true

			return m, m.loadReportCmd(m.summaries[idx])
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m HistoryModel) updateReport(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = historyStateList
		return m, nil
	}

	var cmd tea.Cmd
	m.report, cmd = m.report.Update(msg)

	return m, cmd
}

func (m HistoryModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Cargando...")
	}

	var content string

	switch m.state {
	case historyStateTimeframe:
		content = m.timeframePicker.View()
	case historyStateList:
		content = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf("Período: %s | %d cierres", m.period, len(m.summaries))),
			lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Render(m.table.View()),
		)
	case historyStateReport:
		content = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Render(m.report.View())
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *HistoryModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.summaries))
	for _, sum := range m.summaries {
		rows = append(rows, table.Row{
			sum.ClosedAt.Local().Format("2006-01-02 15:04"),
			sum.ClosedBy,
			FormatAmount(sum.ExpectedCash),
			FormatAmount(sum.CountedCash),
			FormatAmount(sum.Variance),
			sum.VarianceKind().Label(),
			fmt.Sprintf("%d", sum.MovementCount),
		})
	}

	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Messages

type loadSummariesMsg struct {
	summaries []shift.ClosedSummary
	err       error
}

func (m HistoryModel) loadSummariesCmd(r shift.DateRange) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		summaries, err := m.history.List(ctx, r)

		return loadSummariesMsg{summaries: summaries, err: err}
	}
}

type loadReportMsg struct {
	text string
	err  error
}

func (m HistoryModel) loadReportCmd(sum shift.ClosedSummary) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		text, err := m.reports.Report(ctx, sum.ShiftID)

		return loadReportMsg{text: text, err: err}
	}
}
