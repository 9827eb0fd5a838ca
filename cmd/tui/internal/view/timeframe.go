package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// Timeframe is a predefined or custom close-date range.
type Timeframe int

const (
	TimeframeToday Timeframe = iota
	TimeframeThisWeek
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeToday:
		return "Hoy"
	case TimeframeThisWeek:
		return "Esta semana"
	case TimeframeLastWeek:
		return "Semana pasada"
	case TimeframeThisMonth:
		return "Este mes"
	case TimeframeLastMonth:
		return "Mes pasado"
	case TimeframeAll:
		return "Todos"
	case TimeframeCustom:
		return "Rango personalizado"
	}

	return "Desconocido"
}

// timeframeToDateRange resolves tf against now. Weeks start on Monday.
func timeframeToDateRange(tf Timeframe, now time.Time) (time.Time, time.Time) {
	var start, end time.Time

	switch tf {
	case TimeframeToday:
		start, end = now, now
	case TimeframeThisWeek:
		start = now.AddDate(0, 0, -daysSinceMonday(now))
		end = now
	case TimeframeLastWeek:
		end = now.AddDate(0, 0, -daysSinceMonday(now)-1)
		start = end.AddDate(0, 0, -6)
	case TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	case TimeframeLastMonth:
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, -1)
	}

	return wholeDays(start, end)
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// wholeDays widens the range to whole days in the zone of start.
func wholeDays(start, end time.Time) (time.Time, time.Time) {
	loc := start.Location()

	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, loc)
}

// TimeframeSelectedMsg carries the chosen close-date range. Both ends are nil
// for TimeframeAll.
type TimeframeSelectedMsg struct {
	Range shift.DateRange
	Label string
}

type rangeInput struct {
	From string
	To   string
}

// TimeframePicker selects the close-date range of the history screen.
type TimeframePicker struct {
	selected Timeframe
	custom   *huh.Form
	input    *rangeInput
}

func NewTimeframePicker(initial Timeframe) TimeframePicker {
	return TimeframePicker{selected: initial}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.custom != nil {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.selected > TimeframeToday {
			m.selected--
		}
	case "down", "j":
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case "enter":
		return m.choose(time.Now())
	}

	return m, nil
}

func (m TimeframePicker) choose(now time.Time) (TimeframePicker, tea.Cmd) {
	label := m.selected.String()

	switch m.selected {
	case TimeframeCustom:
		m.input = &rangeInput{}
		m.custom = huh.NewForm(huh.NewGroup(
			dateInput("Desde", &m.input.From),
			dateInput("Hasta", &m.input.To),
		)).WithWidth(30).WithShowHelp(false)

		return m, m.custom.Init()
	case TimeframeAll:
		return m, selected(shift.DateRange{}, label)
	}

	from, to := timeframeToDateRange(m.selected, now)

	return m, selected(shift.DateRange{From: &from, To: &to}, label)
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.Reset()
		return m, nil
	}

	form, cmd := m.custom.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.custom = f
	}

	if m.custom.State != huh.StateCompleted {
		return m, cmd
	}

	from, _ := time.ParseInLocation(time.DateOnly, strings.TrimSpace(m.input.From), time.Local)
	to, _ := time.ParseInLocation(time.DateOnly, strings.TrimSpace(m.input.To), time.Local)

	if to.Before(from) {
		from, to = to, from
	}

	from, to = wholeDays(from, to)
	label := fmt.Sprintf("%s a %s", m.input.From, m.input.To)

	m.Reset()

	return m, selected(shift.DateRange{From: &from, To: &to}, label)
}

func selected(r shift.DateRange, label string) tea.Cmd {
	return func() tea.Msg {
		return TimeframeSelectedMsg{Range: r, Label: label}
	}
}

func dateInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		Placeholder("AAAA-MM-DD").
		CharLimit(10).
		Value(value).
		Validate(func(s string) error {
			if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
				return fmt.Errorf("fecha inválida (AAAA-MM-DD)")
			}

			return nil
		})
}

func (m TimeframePicker) View() string {
	if m.custom != nil {
		return "Rango personalizado:\n\n" + m.custom.View() + "\n(Enter: confirmar | Esc: volver)"
	}

	var sb strings.Builder

	sb.WriteString("Período de cierre:\n\n")

	for tf := TimeframeToday; tf <= TimeframeCustom; tf++ {
		if tf == m.selected {
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render("> " + tf.String()))
		} else {
			sb.WriteString("  " + tf.String())
		}

		sb.WriteString("\n")
	}

	sb.WriteString("\n(Enter: elegir | Esc: volver)")

	return sb.String()
}

// IsSelecting reports whether the picker is on the preset list rather than
// the custom range form.
func (m TimeframePicker) IsSelecting() bool {
	return m.custom == nil
}

func (m *TimeframePicker) Reset() {
	m.custom = nil
	m.input = nil
}
