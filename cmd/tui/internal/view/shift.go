package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/caja/internal/money"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type shiftState int

const (
	shiftStateBrowse shiftState = iota
	shiftStateForm
	shiftStateClosed
)

type formKind int

const (
	formOpen formKind = iota
	formRecord
	formEdit
	formDelete
	formClose
)

// shiftInput holds the form bindings. It lives on the heap so the pointers
// huh keeps stay valid while the model is copied between updates.
type shiftInput struct {
	Operator     string
	Amount       string
	Type         shift.Type
	Method       shift.PaymentMethod
	Category     shift.Category
	Description  string
	Observations string
	Confirm      bool
}

// ShiftModel is the register screen: the open shift, its movements and the
// open, record, edit, delete and close actions.
type ShiftModel struct {
	CommonModel
	ledger *shift.Ledger

	state   shiftState
	kind    formKind
	form    *huh.Form
	input   *shiftInput
	table   table.Model
	active  *shift.ActiveShift
	summary *shift.ClosedSummary

	loading bool
	status  string
}

func NewShiftModel(ledger *shift.Ledger) ShiftModel {
	columns := []table.Column{
		{Title: "Hora", Width: 6},
		{Title: "Tipo", Width: 8},
		{Title: "Monto", Width: 14},
		{Title: "Medio", Width: 14},
		{Title: "Categoría", Width: 18},
		{Title: "Descripción", Width: 32},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
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

	return ShiftModel{
		ledger:  ledger,
		table:   t,
		loading: true,
	}
}

func (m ShiftModel) Title() string { return "Turno activo" }

func (m ShiftModel) ShortHelp() string {
	switch m.state {
	case shiftStateForm:
		return "Esc: cancelar | Enter/Tab: navegar"
	case shiftStateClosed:
		return "Enter/Esc: volver"
	}

	if m.active == nil {
		return "Esc: volver | o: abrir turno | r: refrescar"
	}

	return "Esc: volver | n: nuevo movimiento | e: editar | d: borrar | c: cerrar turno | r: refrescar"
}

func (m ShiftModel) Init() tea.Cmd {
	return m.loadActiveCmd()
}

func (m ShiftModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadActiveMsg:
		m.loading = false
		if msg.err != nil {
			m.status = errorText(msg.err)
			return m, nil
		}

		m.active = msg.active
		m.refreshTable()

		return m, nil

	case ledgerResultMsg:
		m.form = nil
		m.input = nil

		if msg.err != nil {
			m.state = shiftStateBrowse
			m.status = errorText(msg.err)
			m.table.Focus()

			return m, m.loadActiveCmd()
		}

		m.status = msg.status

		if msg.summary != nil {
			m.state = shiftStateClosed
			m.summary = msg.summary

			return m, m.loadActiveCmd()
		}

		m.state = shiftStateBrowse
		m.table.Focus()

		return m, m.loadActiveCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-16, 5))

		return m, nil
	}

	switch m.state {
	case shiftStateBrowse:
		return m.updateBrowse(msg)
	case shiftStateForm:
		return m.updateForm(msg)
	case shiftStateClosed:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && (keyMsg.Type == tea.KeyEnter || keyMsg.Type == tea.KeyEsc) {
			m.state = shiftStateBrowse
			m.summary = nil
			m.table.Focus()
		}
	}

	return m, nil
}

func (m ShiftModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadActiveCmd()
		case "o":
			if m.active == nil {
				return m.startForm(formOpen)
			}

			m.status = "Ya hay un turno abierto."

			return m, nil
		case "n":
			if m.active != nil {
				return m.startForm(formRecord)
			}
		case "e":
			if m.selected() != nil {
				return m.startForm(formEdit)
			}
		case "d":
			if m.selected() != nil {
				return m.startForm(formDelete)
			}
		case "c":
			if m.active != nil {
				return m.startForm(formClose)
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ShiftModel) selected() *shift.Movement {
	if m.active == nil {
		return nil
	}

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.active.Movements) {
		return nil
	}

	return m.active.Movements[idx]
}

func (m ShiftModel) startForm(kind formKind) (tea.Model, tea.Cmd) {
	m.kind = kind
	m.input = &shiftInput{
		Type:     shift.TypeIncome,
		Method:   shift.PaymentCash,
		Category: shift.CategoryServices,
	}
	m.status = ""

	switch kind {
	case formOpen:
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Key("operator").
				Title("Operador").
				Value(&m.input.Operator).
				Validate(notBlank("el operador")),
			amountInput("Fondo inicial", &m.input.Amount, true),
		))

	case formRecord:
		m.form = huh.NewForm(huh.NewGroup(
			typeSelect(&m.input.Type),
			amountInput("Monto", &m.input.Amount, false),
			methodSelect(&m.input.Method),
			categorySelect(&m.input.Category),
			huh.NewInput().
				Key("description").
				Title("Descripción").
				Value(&m.input.Description).
				Validate(notBlank("la descripción")),
		))

	case formEdit:
		mv := m.selected()
		m.input.Type = mv.Type
		m.input.Amount = money.Decimal(mv.Amount)
		m.input.Method = mv.PaymentMethod
		m.input.Category = mv.Category
		m.input.Description = mv.Description

		m.form = huh.NewForm(huh.NewGroup(
			typeSelect(&m.input.Type),
			amountInput("Monto", &m.input.Amount, false),
			methodSelect(&m.input.Method),
			categorySelect(&m.input.Category),
			huh.NewInput().
				Key("description").
				Title("Descripción").
				Value(&m.input.Description).
				Validate(notBlank("la descripción")),
		))

	case formDelete:
		mv := m.selected()
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("¿Borrar %q por %s?", mv.Description, FormatAmount(mv.Amount))).
				Affirmative("Sí").
				Negative("No").
				Value(&m.input.Confirm),
		))

	case formClose:
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewNote().
				Title("Cerrar turno").
				Description(fmt.Sprintf("Efectivo esperado: %s", FormatAmount(m.active.ExpectedCash))),
			amountInput("Efectivo contado", &m.input.Amount, true),
			huh.NewText().
				Key("observations").
				Title("Observaciones").
				Value(&m.input.Observations),
			huh.NewConfirm().
				Key("confirm").
				Title("¿Confirmar cierre? No se podrá modificar.").
				Affirmative("Cerrar").
				Negative("Cancelar").
				Value(&m.input.Confirm),
		))
	}

	m.form = m.form.WithWidth(50).WithShowHelp(false)
	m.state = shiftStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m ShiftModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = shiftStateBrowse
		m.form = nil
		m.input = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.submitCmd()
}

func (m ShiftModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Cargando turno...")
	}

	var content string

	switch {
	case m.state == shiftStateClosed && m.summary != nil:
		content = renderSummary(*m.summary)
	case m.active == nil:
		content = "No hay un turno abierto.\n\nPresioná [o] para abrir la caja."
	default:
		content = lipgloss.JoinVertical(lipgloss.Left,
			m.header(),
			lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Render(m.table.View()),
		)
	}

	if m.state == shiftStateForm && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(54).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ShiftModel) header() string {
	s := m.active.Shift
	t := m.active.Totals

	return lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf(
		"Turno de %s desde %s %s\n"+
			"Fondo inicial %s | Ingresos ef. %s | Egresos ef. %s | Esperado %s\n"+
			"Otros medios: +%s -%s | %d movimientos",
		activeStyle(s.Operator), FormatDate(s.OpenedAt), FormatTime(s.OpenedAt),
		FormatAmount(s.OpeningFloat), FormatAmount(t.Cash.Income), FormatAmount(t.Cash.Expense),
		activeStyle(FormatAmount(m.active.ExpectedCash)),
		FormatAmount(t.Other.Income), FormatAmount(t.Other.Expense), t.MovementCount,
	))
}

func renderSummary(sum shift.ClosedSummary) string {
	var sb strings.Builder

	sb.WriteString(lipgloss.NewStyle().Bold(true).Render("Turno cerrado"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Esperado:   %s\n", FormatAmount(sum.ExpectedCash))
	fmt.Fprintf(&sb, "Contado:    %s\n", FormatAmount(sum.CountedCash))
	fmt.Fprintf(&sb, "Diferencia: %s %s\n", FormatAmount(sum.Variance), varianceStyle(sum.VarianceKind()))
	fmt.Fprintf(&sb, "Movimientos: %d (%d ingresos, %d egresos)\n", sum.MovementCount, sum.IncomeCount, sum.ExpenseCount)

	return sb.String()
}

func varianceStyle(k shift.VarianceKind) string {
	color := lipgloss.Color("42")

	switch k {
	case shift.VarianceShortage:
		color = lipgloss.Color("196")
	case shift.VarianceSurplus:
		color = lipgloss.Color("214")
	}

	return lipgloss.NewStyle().Foreground(color).Render(k.Label())
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *ShiftModel) refreshTable() {
	if m.active == nil {
		m.table.SetRows(nil)
		return
	}

	rows := make([]table.Row, 0, len(m.active.Movements))
	for _, mv := range m.active.Movements {
		kind := "Ingreso"
		if mv.Type == shift.TypeExpense {
			kind = "Egreso"
		}

		rows = append(rows, table.Row{
			FormatTime(mv.OccurredAt),
			kind,
			FormatAmount(mv.Amount),
			mv.PaymentMethod.Label(),
			mv.Category.Label(),
			mv.Description,
		})
	}

	m.table.SetRows(rows)
}

// Form fields

func notBlank(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s no puede estar vacío", what)
		}

		return nil
	}
}

func amountInput(title string, value *string, allowZero bool) *huh.Input {
	return huh.NewInput().
		Key("amount").
		Title(title).
		Placeholder("0,00").
		Value(value).
		Validate(func(s string) error {
			cents, err := money.Parse(s)
			if err != nil {
				return fmt.Errorf("monto inválido")
			}

			if cents < 0 || (cents == 0 && !allowZero) {
				return fmt.Errorf("el monto debe ser positivo")
			}

			return nil
		})
}

func typeSelect(value *shift.Type) *huh.Select[shift.Type] {
	return huh.NewSelect[shift.Type]().
		Key("type").
		Title("Tipo").
		Options(
			huh.NewOption("Ingreso", shift.TypeIncome),
			huh.NewOption("Egreso", shift.TypeExpense),
		).
		Value(value)
}

func methodSelect(value *shift.PaymentMethod) *huh.Select[shift.PaymentMethod] {
	opts := make([]huh.Option[shift.PaymentMethod], 0, len(shift.PaymentMethods))
	for _, p := range shift.PaymentMethods {
		opts = append(opts, huh.NewOption(p.Label(), p))
	}

	return huh.NewSelect[shift.PaymentMethod]().
		Key("payment_method").
		Title("Medio de pago").
		Options(opts...).
		Value(value)
}

func categorySelect(value *shift.Category) *huh.Select[shift.Category] {
	opts := make([]huh.Option[shift.Category], 0, len(shift.Categories))
	for _, c := range shift.Categories {
		opts = append(opts, huh.NewOption(c.Label(), c))
	}

	return huh.NewSelect[shift.Category]().
		Key("category").
		Title("Categoría").
		Options(opts...).
		Value(value)
}

// errorText maps ledger errors to operator-facing messages.
func errorText(err error) string {
	var e *shift.Error
	if errors.As(err, &e) {
		return "Error: " + e.Reason
	}

	switch shift.KindOf(err) {
	case shift.ErrTransient:
		return "La base de datos no responde. Intentá de nuevo."
	case shift.ErrNotFound:
		return "No encontrado."
	}

	return fmt.Sprintf("Error: %v", err)
}

// Messages

type loadActiveMsg struct {
	active *shift.ActiveShift
	err    error
}

func (m ShiftModel) loadActiveCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		active, err := m.ledger.Active(ctx)

		return loadActiveMsg{active: active, err: err}
	}
}

type ledgerResultMsg struct {
	status  string
	summary *shift.ClosedSummary
	err     error
}

func (m ShiftModel) submitCmd() tea.Cmd {
	var (
		kind   = m.kind
		in     = *m.input
		target = m.selected()
		active = m.active
	)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		switch kind {
		case formOpen:
			float, _ := money.Parse(in.Amount)

			_, err := m.ledger.Open(ctx, shift.OpenParams{OpeningFloat: float, Operator: strings.TrimSpace(in.Operator)})
			if err != nil {
				return ledgerResultMsg{err: err}
			}

			return ledgerResultMsg{status: "Turno abierto."}

		case formRecord:
			amount, _ := money.Parse(in.Amount)

			_, err := m.ledger.Record(ctx, shift.RecordParams{
				ShiftID:       &active.Shift.ID,
				Type:          in.Type,
				Amount:        amount,
				PaymentMethod: in.Method,
				Category:      in.Category,
				Description:   strings.TrimSpace(in.Description),
				RecordedBy:    active.Shift.Operator,
			})
			if err != nil {
				return ledgerResultMsg{err: err}
			}

			return ledgerResultMsg{status: "Movimiento registrado."}

		case formEdit:
			amount, _ := money.Parse(in.Amount)
			desc := strings.TrimSpace(in.Description)

			_, err := m.ledger.EditMovement(ctx, target.ID, shift.MovementPatch{
				Type:          &in.Type,
				Amount:        &amount,
				PaymentMethod: &in.Method,
				Category:      &in.Category,
				Description:   &desc,
			})
			if err != nil {
				return ledgerResultMsg{err: err}
			}

			return ledgerResultMsg{status: "Movimiento actualizado."}

		case formDelete:
			if !in.Confirm {
				return ledgerResultMsg{status: "Sin cambios."}
			}

			if err := m.ledger.DeleteMovement(ctx, target.ID); err != nil {
				return ledgerResultMsg{err: err}
			}

			return ledgerResultMsg{status: "Movimiento borrado."}

		case formClose:
			if !in.Confirm {
				return ledgerResultMsg{status: "Cierre cancelado."}
			}

			counted, _ := money.Parse(in.Amount)

			sum, err := m.ledger.Close(ctx, shift.CloseParams{
				CountedCash:  counted,
				Observations: strings.TrimSpace(in.Observations),
			})
			if err != nil {
				return ledgerResultMsg{err: err}
			}

			return ledgerResultMsg{status: "Turno cerrado.", summary: &sum}
		}

		return ledgerResultMsg{}
	}
}
