// Package report renders the printable close ticket of a shift.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/money"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

var ErrShiftOpen = errors.New("shift is still open")

// Service builds close reports from the shift history.
type Service struct {
	history *shift.History
	format  *money.Formatter
	loc     *time.Location
}

// NewService creates a report service. Times are printed in loc; nil means UTC.
func NewService(history *shift.History, format *money.Formatter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}

	return &Service{history: history, format: format, loc: loc}
}

// Report returns the close ticket of the closed shift id.
func (s *Service) Report(ctx context.Context, id uuid.UUID) (string, error) {
	detail, err := s.history.Detail(ctx, id)
	if err != nil {
		return "", err
	}

	return s.Render(detail)
}

// Render formats a closed shift and its movements as a plain-text ticket.
func (s *Service) Render(detail *shift.Detail) (string, error) {
	sum, ok := shift.SummaryOf(detail.Shift)
	if !ok {
		return "", ErrShiftOpen
	}

	totals := shift.Summarize(detail.Movements)

	var sb strings.Builder

	sb.WriteString("CIERRE DE CAJA\n")
	fmt.Fprintf(&sb, "Turno:      %s\n", sum.ShiftID)
	fmt.Fprintf(&sb, "Caja:       %s\n", sum.RegisterID)
	fmt.Fprintf(&sb, "Apertura:   %s (%s)\n", s.timestamp(sum.OpenedAt), sum.Operator)
	fmt.Fprintf(&sb, "Cierre:     %s (%s)\n", s.timestamp(sum.ClosedAt), sum.ClosedBy)
	fmt.Fprintf(&sb, "Duración:   %s\n", formatDuration(sum.Duration()))
	sb.WriteString("\n")

	s.line(&sb, "Fondo inicial", sum.OpeningFloat)
	s.line(&sb, "Ingresos en efectivo", sum.CashIncome)
	s.line(&sb, "Egresos en efectivo", sum.CashExpense)
	s.line(&sb, "Efectivo esperado", sum.ExpectedCash)
	s.line(&sb, "Efectivo contado", sum.CountedCash)
	fmt.Fprintf(&sb, "%-22s %14s  %s\n", "Diferencia", s.format.Currency(sum.Variance), sum.VarianceKind().Label())
	sb.WriteString("\n")

	sb.WriteString("POR MEDIO DE PAGO\n")

	for _, method := range shift.PaymentMethods {
		flow, ok := totals.ByMethod[method]
		if !ok {
			continue
		}

		s.flow(&sb, method.Label(), flow)
	}

	s.flow(&sb, "Otros medios", totals.Other)
	sb.WriteString("\n")

	sb.WriteString("POR CATEGORÍA\n")

	for _, category := range shift.Categories {
		flow, ok := totals.ByCategory[category]
		if !ok {
			continue
		}

		s.flow(&sb, category.Label(), flow)
	}

	sb.WriteString("\n")

	fmt.Fprintf(&sb, "MOVIMIENTOS (%d: %d ingresos, %d egresos)\n",
		sum.MovementCount, sum.IncomeCount, sum.ExpenseCount)

	for _, m := range detail.Movements {
		sign := "-"
		if m.Type == shift.TypeIncome {
			sign = "+"
		}

		fmt.Fprintf(&sb, "* %s | %s%s | %s | %s | %s\n",
			m.OccurredAt.In(s.loc).Format("15:04"), sign, s.format.Currency(m.Amount),
			m.PaymentMethod.Label(), m.Category.Label(), m.Description)
	}

	if sum.Observations != "" {
		fmt.Fprintf(&sb, "\nObservaciones: %s\n", sum.Observations)
	}

	return sb.String(), nil
}

func (s *Service) line(sb *strings.Builder, label string, cents int64) {
	fmt.Fprintf(sb, "%-22s %14s\n", label, s.format.Currency(cents))
}

func (s *Service) flow(sb *strings.Builder, label string, f shift.Flow) {
	fmt.Fprintf(sb, "  %-20s +%s  -%s  = %s\n",
		label, s.format.Currency(f.Income), s.format.Currency(f.Expense), s.format.Currency(f.Net()))
}

func (s *Service) timestamp(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)

	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}
