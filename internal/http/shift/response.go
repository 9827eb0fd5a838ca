package shift

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/http/movement"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type shiftResponse struct {
	ID           uuid.UUID    `json:"id"`
	RegisterID   string       `json:"register_id"`
	Status       shift.Status `json:"status"`
	Operator     string       `json:"operator"`
	OpenedAt     time.Time    `json:"opened_at"`
	OpeningFloat int64        `json:"opening_float"`
	ClosedAt     *time.Time   `json:"closed_at"`
	ClosedBy     *string      `json:"closed_by,omitempty"`
	CountedCash  *int64       `json:"counted_cash"`
	ExpectedCash *int64       `json:"expected_cash"`
	Variance     *int64       `json:"variance"`
	VarianceKind string       `json:"variance_kind,omitempty"`
	Observations string       `json:"observations,omitempty"`
}

func toShiftResponse(s *shift.Shift) shiftResponse {
	resp := shiftResponse{
		ID:           s.ID,
		RegisterID:   s.RegisterID,
		Status:       s.Status,
		Operator:     s.Operator,
		OpenedAt:     s.OpenedAt,
		OpeningFloat: s.OpeningFloat,
		ClosedAt:     s.ClosedAt,
		ClosedBy:     s.ClosedBy,
		CountedCash:  s.CountedCash,
		ExpectedCash: s.ExpectedCash,
		Variance:     s.Variance,
		Observations: s.Observations,
	}

	if s.Variance != nil {
		resp.VarianceKind = string(shift.KindOfVariance(*s.Variance))
	}

	return resp
}

type summaryResponse struct {
	ShiftID         uuid.UUID `json:"shift_id"`
	RegisterID      string    `json:"register_id"`
	Operator        string    `json:"operator"`
	ClosedBy        string    `json:"closed_by"`
	OpenedAt        time.Time `json:"opened_at"`
	ClosedAt        time.Time `json:"closed_at"`
	DurationMinutes int64     `json:"duration_minutes"`
	OpeningFloat    int64     `json:"opening_float"`
	CashIncome      int64     `json:"cash_income"`
	CashExpense     int64     `json:"cash_expense"`
	ExpectedCash    int64     `json:"expected_cash"`
	CountedCash     int64     `json:"counted_cash"`
	Variance        int64     `json:"variance"`
	VarianceKind    string    `json:"variance_kind"`
	MovementCount   int       `json:"movement_count"`
	IncomeCount     int       `json:"income_count"`
	ExpenseCount    int       `json:"expense_count"`
	Observations    string    `json:"observations"`
}

func toSummaryResponse(s shift.ClosedSummary) summaryResponse {
	return summaryResponse{
		ShiftID:         s.ShiftID,
		RegisterID:      s.RegisterID,
		Operator:        s.Operator,
		ClosedBy:        s.ClosedBy,
		OpenedAt:        s.OpenedAt,
		ClosedAt:        s.ClosedAt,
		DurationMinutes: int64(s.Duration() / time.Minute),
		OpeningFloat:    s.OpeningFloat,
		CashIncome:      s.CashIncome,
		CashExpense:     s.CashExpense,
		ExpectedCash:    s.ExpectedCash,
		CountedCash:     s.CountedCash,
		Variance:        s.Variance,
		VarianceKind:    string(s.VarianceKind()),
		MovementCount:   s.MovementCount,
		IncomeCount:     s.IncomeCount,
		ExpenseCount:    s.ExpenseCount,
		Observations:    s.Observations,
	}
}

type flowResponse struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}

func toFlowResponse(f shift.Flow) flowResponse {
	return flowResponse{Income: f.Income, Expense: f.Expense, Net: f.Net()}
}

type totalsResponse struct {
	Cash            flowResponse                         `json:"cash"`
	Other           flowResponse                         `json:"other"`
	ByPaymentMethod map[shift.PaymentMethod]flowResponse `json:"by_payment_method"`
	ByCategory      map[shift.Category]flowResponse      `json:"by_category"`
	MovementCount   int                                  `json:"movement_count"`
	IncomeCount     int                                  `json:"income_count"`
	ExpenseCount    int                                  `json:"expense_count"`
}

func toTotalsResponse(t shift.Totals) totalsResponse {
	resp := totalsResponse{
		Cash:            toFlowResponse(t.Cash),
		Other:           toFlowResponse(t.Other),
		ByPaymentMethod: make(map[shift.PaymentMethod]flowResponse, len(t.ByMethod)),
		ByCategory:      make(map[shift.Category]flowResponse, len(t.ByCategory)),
		MovementCount:   t.MovementCount,
		IncomeCount:     t.IncomeCount,
		ExpenseCount:    t.ExpenseCount,
	}

	for k, v := range t.ByMethod {
		resp.ByPaymentMethod[k] = toFlowResponse(v)
	}

	for k, v := range t.ByCategory {
		resp.ByCategory[k] = toFlowResponse(v)
	}

	return resp
}

type activeResponse struct {
	Shift        shiftResponse       `json:"shift"`
	Movements    []movement.Response `json:"movements"`
	ExpectedCash int64               `json:"expected_cash"`
	Totals       totalsResponse      `json:"totals"`
}

func toActiveResponse(a *shift.ActiveShift) activeResponse {
	return activeResponse{
		Shift:        toShiftResponse(a.Shift),
		Movements:    movement.ToResponseList(a.Movements, true),
		ExpectedCash: a.ExpectedCash,
		Totals:       toTotalsResponse(a.Totals),
	}
}

type detailResponse struct {
	Shift     shiftResponse       `json:"shift"`
	Movements []movement.Response `json:"movements"`
	Editable  bool                `json:"editable"`
	Summary   summaryResponse     `json:"summary"`
	Totals    totalsResponse      `json:"totals"`
}

func toDetailResponse(d *shift.Detail, sum shift.ClosedSummary) detailResponse {
	return detailResponse{
		Shift:     toShiftResponse(d.Shift),
		Movements: movement.ToResponseList(d.Movements, d.Editable()),
		Editable:  d.Editable(),
		Summary:   toSummaryResponse(sum),
		Totals:    toTotalsResponse(shift.Summarize(d.Movements)),
	}
}
