package shift

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/auth"
	"github.com/MrJamesThe3rd/caja/internal/http/apierror"
	"github.com/MrJamesThe3rd/caja/internal/http/bind"
	"github.com/MrJamesThe3rd/caja/internal/report"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type Handler struct {
	ledger  *shift.Ledger
	history *shift.History
	reports *report.Service
}

func NewHandler(ledger *shift.Ledger, history *shift.History, reports *report.Service) *Handler {
	return &Handler{ledger: ledger, history: history, reports: reports}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.open)
	r.Get("/", h.list)
	r.Get("/active", h.active)
	r.Get("/active/expected-cash", h.expectedCash)
	r.Post("/active/close", h.close)
	r.Get("/{id}", h.get)
	r.Get("/{id}/report", h.report)
}

type openShiftRequest struct {
	OpeningFloat *int64 `json:"opening_float" validate:"required"`
	Operator     string `json:"operator,omitempty" validate:"max=100"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openShiftRequest
	if err := bind.JSON(r, &req); err != nil {
		apierror.Validation(w, err.Error())
		return
	}

	operator := req.Operator
	if op, ok := auth.OperatorFrom(r.Context()); ok {
		operator = op
	}

	s, err := h.ledger.Open(r.Context(), shift.OpenParams{
		OpeningFloat: *req.OpeningFloat,
		Operator:     operator,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toShiftResponse(s)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// active writes the open shift, or JSON null when there is none.
func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.Active(r.Context())
	if err != nil {
		apierror.Write(w, err)
		return
	}

	var resp *activeResponse
	if a != nil {
		resp = new(toActiveResponse(a))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) expectedCash(w http.ResponseWriter, r *http.Request) {
	expected, err := h.ledger.ExpectedCash(r.Context())
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]int64{"expected_cash": expected}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type closeShiftRequest struct {
	CountedCash  *int64 `json:"counted_cash" validate:"required"`
	Observations string `json:"observations,omitempty" validate:"max=1000"`
	ClosedBy     string `json:"closed_by,omitempty" validate:"max=100"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	var req closeShiftRequest
	if err := bind.JSON(r, &req); err != nil {
		apierror.Validation(w, err.Error())
		return
	}

	closedBy := req.ClosedBy
	if op, ok := auth.OperatorFrom(r.Context()); ok {
		closedBy = op
	}

	summary, err := h.ledger.Close(r.Context(), shift.CloseParams{
		CountedCash:  *req.CountedCash,
		Observations: req.Observations,
		ClosedBy:     closedBy,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toSummaryResponse(summary)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var dates shift.DateRange

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := parseDate(s, false)
		if err != nil {
			apierror.Validation(w, err.Error())
			return
		}

		dates.From = &t
	}

	if s := r.URL.Query().Get("to"); s != "" {
		t, err := parseDate(s, true)
		if err != nil {
			apierror.Validation(w, err.Error())
			return
		}

		dates.To = &t
	}

	summaries, err := h.history.List(r.Context(), dates)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	resp := make([]summaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = toSummaryResponse(s)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// parseDate accepts RFC 3339 or a plain date. A plain upper bound covers the
// whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return t, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Validation(w, "invalid id")
		return
	}

	detail, err := h.history.Detail(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	sum, _ := shift.SummaryOf(detail.Shift)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toDetailResponse(detail, sum)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Validation(w, "invalid id")
		return
	}

	text, err := h.reports.Report(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write report", "error", err)
	}
}
