package movement

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/auth"
	"github.com/MrJamesThe3rd/caja/internal/http/apierror"
	"github.com/MrJamesThe3rd/caja/internal/http/bind"
	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type Handler struct {
	ledger *shift.Ledger
}

func NewHandler(ledger *shift.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/", h.list)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type recordMovementRequest struct {
	ShiftID       *uuid.UUID          `json:"shift_id,omitempty"`
	Type          shift.Type          `json:"type" validate:"required"`
	Amount        *int64              `json:"amount" validate:"required"`
	PaymentMethod shift.PaymentMethod `json:"payment_method,omitempty"`
	Category      shift.Category      `json:"category,omitempty"`
	Description   string              `json:"description" validate:"max=255"`
	RecordedBy    string              `json:"recorded_by,omitempty" validate:"max=100"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordMovementRequest
	if err := bind.JSON(r, &req); err != nil {
		apierror.Validation(w, err.Error())
		return
	}

	recordedBy := req.RecordedBy
	if op, ok := auth.OperatorFrom(r.Context()); ok {
		recordedBy = op
	}

	m, err := h.ledger.Record(r.Context(), shift.RecordParams{
		ShiftID:       req.ShiftID,
		Type:          req.Type,
		Amount:        *req.Amount,
		PaymentMethod: req.PaymentMethod,
		Category:      req.Category,
		Description:   req.Description,
		RecordedBy:    recordedBy,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(ToResponse(m, true)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := shift.MovementFilter{}

	if s := r.URL.Query().Get("type"); s != "" {
		filter.Type = new(shift.Type(s))
	}

	if s := r.URL.Query().Get("payment_method"); s != "" {
		filter.PaymentMethod = new(shift.PaymentMethod(s))
	}

	if s := r.URL.Query().Get("category"); s != "" {
		filter.Category = new(shift.Category(s))
	}

	movements, err := h.ledger.Movements(r.Context(), filter)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(ToResponseList(movements, true)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateMovementRequest struct {
	Type          *shift.Type          `json:"type,omitempty"`
	Amount        *int64               `json:"amount,omitempty"`
	PaymentMethod *shift.PaymentMethod `json:"payment_method,omitempty"`
	Category      *shift.Category      `json:"category,omitempty"`
	Description   *string              `json:"description,omitempty" validate:"omitnil,max=255"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Validation(w, "invalid id")
		return
	}

	var req updateMovementRequest
	if err := bind.JSON(r, &req); err != nil {
		apierror.Validation(w, err.Error())
		return
	}

	m, err := h.ledger.EditMovement(r.Context(), id, shift.MovementPatch{
		Type:          req.Type,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Category:      req.Category,
		Description:   req.Description,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(ToResponse(m, true)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Validation(w, "invalid id")
		return
	}

	if err := h.ledger.DeleteMovement(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
