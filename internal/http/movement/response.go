package movement

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

type Response struct {
	ID            uuid.UUID           `json:"id"`
	ShiftID       uuid.UUID           `json:"shift_id"`
	Type          shift.Type          `json:"type"`
	Amount        int64               `json:"amount"`
	PaymentMethod shift.PaymentMethod `json:"payment_method"`
	Category      shift.Category      `json:"category"`
	Description   string              `json:"description"`
	RecordedBy    string              `json:"recorded_by,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     *time.Time          `json:"updated_at,omitempty"`
	Editable      bool                `json:"editable"`
}

// ToResponse renders m; editable reflects the owning shift's current status.
func ToResponse(m *shift.Movement, editable bool) Response {
	return Response{
		ID:            m.ID,
		ShiftID:       m.ShiftID,
		Type:          m.Type,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
		Category:      m.Category,
		Description:   m.Description,
		RecordedBy:    m.RecordedBy,
		OccurredAt:    m.OccurredAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Editable:      editable,
	}
}

func ToResponseList(movements []*shift.Movement, editable bool) []Response {
	resp := make([]Response, len(movements))
	for i, m := range movements {
		resp[i] = ToResponse(m, editable)
	}

	return resp
}
