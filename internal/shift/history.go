package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History is the read-only archive of closed shifts. It never writes.
type History struct {
	repo       Repository
	registerID string
}

func NewHistory(repo Repository, registerID string) *History {
	if registerID == "" {
		registerID = DefaultRegisterID
	}

	return &History{repo: repo, registerID: registerID}
}

// DateRange bounds a history query by close time. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// List returns the summaries of shifts closed within r, most recent first.
func (h *History) List(ctx context.Context, r DateRange) ([]ClosedSummary, error) {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return nil, newError(ErrValidation, "date range ends before it starts")
	}

	shifts, err := h.repo.ListClosed(ctx, ClosedFilter{
		RegisterID: h.registerID,
		From:       r.From,
		To:         r.To,
	})
	if err != nil {
		return nil, fmt.Errorf("listing closed shifts: %w", err)
	}

	summaries := make([]ClosedSummary, 0, len(shifts))

	for _, s := range shifts {
		sum, ok := SummaryOf(s)
		if !ok {
			continue
		}

		summaries = append(summaries, sum)
	}

	return summaries, nil
}

// Detail returns a closed shift and its frozen movement set.
func (h *History) Detail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	s, err := h.repo.GetShift(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting shift %s: %w", id, err)
	}

	if s.IsOpen() {
		return nil, newError(ErrNotFound, "shift %s is still open and not in history", id)
	}

	movements, err := h.repo.ListMovements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}

	return &Detail{Shift: s, Movements: movements}, nil
}
