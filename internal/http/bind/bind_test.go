package bind

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Amount      *int64 `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=5"`
}

func TestJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "Valid", body: `{"amount": -5, "description": "ok"}`},
		{name: "MissingAmount", body: `{"description": "ok"}`, wantErr: "amount: is required"},
		{name: "TooLong", body: `{"amount": 1, "description": "too long"}`, wantErr: "description: must be at most 5 characters"},
		{name: "UnknownField", body: `{"amount": 1, "color": "red"}`, wantErr: "invalid request body"},
		{name: "NotJSON", body: `amount=1`, wantErr: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))

			var dst sample
			err := JSON(req, &dst)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(-5), *dst.Amount)
		})
	}
}
