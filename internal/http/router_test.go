package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caja/internal/auth"
	"github.com/MrJamesThe3rd/caja/internal/config"
	"github.com/MrJamesThe3rd/caja/internal/database"
	cajaHttp "github.com/MrJamesThe3rd/caja/internal/http"
	movementHandler "github.com/MrJamesThe3rd/caja/internal/http/movement"
	shiftHandler "github.com/MrJamesThe3rd/caja/internal/http/shift"
	"github.com/MrJamesThe3rd/caja/internal/money"
	"github.com/MrJamesThe3rd/caja/internal/report"
	"github.com/MrJamesThe3rd/caja/internal/shift"
	"github.com/MrJamesThe3rd/caja/internal/shift/store"
)

func newServer(t *testing.T, tokens *auth.Tokens) *httptest.Server {
	t.Helper()

	dsn := config.SQLiteDSN(filepath.Join(t.TempDir(), "caja.db"))
	require.NoError(t, database.Migrate(database.DriverSQLite, dsn))

	db, err := database.New(database.DriverSQLite, dsn)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	repo := store.New(db, store.DialectSQLite)
	ledger := shift.NewLedger(repo)
	history := shift.NewHistory(repo, ledger.RegisterID())
	reports := report.NewService(history, money.NewFormatter("es"), time.UTC)

	router := cajaHttp.New(
		shiftHandler.NewHandler(ledger, history, reports),
		movementHandler.NewHandler(ledger),
		cajaHttp.Options{Tokens: tokens, AllowedOrigins: []string{"http://localhost:5173"}},
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)

		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)

	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))

	return v
}

func TestAPI_ShiftLifecycle(t *testing.T) {
	srv := newServer(t, nil)
	c := &client{t: t, base: srv.URL + "/api/v1"}

	resp, body := c.do(http.MethodGet, "/shifts/active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", strings.TrimSpace(string(body)))

	resp, body = c.do(http.MethodPost, "/shifts", map[string]any{"opening_float": 10000, "operator": "ana"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	opened := decode[map[string]any](t, body)
	shiftID := opened["id"].(string)
	assert.Equal(t, "open", opened["status"])
	assert.Equal(t, "ana", opened["operator"])

	resp, body = c.do(http.MethodPost, "/shifts", map[string]any{"opening_float": 5000, "operator": "beto"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decode[map[string]any](t, body)["kind"])

	resp, body = c.do(http.MethodPost, "/movements", map[string]any{
		"type": "income", "amount": 5000, "payment_method": "cash", "category": "servicios", "description": "cliente A",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	income := decode[map[string]any](t, body)
	assert.Equal(t, true, income["editable"])

	resp, body = c.do(http.MethodPost, "/movements", map[string]any{
		"type": "expense", "amount": 2000, "payment_method": "cash", "category": "gastos", "description": "shampoo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = c.do(http.MethodPost, "/movements", map[string]any{
		"type": "income", "amount": -5, "payment_method": "cash", "description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decode[map[string]any](t, body)["kind"])

	resp, body = c.do(http.MethodGet, "/shifts/active/expected-cash", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(13000), decode[map[string]any](t, body)["expected_cash"])

	resp, body = c.do(http.MethodGet, "/movements?type=expense", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	resp, body = c.do(http.MethodPost, "/shifts/active/close", map[string]any{"counted_cash": 12500, "observations": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	summary := decode[map[string]any](t, body)
	assert.Equal(t, float64(13000), summary["expected_cash"])
	assert.Equal(t, float64(-500), summary["variance"])
	assert.Equal(t, "faltante", summary["variance_kind"])
	assert.Equal(t, float64(2), summary["movement_count"])
	assert.Equal(t, float64(1), summary["income_count"])
	assert.Equal(t, float64(1), summary["expense_count"])

	resp, _ = c.do(http.MethodPost, "/movements", map[string]any{
		"shift_id": shiftID, "type": "income", "amount": 100, "description": "late",
	})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, _ = c.do(http.MethodPatch, fmt.Sprintf("/movements/%s", income["id"]), map[string]any{"amount": 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = c.do(http.MethodDelete, fmt.Sprintf("/movements/%s", income["id"]), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = c.do(http.MethodGet, "/shifts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	resp, body = c.do(http.MethodGet, "/shifts/"+shiftID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	detail := decode[map[string]any](t, body)
	assert.Equal(t, false, detail["editable"])

	movements := detail["movements"].([]any)
	require.Len(t, movements, 2)

	for _, m := range movements {
		assert.Equal(t, false, m.(map[string]any)["editable"])
	}

	resp, body = c.do(http.MethodGet, "/shifts/"+shiftID+"/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Faltante")
	assert.Contains(t, string(body), "$ 130,00")

	resp, _ = c.do(http.MethodGet, "/shifts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/shifts?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/shifts/active/close", map[string]any{"counted_cash": 100})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestAPI_EditOpenMovement(t *testing.T) {
	srv := newServer(t, nil)
	c := &client{t: t, base: srv.URL + "/api/v1"}

	resp, _ := c.do(http.MethodPost, "/shifts", map[string]any{"opening_float": 0, "operator": "ana"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := c.do(http.MethodPost, "/movements", map[string]any{"type": "income", "amount": 500, "description": "Corte"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[map[string]any](t, body)
	assert.Equal(t, "cash", created["payment_method"])
	assert.Equal(t, "servicios", created["category"])

	resp, body = c.do(http.MethodPut, fmt.Sprintf("/movements/%s", created["id"]), map[string]any{"amount": 700})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, float64(700), decode[map[string]any](t, body)["amount"])

	resp, _ = c.do(http.MethodDelete, fmt.Sprintf("/movements/%s", created["id"]), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = c.do(http.MethodDelete, fmt.Sprintf("/movements/%s", created["id"]), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/movements", map[string]any{"type": "income", "description": "no amount"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_OperatorFromToken(t *testing.T) {
	tokens := auth.NewTokens("s3cret", time.Hour)
	srv := newServer(t, tokens)

	anon := &client{t: t, base: srv.URL + "/api/v1"}
	resp, _ := anon.do(http.MethodGet, "/shifts/active", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.Issue("ana")
	require.NoError(t, err)

	c := &client{t: t, base: srv.URL + "/api/v1", token: token}

	resp, body := c.do(http.MethodPost, "/shifts", map[string]any{"opening_float": 100, "operator": "mallory"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "ana", decode[map[string]any](t, body)["operator"])

	resp, body = c.do(http.MethodPost, "/shifts/active/close", map[string]any{"counted_cash": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "ana", decode[map[string]any](t, body)["closed_by"])
	assert.Equal(t, "exacto", decode[map[string]any](t, body)["variance_kind"])

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusNoContent, health.StatusCode)
}
