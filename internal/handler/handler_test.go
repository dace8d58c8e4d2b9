package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxengine/internal/handler"
	"taxengine/internal/repository"
	"taxengine/internal/seed"
	"taxengine/internal/service"
	"taxengine/internal/tax"
	"taxengine/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("handler-test-secret")

type silentNotifier struct{}

func (silentNotifier) NotifyUnreadCount(string, int64) {}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func newServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	schedules := repository.NewScheduleRepository(db)
	audit := repository.NewAuditRepository(db)
	store := tax.NewCachedStore(schedules, tax.DefaultCachedStoreConfig())
	txManager := repository.NewTransactionManager(db)
	taxService := service.NewTaxService(tax.NewEngine(store), schedules, store, txManager, audit)
	require.NoError(t, seed.Run(context.Background(), txManager, schedules, taxService))

	r := gin.New()
	api := r.Group("")
	handler.NewTaxHandler(taxService, secret).RegisterRoutes(api)
	handler.NewReminderHandler(service.NewReminderService(repository.NewReminderRepository(db), audit, silentNotifier{}), secret).RegisterRoutes(api)
	handler.NewAuditHandler(service.NewAuditService(audit), secret).RegisterRoutes(api)
	return r
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, r http.Handler, method, path, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestCalculateTax(t *testing.T) {
	r := newServer(t)
	alice := token(t, "alice", "personal")

	code, env := do(t, r, http.MethodPost, "/api/tax/calculate", alice, map[string]string{
		"regime": "paye", "amount": "2000000", "as_of": "2025-06-30",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var res service.TaxResultResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "220000.00", res.TotalTax)
	assert.Equal(t, "2025", res.PolicyVersion)
	assert.NotEmpty(t, res.ExplanationSteps)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
		code string
	}{
		{"negative amount", map[string]interface{}{"regime": "paye", "amount": "-1"}, http.StatusBadRequest, "invalid_amount"},
		{"missing regime", map[string]interface{}{"amount": "1"}, http.StatusBadRequest, "invalid_input"},
		{"unknown category", map[string]interface{}{"regime": "vat", "amount": "1", "vat_category": "yachts"}, http.StatusBadRequest, "unknown_vat_category"},
		{"missing size", map[string]interface{}{"regime": "cit", "amount": "1"}, http.StatusBadRequest, "missing_discriminator"},
		{"before any policy", map[string]interface{}{"regime": "paye", "amount": "1", "as_of": "2001-01-01"}, http.StatusNotFound, "no_applicable_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, r, http.MethodPost, "/api/tax/calculate", alice, tt.body)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.code, env.Code)
		})
	}

	code, _ = do(t, r, http.MethodPost, "/api/tax/calculate", "", map[string]string{"regime": "paye", "amount": "1"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSchedulesAndPolicies(t *testing.T) {
	r := newServer(t)
	alice := token(t, "alice", "personal")
	admin := token(t, "root", "admin")

	code, env := do(t, r, http.MethodGet, "/api/tax/schedules/personal/active?date=2026-03-01", alice, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var schedule service.ScheduleResponse
	require.NoError(t, json.Unmarshal(env.Data, &schedule))
	assert.Equal(t, "2026", schedule.PolicyVersion)

	code, _ = do(t, r, http.MethodGet, "/api/tax/schedules/personal/active?date=March", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/api/tax/schedules/company/2025", alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, "/api/tax/schedules/company/1999", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, r, http.MethodGet, "/api/tax/schedules?limit=2", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Schedules []service.ScheduleResponse `json:"schedules"`
		Total     int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Schedules, 2)
	assert.Equal(t, int64(6), page.Total)

	policy := service.PublishPolicyRequest{
		PolicyVersion: "2025",
		EffectiveFrom: "2027-01-01",
		Schedules: []service.ScheduleInput{{
			Role:  "personal",
			Bands: []service.BandInput{{LowerBound: "0", Rate: "0.1"}},
		}},
	}
	code, _ = do(t, r, http.MethodPost, "/api/tax/policies", alice, policy)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = do(t, r, http.MethodPost, "/api/tax/policies", admin, policy)
	assert.Equal(t, http.StatusConflict, code)

	policy.PolicyVersion = "2027"
	code, env = do(t, r, http.MethodPost, "/api/tax/policies", admin, policy)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = do(t, r, http.MethodPost, "/api/tax/calculate", alice, map[string]string{
		"regime": "paye", "amount": "1000", "as_of": "2027-02-01",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var res service.TaxResultResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "2027", res.PolicyVersion)
	assert.Equal(t, "100.00", res.TotalTax)
}

func TestReminders(t *testing.T) {
	r := newServer(t)
	alice := token(t, "alice", "trader")
	admin := token(t, "root", "admin")

	body := map[string]string{"due_date": "2026-03-31", "message": "File VAT", "notification_id": "vat-q1"}
	code, env := do(t, r, http.MethodPost, "/api/reminders", alice, body)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = do(t, r, http.MethodPost, "/api/reminders", alice, body)
	assert.Equal(t, http.StatusConflict, code)

	code, env = do(t, r, http.MethodGet, "/api/reminders/unread/count", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unread_count":1}`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/api/reminders/due?date=2026-03-31", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var due []service.ReminderResponse
	require.NoError(t, json.Unmarshal(env.Data, &due))
	require.Len(t, due, 1)

	code, _ = do(t, r, http.MethodGet, "/api/reminders/due", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = do(t, r, http.MethodPost, "/api/reminders/vat-q1/sent", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"marked":true}`, string(env.Data))
	code, _ = do(t, r, http.MethodPost, "/api/reminders/missing/sent", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, r, http.MethodPost, "/api/reminders/read", alice, map[string][]string{"notification_ids": {"vat-q1"}})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"updated":1,"unread_count":0}`, string(env.Data))

	code, _ = do(t, r, http.MethodPost, "/api/reminders/read", alice, map[string][]string{"notification_ids": {}})
	assert.Equal(t, http.StatusBadRequest, code)

	anonymous := token(t, "", "trader")
	code, _ = do(t, r, http.MethodPost, "/api/reminders/read", anonymous, map[string][]string{"notification_ids": {"vat-q1"}})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = do(t, r, http.MethodGet, "/api/audit-logs?action=SCHEDULE_REMINDER", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var logs struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Equal(t, int64(1), logs.Total)
}
