package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextaweke/internet-cafe/internal/config"
	"github.com/alextaweke/internet-cafe/internal/database/dbtest"
	"github.com/alextaweke/internet-cafe/internal/ledger"
	"github.com/alextaweke/internet-cafe/internal/repository"
)

type env struct {
	e         *echo.Echo
	computers *ComputerHandler
	sessions  *SessionHandler
	reports   *ReportHandler
	auth      *AuthHandler
	repo      struct {
		computers *repository.ComputerRepo
		sessions  *repository.SessionRepo
		payments  *repository.PaymentRepo
		users     *repository.UserRepo
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("QUEUE_PUBLISH_ENABLED", "false")

	db := dbtest.Open(t)
	computers := repository.NewComputerRepo(db)
	sessions := repository.NewSessionRepo(db)
	payments := repository.NewPaymentRepo(db)
	users := repository.NewUserRepo(db)
	led := ledger.New(db, computers, sessions, payments)

	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 60, BcryptCost: 4}

	v := &env{
		e:         echo.New(),
		computers: NewComputerHandler(computers, led),
		sessions:  NewSessionHandler(sessions, led),
		reports:   NewReportHandler(sessions, payments),
		auth:      NewAuthHandler(cfg, users),
	}
	v.repo.computers = computers
	v.repo.sessions = sessions
	v.repo.payments = payments
	v.repo.users = users
	return v
}

func (v *env) request(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return v.e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateComputerValidation(t *testing.T) {
	v := newEnv(t)

	c, rec := v.request(http.MethodPost, "/api/computers", `{"name":"PC-01"}`)
	require.NoError(t, v.computers.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = v.request(http.MethodPost, "/api/computers", `{"name":"PC-01","hourlyRate":25}`)
	require.NoError(t, v.computers.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])

	// Duplicate name conflicts.
	c, rec = v.request(http.MethodPost, "/api/computers", `{"name":"PC-01","hourlyRate":25}`)
	require.NoError(t, v.computers.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)

	start := fmt.Sprintf(`{"computerId":%d,"user":"alice"}`, comp.ID)
	c, rec := v.request(http.MethodPost, "/api/computers/start-session", start)
	require.NoError(t, v.computers.StartSession(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Second start on the same computer conflicts.
	c, rec = v.request(http.MethodPost, "/api/computers/start-session", start)
	require.NoError(t, v.computers.StartSession(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The open session shows up on the registry listing.
	c, rec = v.request(http.MethodGet, "/api/computers", "")
	require.NoError(t, v.computers.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["data"].([]interface{})
	require.Len(t, list, 1)
	entry := list[0].(map[string]interface{})
	assert.Equal(t, "in-use", entry["status"])
	assert.NotNil(t, entry["currentSession"])

	end := fmt.Sprintf(`{"computerId":%d}`, comp.ID)
	c, rec = v.request(http.MethodPost, "/api/computers/end-session", end)
	require.NoError(t, v.computers.EndSession(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	sess := data["session"].(map[string]interface{})
	assert.NotNil(t, sess["endTime"])
	assert.Equal(t, false, sess["isPaid"])
	assert.NotNil(t, data["payment"])

	// A second end on an idle computer conflicts.
	c, rec = v.request(http.MethodPost, "/api/computers/end-session", end)
	require.NoError(t, v.computers.EndSession(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEndSessionWithOverrideMarksPaid(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)

	c, rec := v.request(http.MethodPost, "/api/computers/start-session",
		fmt.Sprintf(`{"computerId":%d}`, comp.ID))
	require.NoError(t, v.computers.StartSession(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = v.request(http.MethodPost, "/api/computers/end-session",
		fmt.Sprintf(`{"computerId":%d,"paymentAmount":50}`, comp.ID))
	require.NoError(t, v.computers.EndSession(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 50.0, data["finalAmount"])
	assert.Equal(t, true, data["session"].(map[string]interface{})["isPaid"])
}

func TestEndSessionNegativeAmountRejected(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)
	_, err = ledgerFor(v).Open(context.Background(), comp.ID, "alice")
	require.NoError(t, err)

	c, rec := v.request(http.MethodPost, "/api/computers/end-session",
		fmt.Sprintf(`{"computerId":%d,"paymentAmount":-1}`, comp.ID))
	require.NoError(t, v.computers.EndSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ledgerFor rebuilds a ledger over the handler's repositories for test setup.
func ledgerFor(v *env) *ledger.Ledger {
	return ledger.New(v.repo.sessions.DB(), v.repo.computers, v.repo.sessions, v.repo.payments)
}

func TestSessionEndpointsByID(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)

	c, rec := v.request(http.MethodPost, "/api/sessions/start",
		fmt.Sprintf(`{"computerId":%d,"user":"bob"}`, comp.ID))
	require.NoError(t, v.sessions.Start(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["data"].(map[string]interface{})["id"].(float64)

	c, rec = v.request(http.MethodGet, "/api/sessions/active", "")
	require.NoError(t, v.sessions.ListActive(c))
	assert.Len(t, decode(t, rec)["data"].([]interface{}), 1)

	c, rec = v.request(http.MethodPost, fmt.Sprintf("/api/sessions/%d/end", int(id)), `{}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", int(id)))
	require.NoError(t, v.sessions.End(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = v.request(http.MethodGet, fmt.Sprintf("/api/sessions/%d", int(id)), "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", int(id)))
	require.NoError(t, v.sessions.GetByID(c))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "bob", detail["user"])
	assert.NotNil(t, detail["payment"])

	c, rec = v.request(http.MethodGet, "/api/sessions/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")
	require.NoError(t, v.sessions.GetByID(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyReport(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)
	led := ledgerFor(v)
	sess, err := led.Open(context.Background(), comp.ID, "alice")
	require.NoError(t, err)
	_, err = led.CloseBySession(context.Background(), sess.ID, nil)
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	c, rec := v.request(http.MethodGet, "/api/reports/daily?date="+today, "")
	require.NoError(t, v.reports.Daily(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, today, data["date"])
	assert.Equal(t, 1.0, data["totalSessions"])

	// A day with no closed sessions reports zeroes, not an error.
	c, rec = v.request(http.MethodGet, "/api/reports/daily?date=2001-01-01", "")
	require.NoError(t, v.reports.Daily(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 0.0, data["totalSessions"])

	c, rec = v.request(http.MethodGet, "/api/reports/daily?date=bogus", "")
	require.NoError(t, v.reports.Daily(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriodReport(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)
	led := ledgerFor(v)
	for _, amount := range []float64{10, 20} {
		sess, err := led.Open(context.Background(), comp.ID, "alice")
		require.NoError(t, err)
		a := amount
		_, err = led.CloseBySession(context.Background(), sess.ID, &a)
		require.NoError(t, err)
	}

	c, rec := v.request(http.MethodGet, "/api/reports/week", "")
	c.SetParamNames("period")
	c.SetParamValues("week")
	require.NoError(t, v.reports.Period(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 30.0, data["totalAmount"])
	assert.Equal(t, 2.0, data["totalPayments"])
	chart := data["chartData"].([]interface{})
	require.Len(t, chart, 1)
	point := chart[0].(map[string]interface{})
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), point["date"])
	assert.Equal(t, 30.0, point["amount"])

	c, rec = v.request(http.MethodGet, "/api/reports/decade", "")
	c.SetParamNames("period")
	c.SetParamValues("decade")
	require.NoError(t, v.reports.Period(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriodReportIncludesWholeFirstDay(t *testing.T) {
	v := newEnv(t)

	// A payment recorded just after midnight on the first day of the week
	// window must be counted regardless of the time of day the report runs.
	firstDay := time.Now().UTC().AddDate(0, 0, -7)
	early := time.Date(firstDay.Year(), firstDay.Month(), firstDay.Day(), 0, 1, 0, 0, time.UTC)
	_, err := v.repo.sessions.DB().Exec(
		"INSERT INTO payments (session_id, amount, payment_time) VALUES (?,?,?)", 1, 12.5, early)
	require.NoError(t, err)

	c, rec := v.request(http.MethodGet, "/api/reports/week", "")
	c.SetParamNames("period")
	c.SetParamValues("week")
	require.NoError(t, v.reports.Period(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["totalPayments"])
	assert.Equal(t, 12.5, data["totalAmount"])
	assert.Equal(t, early.Format("2006-01-02"), data["startDate"])
}

func TestPeriodReportDatabaseError(t *testing.T) {
	v := newEnv(t)
	require.NoError(t, v.repo.sessions.DB().Close())

	c, rec := v.request(http.MethodGet, "/api/reports/week", "")
	c.SetParamNames("period")
	c.SetParamValues("week")
	require.NoError(t, v.reports.Period(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestPeriodExportReturnsWorkbook(t *testing.T) {
	v := newEnv(t)

	c, rec := v.request(http.MethodGet, "/api/reports/month/export", "")
	c.SetParamNames("period")
	c.SetParamValues("month")
	require.NoError(t, v.reports.Export(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestLogin(t *testing.T) {
	v := newEnv(t)
	_, err := v.repo.users.Create(context.Background(), "staff1", "hunter2", "staff", 4)
	require.NoError(t, err)

	c, rec := v.request(http.MethodPost, "/api/auth/login", `{"username":"staff1","password":"hunter2"}`)
	require.NoError(t, v.auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "staff1", data["user"].(map[string]interface{})["username"])

	// Wrong password and unknown user return the same message.
	c, rec = v.request(http.MethodPost, "/api/auth/login", `{"username":"staff1","password":"wrong"}`)
	require.NoError(t, v.auth.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPass := decode(t, rec)["message"]

	c, rec = v.request(http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"x"}`)
	require.NoError(t, v.auth.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongPass, decode(t, rec)["message"])
}

func TestSetStatusBlockedWhileOccupied(t *testing.T) {
	v := newEnv(t)
	comp, err := v.repo.computers.Create(context.Background(), "PC-01", 25)
	require.NoError(t, err)
	_, err = ledgerFor(v).Open(context.Background(), comp.ID, "alice")
	require.NoError(t, err)

	c, rec := v.request(http.MethodPatch, fmt.Sprintf("/api/computers/%d/status", comp.ID), `{"status":"maintenance"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", comp.ID))
	require.NoError(t, v.computers.SetStatus(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = v.request(http.MethodPatch, fmt.Sprintf("/api/computers/%d/status", comp.ID), `{"status":"in-use"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", comp.ID))
	require.NoError(t, v.computers.SetStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
