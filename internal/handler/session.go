package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alextaweke/internet-cafe/internal/ledger"
	"github.com/alextaweke/internet-cafe/internal/queue"
	"github.com/alextaweke/internet-cafe/internal/repository"
	queuepublisher "github.com/alextaweke/internet-cafe/internal/service"
)

// SessionHandler serves the session endpoints.  Reads use the repository
// directly; open/close/delete go through the ledger.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Ledger   *ledger.Ledger
}

func NewSessionHandler(sessions *repository.SessionRepo, l *ledger.Ledger) *SessionHandler {
	if sessions == nil || l == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions, Ledger: l}
}

// List handles GET /sessions.  Optional filters: ?status=active|completed
// and ?computerId=<n>.
func (h *SessionHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && status != "active" && status != "completed" {
		return fail(c, http.StatusBadRequest, "status must be active or completed")
	}
	var computerID uint64
	if raw := c.QueryParam("computerId"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return fail(c, http.StatusBadRequest, "invalid computerId")
		}
		computerID = n
	}

	sessions, err := h.Sessions.List(c.Request().Context(), status, computerID)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, sessions, "Success")
}

// ListActive handles GET /sessions/active.
func (h *SessionHandler) ListActive(c echo.Context) error {
	sessions, err := h.Sessions.ListActive(c.Request().Context())
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, sessions, "Success")
}

// GetByID handles GET /sessions/:id, returning the session with its
// computer and payment.
func (h *SessionHandler) GetByID(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}
	detail, err := h.Sessions.GetByID(c.Request().Context(), id)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, detail, "Success")
}

// Start handles POST /sessions/start, the session-id flavored twin of
// POST /computers/start-session.
func (h *SessionHandler) Start(c echo.Context) error {
	var req startSessionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ComputerID == 0 {
		return fail(c, http.StatusBadRequest, "invalid computer ID")
	}

	sess, err := h.Ledger.Open(c.Request().Context(), req.ComputerID, req.User)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusCreated, sess, "Session started successfully")
}

type endSessionReq struct {
	PaymentAmount *float64 `json:"paymentAmount"`
}

// End handles POST /sessions/:id/end.
func (h *SessionHandler) End(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}
	var req endSessionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	res, err := h.Ledger.CloseBySession(c.Request().Context(), id, req.PaymentAmount)
	if err != nil {
		return failFromErr(c, err)
	}
	notifySessionClosed(c, res)
	return respond(c, http.StatusOK, res, "Session ended successfully")
}

// Delete handles DELETE /sessions/:id (admin).  Deleting an open session
// releases its computer in the same transaction.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid session id")
	}
	if err := h.Ledger.DeleteSession(c.Request().Context(), id); err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, nil, "Session deleted successfully")
}

// notifySessionClosed publishes a session.closed event in the background.
// Publishing is best effort: the close already committed, and a broker
// outage must not fail the request.  QUEUE_PUBLISH_ENABLED=false turns it
// off entirely (tests, single-node deployments).
func notifySessionClosed(c echo.Context, res *ledger.CloseResult) {
	if os.Getenv("QUEUE_PUBLISH_ENABLED") == "false" {
		return
	}
	username, _ := c.Get("username").(string)
	ev := queue.SessionClosedEvent{
		SessionID:       res.Session.ID,
		ComputerID:      res.Session.ComputerID,
		Customer:        res.Session.Customer,
		StartedAt:       res.Session.StartTime.Format(time.RFC3339),
		DurationMinutes: res.DurationMinutes,
		Amount:          res.FinalAmount,
		Paid:            res.Session.IsPaid,
		ClosedBy:        username,
	}
	if res.Computer != nil {
		ev.ComputerName = res.Computer.Name
	}
	if res.Session.EndTime != nil {
		ev.EndedAt = res.Session.EndTime.Format(time.RFC3339)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queuepublisher.PublishSessionClosed(ctx, ev)
	}()
}
