package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alextaweke/internet-cafe/internal/ledger"
	"github.com/alextaweke/internet-cafe/internal/model"
	"github.com/alextaweke/internet-cafe/internal/repository"
)

// ComputerHandler serves the computer registry endpoints.  Reads go straight
// to the repository; every mutation that touches the session lifecycle goes
// through the ledger so the status/session/payment invariants hold.
type ComputerHandler struct {
	Computers *repository.ComputerRepo
	Ledger    *ledger.Ledger
}

func NewComputerHandler(computers *repository.ComputerRepo, l *ledger.Ledger) *ComputerHandler {
	if computers == nil || l == nil {
		panic("nil dependency passed to NewComputerHandler")
	}
	return &ComputerHandler{Computers: computers, Ledger: l}
}

// List handles GET /computers.  Each computer is paired with its current
// open session (if any) so the dashboard can render occupancy in one call.
func (h *ComputerHandler) List(c echo.Context) error {
	computers, err := h.Computers.ListWithOpenSession(c.Request().Context())
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, computers, "Success")
}

type createComputerReq struct {
	Name       string   `json:"name"`
	HourlyRate *float64 `json:"hourlyRate"`
}

// Create handles POST /computers.  The name is optional; when omitted a
// sequential PC-<n> name is generated.
func (h *ComputerHandler) Create(c echo.Context) error {
	var req createComputerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.HourlyRate == nil || *req.HourlyRate < 0 {
		return fail(c, http.StatusBadRequest, "hourlyRate must be a non-negative number")
	}

	comp, err := h.Computers.Create(c.Request().Context(), req.Name, *req.HourlyRate)
	if err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusCreated, comp, "Computer added successfully")
}

// Delete handles DELETE /computers/:id (admin).  Deletion is blocked while
// an open session exists; historical sessions and payments cascade.
func (h *ComputerHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid computer id")
	}
	if err := h.Ledger.DeleteComputer(c.Request().Context(), id); err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, nil, "Computer deleted successfully")
}

type setStatusReq struct {
	Status string `json:"status"`
}

// SetStatus handles PATCH /computers/:id/status (admin).  Only the manual
// states are accepted here; in-use is owned by the ledger and cannot be set
// directly.
func (h *ComputerHandler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid computer id")
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	status := strings.TrimSpace(req.Status)
	if status != model.StatusAvailable && status != model.StatusMaintenance {
		return fail(c, http.StatusBadRequest, "status must be available or maintenance")
	}

	if err := h.Computers.SetStatus(c.Request().Context(), id, status); err != nil {
		return failFromErr(c, err)
	}
	return respond(c, http.StatusOK, nil, "Status updated successfully")
}

type startSessionReq struct {
	ComputerID uint64 `json:"computerId"`
	User       string `json:"user"`
}

// StartSession handles POST /computers/start-session.
func (h *ComputerHandler) StartSession(c echo.Context) error {
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

type endByComputerReq struct {
	ComputerID    uint64   `json:"computerId"`
	PaymentAmount *float64 `json:"paymentAmount"`
}

// EndSession handles POST /computers/end-session.  It closes the computer's
// open session; an explicit paymentAmount overrides the calculated cost and
// marks the session paid.
func (h *ComputerHandler) EndSession(c echo.Context) error {
	var req endByComputerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ComputerID == 0 {
		return fail(c, http.StatusBadRequest, "invalid computer ID")
	}

	res, err := h.Ledger.CloseByComputer(c.Request().Context(), req.ComputerID, req.PaymentAmount)
	if err != nil {
		return failFromErr(c, err)
	}
	notifySessionClosed(c, res)
	return respond(c, http.StatusOK, res, "Session ended successfully")
}
