// Package handler implements the HTTP handlers for the cafe API.  Every
// response uses the same envelope the dashboard expects:
// {"success": bool, "message": string, "data": T|null}.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/alextaweke/internet-cafe/internal/billing"
	"github.com/alextaweke/internet-cafe/internal/repository"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respond(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, envelope{Success: status < 400, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return respond(c, status, nil, message)
}

// failFromErr maps the shared sentinel errors onto HTTP statuses: missing
// entities become 404, state-invariant violations 409, bad amounts 400.
// Anything unexpected becomes a generic 500 without leaking internals.
func failFromErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrComputerNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrComputerUnavailable),
		errors.Is(err, repository.ErrSessionClosed),
		errors.Is(err, repository.ErrNoActiveSession),
		errors.Is(err, repository.ErrHasOpenSession),
		errors.Is(err, repository.ErrNameExists),
		errors.Is(err, repository.ErrUsernameExists):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrInvalidArgument):
		return fail(c, http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return fail(c, http.StatusInternalServerError, "internal server error")
	}
}

// getUserID extracts the authenticated user's id from the echo context.  JWT
// claims decode numbers as float64, so several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID parses the :id path parameter.
func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
