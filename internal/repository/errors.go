// Package repository implements data access for users, computers, sessions
// and payments over database/sql.  The sentinel errors below are shared
// across repositories and the ledger so that handlers can translate failure
// scenarios into HTTP statuses with errors.Is: *NotFound values become 404,
// the remaining state violations become 409.
package repository

import "errors"

// ErrComputerNotFound is returned when a computer lookup finds no row.
var ErrComputerNotFound = errors.New("computer not found")

// ErrSessionNotFound is returned when a session lookup finds no row.
var ErrSessionNotFound = errors.New("session not found")

// ErrUserNotFound is returned when a user lookup finds no row.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when creating a user with a taken username.
var ErrUsernameExists = errors.New("username already exists")

// ErrNameExists is returned when creating a computer with a taken name.
var ErrNameExists = errors.New("computer name already exists")

// ErrComputerUnavailable is returned when opening a session on a computer
// that is occupied or in maintenance.
var ErrComputerUnavailable = errors.New("computer is not available")

// ErrSessionClosed is returned when closing a session that already has an
// end timestamp.  A concurrent double close surfaces this on the loser.
var ErrSessionClosed = errors.New("session already ended")

// ErrNoActiveSession is returned when a close targets a computer that has
// no open session.
var ErrNoActiveSession = errors.New("no active session for this computer")

// ErrHasOpenSession is returned when a delete or status change is blocked
// because an open session still references the computer.
var ErrHasOpenSession = errors.New("computer has an active session")
