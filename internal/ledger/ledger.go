// Package ledger owns the session lifecycle: opening and closing rental
// sessions, deleting sessions and computers, and keeping the computer status,
// the open session and the payment log mutually consistent.  Every mutation
// runs as a single database transaction, and the availability / open checks
// are conditional UPDATEs so the check and the write are one atomic
// statement: of two concurrent opens on a computer (or two closes of a
// session) exactly one succeeds and the other gets a conflict error.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alextaweke/internet-cafe/internal/billing"
	"github.com/alextaweke/internet-cafe/internal/model"
	"github.com/alextaweke/internet-cafe/internal/repository"
)

// Ledger is the sole authority for session open/close transitions and for
// "is this computer currently occupied".
type Ledger struct {
	db        *sql.DB
	computers *repository.ComputerRepo
	sessions  *repository.SessionRepo
	payments  *repository.PaymentRepo
}

func New(db *sql.DB, computers *repository.ComputerRepo, sessions *repository.SessionRepo, payments *repository.PaymentRepo) *Ledger {
	if db == nil || computers == nil || sessions == nil || payments == nil {
		panic("nil dependency passed to ledger.New")
	}
	return &Ledger{db: db, computers: computers, sessions: sessions, payments: payments}
}

// CloseResult carries everything a close produces: the closed session, the
// payment written for it, and the amounts involved.
type CloseResult struct {
	Session          *model.Session `json:"session"`
	Payment          *model.Payment `json:"payment"`
	DurationMinutes  float64        `json:"durationMinutes"`
	CalculatedAmount float64        `json:"calculatedAmount"`
	FinalAmount      float64        `json:"finalAmount"`

	// Computer is carried for event publishing, not serialized in responses.
	Computer *model.Computer `json:"-"`
}

// Open starts a session on an available computer.  The session insert and the
// status flip to in-use commit together or not at all.  Returns
// repository.ErrComputerNotFound when the computer does not exist and
// repository.ErrComputerUnavailable when it is occupied or in maintenance.
func (l *Ledger) Open(ctx context.Context, computerID uint64, customer string) (*model.Session, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := l.computers.GetByIDTx(ctx, tx, computerID); err != nil {
		return nil, err
	}
	if err := l.computers.ClaimTx(ctx, tx, computerID); err != nil {
		return nil, err
	}
	sess, err := l.sessions.CreateTx(ctx, tx, computerID, customer, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return sess, nil
}

// CloseByComputer closes the open session of a computer.  When override is
// non-nil it replaces the calculated amount and marks the session paid.
func (l *Ledger) CloseByComputer(ctx context.Context, computerID uint64, override *float64) (*CloseResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	comp, err := l.computers.GetByIDTx(ctx, tx, computerID)
	if err != nil {
		return nil, err
	}
	sess, err := l.sessions.GetOpenByComputerTx(ctx, tx, computerID)
	if err != nil {
		return nil, err
	}
	res, err := l.closeTx(ctx, tx, comp, sess, override)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// CloseBySession closes a session addressed by its own ID.
func (l *Ledger) CloseBySession(ctx context.Context, sessionID uint64, override *float64) (*CloseResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := l.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Open() {
		return nil, repository.ErrSessionClosed
	}
	comp, err := l.computers.GetByIDTx(ctx, tx, sess.ComputerID)
	if err != nil {
		return nil, err
	}
	res, err := l.closeTx(ctx, tx, comp, sess, override)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// closeTx performs the three close writes inside the caller's transaction:
// session update (guarded by end_time IS NULL, so it is exactly-once),
// payment insert, computer release.  The paid flag is true exactly when the
// caller supplied an explicit amount.
func (l *Ledger) closeTx(ctx context.Context, tx *sql.Tx, comp *model.Computer, sess *model.Session, override *float64) (*CloseResult, error) {
	end := time.Now().UTC()
	minutes := billing.Duration(sess.StartTime, end)
	calculated, err := billing.Cost(minutes, comp.HourlyRate)
	if err != nil {
		return nil, err
	}

	final := calculated
	paid := false
	if override != nil {
		if *override < 0 {
			return nil, fmt.Errorf("%w: payment amount cannot be negative", billing.ErrInvalidArgument)
		}
		final = billing.Round2(*override)
		paid = true
	}

	if err := l.sessions.CloseTx(ctx, tx, sess.ID, end, final, paid); err != nil {
		return nil, err
	}
	payment, err := l.payments.CreateTx(ctx, tx, sess.ID, final, end)
	if err != nil {
		return nil, err
	}
	if err := l.computers.ReleaseTx(ctx, tx, comp.ID); err != nil {
		return nil, err
	}

	sess.EndTime = &end
	sess.TotalAmount = &final
	sess.IsPaid = paid
	return &CloseResult{
		Session:          sess,
		Payment:          payment,
		DurationMinutes:  minutes,
		CalculatedAmount: calculated,
		FinalAmount:      final,
		Computer:         comp,
	}, nil
}

// DeleteSession removes a session and its payment.  When the session was
// still open, the owning computer is released in the same transaction so the
// registry never shows an occupied computer without a session.
func (l *Ledger) DeleteSession(ctx context.Context, sessionID uint64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := l.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if err := l.payments.DeleteBySessionTx(ctx, tx, sessionID); err != nil {
		return err
	}
	if err := l.sessions.DeleteTx(ctx, tx, sessionID); err != nil {
		return err
	}
	if sess.Open() {
		if err := l.computers.ReleaseTx(ctx, tx, sess.ComputerID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteComputer removes a computer together with its historical sessions and
// payments.  It refuses while an open session exists, independent of the
// handler-level checks.
func (l *Ledger) DeleteComputer(ctx context.Context, computerID uint64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := l.computers.GetByIDTx(ctx, tx, computerID); err != nil {
		return err
	}
	open, err := l.sessions.CountOpenByComputerTx(ctx, tx, computerID)
	if err != nil {
		return err
	}
	if open > 0 {
		return repository.ErrHasOpenSession
	}
	if err := l.payments.DeleteByComputerTx(ctx, tx, computerID); err != nil {
		return err
	}
	if err := l.sessions.DeleteByComputerTx(ctx, tx, computerID); err != nil {
		return err
	}
	if err := l.computers.DeleteTx(ctx, tx, computerID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
