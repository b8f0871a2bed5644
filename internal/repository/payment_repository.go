package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alextaweke/internet-cafe/internal/model"
)

// PaymentRepo is the append-only payment log.  Rows are written exclusively
// by the ledger's close transaction (one per closed session) and removed only
// when their session or computer is deleted.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx appends a payment row inside the close transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, sessionID uint64, amount float64, at time.Time) (*model.Payment, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO payments (session_id, amount, payment_time) VALUES (?,?,?)",
		sessionID, amount, at)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Payment{ID: uint64(id), SessionID: sessionID, Amount: amount, PaymentTime: at}, nil
}

// GetBySession returns the payment linked to a session, if any.
func (r *PaymentRepo) GetBySession(ctx context.Context, sessionID uint64) (*model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx,
		"SELECT id, session_id, amount, payment_time FROM payments WHERE session_id=?",
		sessionID).Scan(&p.ID, &p.SessionID, &p.Amount, &p.PaymentTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListSince returns payments taken at or after the given instant, oldest
// first.  The period reports aggregate these.
func (r *PaymentRepo) ListSince(ctx context.Context, since time.Time) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, amount, payment_time FROM payments WHERE payment_time >= ? ORDER BY payment_time",
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Amount, &p.PaymentTime); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountBySession reports how many payment rows reference a session.  Tests
// use it to verify the exactly-once close guarantee.
func (r *PaymentRepo) CountBySession(ctx context.Context, sessionID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE session_id=?", sessionID).Scan(&n)
	return n, err
}

// DeleteBySessionTx removes the payment of a deleted session.
func (r *PaymentRepo) DeleteBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE session_id=?", sessionID)
	return err
}

// DeleteByComputerTx removes all payments belonging to a computer's sessions
// as part of the computer's cascade delete.
func (r *PaymentRepo) DeleteByComputerTx(ctx context.Context, tx *sql.Tx, computerID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM payments WHERE session_id IN (SELECT id FROM sessions WHERE computer_id=?)",
		computerID)
	return err
}
