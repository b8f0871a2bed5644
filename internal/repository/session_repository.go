package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alextaweke/internet-cafe/internal/model"
)

// SessionRepo provides read access to sessions and the transaction-scoped
// write helpers the ledger composes into its atomic lifecycle operations.
// All timestamps are stored in UTC.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionCols = "id, computer_id, customer, start_time, end_time, total_amount, is_paid"

// CreateTx inserts a new open session within an existing transaction and
// returns it with the generated ID.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, computerID uint64, customer string, start time.Time) (*model.Session, error) {
	if customer == "" {
		customer = model.DefaultCustomer
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (computer_id, customer, start_time, is_paid) VALUES (?,?,?,?)",
		computerID, customer, start, false)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Session{
		ID:         uint64(id),
		ComputerID: computerID,
		Customer:   customer,
		StartTime:  start,
	}, nil
}

// GetByIDTx loads a single session row inside a transaction.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	return scanSession(tx.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE id=?", id))
}

// GetOpenByComputerTx returns the open session for a computer, the most
// recent one first should the uniqueness invariant ever be violated by
// outside writes.  ErrNoActiveSession is returned when none exists.
func (r *SessionRepo) GetOpenByComputerTx(ctx context.Context, tx *sql.Tx, computerID uint64) (*model.Session, error) {
	s, err := scanSession(tx.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE computer_id=? AND end_time IS NULL ORDER BY start_time DESC LIMIT 1",
		computerID))
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNoActiveSession
	}
	return s, err
}

// CloseTx sets the end timestamp, total amount and paid flag of an open
// session.  The `end_time IS NULL` guard makes the close exactly-once: a
// second close attempt updates zero rows and gets ErrSessionClosed, so a
// duplicate payment can never be written.
func (r *SessionRepo) CloseTx(ctx context.Context, tx *sql.Tx, id uint64, end time.Time, amount float64, paid bool) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET end_time=?, total_amount=?, is_paid=? WHERE id=? AND end_time IS NULL",
		end, amount, paid, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionClosed
	}
	return nil
}

// CountOpenByComputerTx counts open sessions for a computer inside a
// transaction.  Used to block computer deletion and maintenance toggles.
func (r *SessionRepo) CountOpenByComputerTx(ctx context.Context, tx *sql.Tx, computerID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE computer_id=? AND end_time IS NULL", computerID).Scan(&n)
	return n, err
}

// DeleteTx removes one session row.
func (r *SessionRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	return err
}

// DeleteByComputerTx removes all (historical) sessions of a computer when
// the computer itself is deleted.
func (r *SessionRepo) DeleteByComputerTx(ctx context.Context, tx *sql.Tx, computerID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE computer_id=?", computerID)
	return err
}

// List returns sessions newest first, optionally filtered by lifecycle
// status ("active" or "completed") and/or computer.  Each session carries its
// computer and, when closed, its payment.
func (r *SessionRepo) List(ctx context.Context, status string, computerID uint64) ([]model.SessionDetail, error) {
	q := `SELECT s.id, s.computer_id, s.customer, s.start_time, s.end_time, s.total_amount, s.is_paid,
	             c.id, c.name, c.hourly_rate, c.status,
	             p.id, p.session_id, p.amount, p.payment_time
	      FROM sessions s
	      JOIN computers c ON c.id = s.computer_id
	      LEFT JOIN payments p ON p.session_id = s.id
	      WHERE 1=1`
	args := []interface{}{}
	switch status {
	case "active":
		q += " AND s.end_time IS NULL"
	case "completed":
		q += " AND s.end_time IS NOT NULL"
	}
	if computerID != 0 {
		q += " AND s.computer_id = ?"
		args = append(args, computerID)
	}
	q += " ORDER BY s.start_time DESC"
	return r.queryDetails(ctx, q, args...)
}

// ListActive returns all open sessions with their computers.
func (r *SessionRepo) ListActive(ctx context.Context) ([]model.SessionDetail, error) {
	return r.List(ctx, "active", 0)
}

// ListClosedBetween returns sessions whose end timestamp falls in [from, to).
// The daily report sums these.
func (r *SessionRepo) ListClosedBetween(ctx context.Context, from, to time.Time) ([]model.SessionDetail, error) {
	const q = `SELECT s.id, s.computer_id, s.customer, s.start_time, s.end_time, s.total_amount, s.is_paid,
	                  c.id, c.name, c.hourly_rate, c.status,
	                  p.id, p.session_id, p.amount, p.payment_time
	           FROM sessions s
	           JOIN computers c ON c.id = s.computer_id
	           LEFT JOIN payments p ON p.session_id = s.id
	           WHERE s.end_time >= ? AND s.end_time < ?
	           ORDER BY s.end_time`
	return r.queryDetails(ctx, q, from, to)
}

// GetByID returns one session with computer and payment, or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.SessionDetail, error) {
	details, err := r.queryDetails(ctx,
		`SELECT s.id, s.computer_id, s.customer, s.start_time, s.end_time, s.total_amount, s.is_paid,
		        c.id, c.name, c.hourly_rate, c.status,
		        p.id, p.session_id, p.amount, p.payment_time
		 FROM sessions s
		 JOIN computers c ON c.id = s.computer_id
		 LEFT JOIN payments p ON p.session_id = s.id
		 WHERE s.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrSessionNotFound
	}
	return &details[0], nil
}

// CountOpen returns the number of open sessions across all computers.
func (r *SessionRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE end_time IS NULL").Scan(&n)
	return n, err
}

func (r *SessionRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]model.SessionDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SessionDetail, 0)
	for rows.Next() {
		var d model.SessionDetail
		var comp model.Computer
		var end sql.NullTime
		var amount sql.NullFloat64
		var pid, psession sql.NullInt64
		var pamount sql.NullFloat64
		var ptime sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.ComputerID, &d.Customer, &d.StartTime, &end, &amount, &d.IsPaid,
			&comp.ID, &comp.Name, &comp.HourlyRate, &comp.Status,
			&pid, &psession, &pamount, &ptime,
		); err != nil {
			return nil, err
		}
		if end.Valid {
			t := end.Time
			d.EndTime = &t
		}
		if amount.Valid {
			a := amount.Float64
			d.TotalAmount = &a
		}
		d.Computer = &comp
		if pid.Valid {
			d.Payment = &model.Payment{
				ID:          uint64(pid.Int64),
				SessionID:   uint64(psession.Int64),
				Amount:      pamount.Float64,
				PaymentTime: ptime.Time,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSession(row *sql.Row) (*model.Session, error) {
	var s model.Session
	var end sql.NullTime
	var amount sql.NullFloat64
	err := row.Scan(&s.ID, &s.ComputerID, &s.Customer, &s.StartTime, &end, &amount, &s.IsPaid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		s.EndTime = &t
	}
	if amount.Valid {
		a := amount.Float64
		s.TotalAmount = &a
	}
	return &s, nil
}
