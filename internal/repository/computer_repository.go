package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alextaweke/internet-cafe/internal/model"
)

// ComputerRepo provides CRUD access to the computer registry.  Status
// transitions that belong to the session lifecycle (available <-> in-use) are
// only performed through the Tx helpers, which the ledger calls inside its
// transactions; SetStatus exists solely for the manual maintenance toggle.
type ComputerRepo struct {
	db *sql.DB
}

func NewComputerRepo(db *sql.DB) *ComputerRepo { return &ComputerRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *ComputerRepo) DB() *sql.DB { return r.db }

// Create inserts a computer with the given name and hourly rate.  When name
// is empty a sequential PC-<n> name is generated from the current count.
func (r *ComputerRepo) Create(ctx context.Context, name string, hourlyRate float64) (*model.Computer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		n, err := r.Count(ctx)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("PC-%02d", n+1)
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO computers (name, hourly_rate, status) VALUES (?,?,?)",
		name, hourlyRate, model.StatusAvailable)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Computer{ID: uint64(id), Name: name, HourlyRate: hourlyRate, Status: model.StatusAvailable}, nil
}

// GetByID returns a computer or ErrComputerNotFound.
func (r *ComputerRepo) GetByID(ctx context.Context, id uint64) (*model.Computer, error) {
	return scanComputer(r.db.QueryRowContext(ctx,
		"SELECT id, name, hourly_rate, status FROM computers WHERE id=?", id))
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *ComputerRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Computer, error) {
	return scanComputer(tx.QueryRowContext(ctx,
		"SELECT id, name, hourly_rate, status FROM computers WHERE id=?", id))
}

// List returns all computers ordered by name.
func (r *ComputerRepo) List(ctx context.Context) ([]model.Computer, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, hourly_rate, status FROM computers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Computer, 0)
	for rows.Next() {
		var c model.Computer
		if err := rows.Scan(&c.ID, &c.Name, &c.HourlyRate, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListWithOpenSession returns every computer paired with its current open
// session, if one exists.  "Current session" is derived from the sessions
// table (end_time IS NULL), never stored on the computer row; the ledger
// guarantees at most one such session per computer.
func (r *ComputerRepo) ListWithOpenSession(ctx context.Context) ([]model.ComputerWithSession, error) {
	const q = `SELECT c.id, c.name, c.hourly_rate, c.status,
	                  s.id, s.computer_id, s.customer, s.start_time, s.is_paid
	           FROM computers c
	           LEFT JOIN sessions s ON s.computer_id = c.id AND s.end_time IS NULL
	           ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ComputerWithSession, 0)
	for rows.Next() {
		var cs model.ComputerWithSession
		var sid, scomp sql.NullInt64
		var customer sql.NullString
		var start sql.NullTime
		var paid sql.NullBool
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.HourlyRate, &cs.Status,
			&sid, &scomp, &customer, &start, &paid); err != nil {
			return nil, err
		}
		if sid.Valid {
			cs.CurrentSession = &model.Session{
				ID:         uint64(sid.Int64),
				ComputerID: uint64(scomp.Int64),
				Customer:   customer.String,
				StartTime:  start.Time,
				IsPaid:     paid.Bool,
			}
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Count returns the number of registered computers.
func (r *ComputerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM computers").Scan(&n)
	return n, err
}

// ClaimTx flips a computer from available to in-use.  The WHERE clause makes
// the availability check and the write a single atomic statement: of two
// concurrent claims on the same computer exactly one updates a row, the other
// gets ErrComputerUnavailable.  The caller must have verified existence first.
func (r *ComputerRepo) ClaimTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE computers SET status=? WHERE id=? AND status=?",
		model.StatusInUse, id, model.StatusAvailable)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrComputerUnavailable
	}
	return nil
}

// ReleaseTx puts a computer back to available after its session closed or
// was deleted.
func (r *ComputerRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE computers SET status=? WHERE id=?", model.StatusAvailable, id)
	return err
}

// SetStatus applies the manual maintenance toggle.  It refuses to touch a
// computer that still has an open session; that transition belongs to the
// ledger alone.
func (r *ComputerRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := r.GetByIDTx(ctx, tx, id); err != nil {
		return err
	}
	var open int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE computer_id=? AND end_time IS NULL", id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return ErrHasOpenSession
	}
	if _, err := tx.ExecContext(ctx, "UPDATE computers SET status=? WHERE id=?", status, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteTx removes the computer row inside an existing transaction.
func (r *ComputerRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM computers WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrComputerNotFound
	}
	return nil
}

func scanComputer(row *sql.Row) (*model.Computer, error) {
	var c model.Computer
	err := row.Scan(&c.ID, &c.Name, &c.HourlyRate, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrComputerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
