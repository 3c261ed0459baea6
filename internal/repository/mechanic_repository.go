package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mechworks/workshop-api/internal/model"
)

// MechanicRepo provides persistence for mechanics, the privileged half of
// the identity store.
type MechanicRepo struct{ DB *sql.DB }

// NewMechanicRepo returns a MechanicRepo bound to the given database.
func NewMechanicRepo(db *sql.DB) *MechanicRepo { return &MechanicRepo{DB: db} }

const mechanicCols = "id,name,email,password_hash,address,phone,specialty,salary"

func scanMechanic(row interface{ Scan(...any) error }) (model.Mechanic, error) {
	var m model.Mechanic
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Address, &m.Phone, &m.Specialty, &m.Salary)
	return m, err
}

// Create inserts a mechanic and returns its id.  Email and phone
// uniqueness are pre-checked, the same contract as CustomerRepo.Create.
func (r *MechanicRepo) Create(ctx context.Context, m model.Mechanic) (uint64, error) {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if taken, err := r.fieldTaken(ctx, "email", m.Email, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrEmailExists
	}
	if taken, err := r.fieldTaken(ctx, "phone", m.Phone, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrPhoneExists
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO mechanics (name, email, password_hash, address, phone, specialty, salary) VALUES (?,?,?,?,?,?,?)",
		m.Name, m.Email, m.PasswordHash, m.Address, m.Phone, m.Specialty, m.Salary)
	if err != nil {
		if isDuplicateKey(err) {
			if dupKeyOn(err, "phone") {
				return 0, ErrPhoneExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a mechanic by id.
func (r *MechanicRepo) GetByID(ctx context.Context, id uint64) (model.Mechanic, error) {
	m, err := scanMechanic(r.DB.QueryRowContext(ctx,
		"SELECT "+mechanicCols+" FROM mechanics WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mechanic{}, ErrNotFound
	}
	return m, err
}

// GetByEmail fetches a mechanic by normalized email.
func (r *MechanicRepo) GetByEmail(ctx context.Context, email string) (model.Mechanic, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m, err := scanMechanic(r.DB.QueryRowContext(ctx,
		"SELECT "+mechanicCols+" FROM mechanics WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mechanic{}, ErrNotFound
	}
	return m, err
}

// Count returns the total number of mechanics.
func (r *MechanicRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM mechanics").Scan(&n)
	return n, err
}

// List returns one page of mechanics ordered by id.
func (r *MechanicRepo) List(ctx context.Context, limit, offset int) ([]model.Mechanic, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+mechanicCols+" FROM mechanics ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Mechanic, 0)
	for rows.Next() {
		m, err := scanMechanic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RankedMechanic pairs a mechanic with the number of tickets currently
// assigned to them, for the "top mechanics" aggregate view.
type RankedMechanic struct {
	Mechanic    model.Mechanic
	TicketCount int64
}

// ListByTicketCount returns all mechanics ordered by the number of
// assigned service tickets, busiest first.
func (r *MechanicRepo) ListByTicketCount(ctx context.Context) ([]RankedMechanic, error) {
	const q = `SELECT m.id, m.name, m.email, m.password_hash, m.address, m.phone, m.specialty, m.salary,
	                  COUNT(sm.service_ticket_id) AS ticket_count
	           FROM mechanics m
	           LEFT JOIN service_ticket_mechanics sm ON sm.mechanic_id = m.id
	           GROUP BY m.id
	           ORDER BY ticket_count DESC, m.id`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RankedMechanic, 0)
	for rows.Next() {
		var rm RankedMechanic
		if err := rows.Scan(
			&rm.Mechanic.ID, &rm.Mechanic.Name, &rm.Mechanic.Email, &rm.Mechanic.PasswordHash,
			&rm.Mechanic.Address, &rm.Mechanic.Phone, &rm.Mechanic.Specialty, &rm.Mechanic.Salary,
			&rm.TicketCount,
		); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Update persists the full mechanic row with email/phone collision checks
// against other rows.
func (r *MechanicRepo) Update(ctx context.Context, m model.Mechanic) error {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if taken, err := r.fieldTaken(ctx, "email", m.Email, m.ID); err != nil {
		return err
	} else if taken {
		return ErrEmailExists
	}
	if taken, err := r.fieldTaken(ctx, "phone", m.Phone, m.ID); err != nil {
		return err
	} else if taken {
		return ErrPhoneExists
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE mechanics SET name=?, email=?, password_hash=?, address=?, phone=?, specialty=?, salary=? WHERE id=?",
		m.Name, m.Email, m.PasswordHash, m.Address, m.Phone, m.Specialty, m.Salary, m.ID)
	if err != nil {
		if isDuplicateKey(err) {
			if dupKeyOn(err, "phone") {
				return ErrPhoneExists
			}
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Zero rows can also mean the submitted values matched the
		// stored ones, so re-check existence before reporting not found.
		_, err := r.GetByID(ctx, m.ID)
		return err
	}
	return nil
}

// Delete removes a mechanic and their ticket associations in one
// transaction, so a half-deleted mechanic can never be observed.
func (r *MechanicRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_mechanics WHERE mechanic_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM mechanics WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := notFoundWhenZero(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MechanicRepo) fieldTaken(ctx context.Context, field, value string, excludeID uint64) (bool, error) {
	var id uint64
	// field is one of the fixed column names above, never user input.
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM mechanics WHERE "+field+"=? AND id<>? LIMIT 1", value, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
