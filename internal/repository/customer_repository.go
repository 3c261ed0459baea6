package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mechworks/workshop-api/internal/model"
)

// CustomerRepo provides persistence for customers, one half of the
// identity store.  Customers and mechanics live in separate tables with
// separate id sequences; role resolution depends on an id resolving in at
// most one of them.
type CustomerRepo struct{ DB *sql.DB }

// NewCustomerRepo returns a CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{DB: db} }

// Create inserts a customer and returns its id.  Email and phone
// uniqueness are pre-checked so callers get the specific sentinel rather
// than a raw constraint error; the unique indexes still backstop races.
func (r *CustomerRepo) Create(ctx context.Context, c model.Customer) (uint64, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if taken, err := r.emailTaken(ctx, c.Email, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrEmailExists
	}
	if taken, err := r.phoneTaken(ctx, c.Phone, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrPhoneExists
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO customers (name, email, password_hash, address, phone) VALUES (?,?,?,?,?)",
		c.Name, c.Email, c.PasswordHash, c.Address, c.Phone)
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

// GetByID fetches a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	var c model.Customer
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,address,phone FROM customers WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Address, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (model.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var c model.Customer
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,address,phone FROM customers WHERE email=? LIMIT 1",
		email).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Address, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// Count returns the total number of customers.
func (r *CustomerRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&n)
	return n, err
}

// List returns one page of customers ordered by id.
func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]model.Customer, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,email,password_hash,address,phone FROM customers ORDER BY id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Address, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update persists the full customer row.  Email and phone are re-checked
// against other rows so a customer cannot steal another's contact fields.
func (r *CustomerRepo) Update(ctx context.Context, c model.Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if taken, err := r.emailTaken(ctx, c.Email, c.ID); err != nil {
		return err
	} else if taken {
		return ErrEmailExists
	}
	if taken, err := r.phoneTaken(ctx, c.Phone, c.ID); err != nil {
		return err
	} else if taken {
		return ErrPhoneExists
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE customers SET name=?, email=?, password_hash=?, address=?, phone=? WHERE id=?",
		c.Name, c.Email, c.PasswordHash, c.Address, c.Phone, c.ID)
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
		_, err := r.GetByID(ctx, c.ID)
		return err
	}
	return nil
}

// Delete removes a customer row.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM customers WHERE id=?", id)
	if err != nil {
		return err
	}
	return notFoundWhenZero(res)
}

func (r *CustomerRepo) emailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM customers WHERE email=? AND id<>? LIMIT 1", email, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *CustomerRepo) phoneTaken(ctx context.Context, phone string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM customers WHERE phone=? AND id<>? LIMIT 1", phone, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// isDuplicateKey reports whether err is a MySQL duplicate entry error (1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// dupKeyIndex extracts the index name from a MySQL duplicate entry
// message, e.g. "Duplicate entry 'x' for key 'customers.phone'" yields
// "customers.phone".  Returns "" when the message carries no index name.
func dupKeyIndex(err error) string {
	const marker = "for key '"
	msg := err.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexByte(rest, '\''); j >= 0 {
		return rest[:j]
	}
	return ""
}

// dupKeyOn reports whether a duplicate entry error fired on the unique
// index whose name contains column.  MySQL 8 qualifies the index with
// the table name, older servers do not; matching on the column name
// covers both formats.
func dupKeyOn(err error, column string) bool {
	return strings.Contains(strings.ToLower(dupKeyIndex(err)), column)
}

// notFoundWhenZero maps a zero-row mutation to ErrNotFound.
func notFoundWhenZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
