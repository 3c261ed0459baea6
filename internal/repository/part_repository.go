package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mechworks/workshop-api/internal/model"
)

// PartRepo provides persistence for inventory parts.
type PartRepo struct{ DB *sql.DB }

// NewPartRepo returns a PartRepo bound to the given database.
func NewPartRepo(db *sql.DB) *PartRepo { return &PartRepo{DB: db} }

const partCols = "id,name,sku,description,price"

func scanPart(row interface{ Scan(...any) error }) (model.Part, error) {
	var p model.Part
	var desc sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &desc, &p.Price)
	if desc.Valid {
		p.Description = desc.String
	}
	return p, err
}

// Create inserts a part.  Name and SKU uniqueness are pre-checked so
// handlers can answer a clean 400 on collision.
func (r *PartRepo) Create(ctx context.Context, p model.Part) (uint64, error) {
	if taken, err := r.nameTaken(ctx, p.Name, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrDuplicateName
	}
	if taken, err := r.skuTaken(ctx, p.SKU, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrDuplicateSKU
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO parts (name, sku, description, price) VALUES (?,?,?,?)",
		p.Name, p.SKU, nullableString(p.Description), p.Price)
	if err != nil {
		if isDuplicateKey(err) {
			if dupKeyOn(err, "name") {
				return 0, ErrDuplicateName
			}
			return 0, ErrDuplicateSKU
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a part by id.
func (r *PartRepo) GetByID(ctx context.Context, id uint64) (model.Part, error) {
	p, err := scanPart(r.DB.QueryRowContext(ctx,
		"SELECT "+partCols+" FROM parts WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Part{}, ErrNotFound
	}
	return p, err
}

// Count returns the total number of parts.
func (r *PartRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM parts").Scan(&n)
	return n, err
}

// List returns one page of parts ordered by id.
func (r *PartRepo) List(ctx context.Context, limit, offset int) ([]model.Part, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+partCols+" FROM parts ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Part, 0)
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update persists the full part row, re-checking name and SKU against
// other rows.
func (r *PartRepo) Update(ctx context.Context, p model.Part) error {
	if taken, err := r.nameTaken(ctx, p.Name, p.ID); err != nil {
		return err
	} else if taken {
		return ErrDuplicateName
	}
	if taken, err := r.skuTaken(ctx, p.SKU, p.ID); err != nil {
		return err
	} else if taken {
		return ErrDuplicateSKU
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE parts SET name=?, sku=?, description=?, price=? WHERE id=?",
		p.Name, p.SKU, nullableString(p.Description), p.Price, p.ID)
	if err != nil {
		if isDuplicateKey(err) {
			if dupKeyOn(err, "name") {
				return ErrDuplicateName
			}
			return ErrDuplicateSKU
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
		_, err := r.GetByID(ctx, p.ID)
		return err
	}
	return nil
}

// Delete removes a part and its ticket associations in one transaction.
func (r *PartRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_parts WHERE part_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM parts WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := notFoundWhenZero(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PartRepo) nameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM parts WHERE name=? AND id<>? LIMIT 1", name, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *PartRepo) skuTaken(ctx context.Context, sku string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM parts WHERE sku=? AND id<>? LIMIT 1", sku, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
