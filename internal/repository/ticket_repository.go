package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mechworks/workshop-api/internal/model"
)

// TicketRepo manages service tickets and their two many-to-many
// association sets: assigned mechanics and consumed parts.  Both link
// tables carry a composite unique key, so membership is a set property
// and inserts go through INSERT IGNORE — two concurrent "assign the same
// mechanic" requests cannot produce a duplicate pair.  Every multi-step
// mutation runs inside a transaction: either the whole change commits or
// the caller observes the prior state.
type TicketRepo struct{ db *sql.DB }

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// TicketDetail is a ticket together with its resolved association sets.
// It is the unit the ticket read endpoints serialize.
type TicketDetail struct {
	Ticket    model.ServiceTicket
	Mechanics []model.Mechanic
	Parts     []model.Part
}

// Create inserts a new service ticket.  The VIN is checked before the
// insert so a duplicate yields ErrDuplicateVIN (a clean 400) instead of a
// raw constraint error; the unique index still wins any race.  The owning
// customer must exist, otherwise ErrNotFound.
func (r *TicketRepo) Create(ctx context.Context, description string, customerID uint64, vin string) (model.ServiceTicket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ServiceTicket{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM service_tickets WHERE vin=? LIMIT 1", vin).Scan(&existing)
	if err == nil {
		return model.ServiceTicket{}, ErrDuplicateVIN
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.ServiceTicket{}, err
	}

	var custID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM customers WHERE id=? LIMIT 1", customerID).Scan(&custID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceTicket{}, ErrNotFound
	}
	if err != nil {
		return model.ServiceTicket{}, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO service_tickets (description, vin, customer_id) VALUES (?,?,?)",
		description, vin, customerID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.ServiceTicket{}, ErrDuplicateVIN
		}
		return model.ServiceTicket{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ServiceTicket{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.ServiceTicket{}, err
	}
	return model.ServiceTicket{
		ID:          uint64(id),
		Description: description,
		VIN:         vin,
		CustomerID:  customerID,
	}, nil
}

// GetByID fetches a bare ticket row without its association sets.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := r.db.QueryRowContext(ctx,
		"SELECT id,description,vin,customer_id FROM service_tickets WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.Description, &t.VIN, &t.CustomerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceTicket{}, ErrNotFound
	}
	return t, err
}

// GetDetail fetches a ticket with its mechanic and part sets resolved.
func (r *TicketRepo) GetDetail(ctx context.Context, id uint64) (*TicketDetail, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	det := &TicketDetail{Ticket: t, Mechanics: []model.Mechanic{}, Parts: []model.Part{}}
	if det.Mechanics, err = r.MechanicsFor(ctx, id); err != nil {
		return nil, err
	}
	if det.Parts, err = r.PartsFor(ctx, id); err != nil {
		return nil, err
	}
	return det, nil
}

// ListAllDetailed returns every ticket with both association sets
// populated.  The sets are loaded with one IN-clause query per link table
// rather than one query per ticket.
func (r *TicketRepo) ListAllDetailed(ctx context.Context) ([]TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,description,vin,customer_id FROM service_tickets ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]TicketDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var t model.ServiceTicket
		if err := rows.Scan(&t.ID, &t.Description, &t.VIN, &t.CustomerID); err != nil {
			return nil, err
		}
		index[t.ID] = len(details)
		details = append(details, TicketDetail{Ticket: t, Mechanics: []model.Mechanic{}, Parts: []model.Part{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]any, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.Ticket.ID)
		placeholders = append(placeholders, "?")
	}
	in := strings.Join(placeholders, ",")

	mq := `SELECT sm.service_ticket_id, m.id, m.name, m.email, m.password_hash, m.address, m.phone, m.specialty, m.salary
	       FROM service_ticket_mechanics sm
	       JOIN mechanics m ON m.id = sm.mechanic_id
	       WHERE sm.service_ticket_id IN (` + in + `)
	       ORDER BY sm.service_ticket_id, m.id`
	mrows, err := r.db.QueryContext(ctx, mq, ids...)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var tid uint64
		var m model.Mechanic
		if err := mrows.Scan(&tid, &m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Address, &m.Phone, &m.Specialty, &m.Salary); err != nil {
			return nil, err
		}
		if idx, ok := index[tid]; ok {
			details[idx].Mechanics = append(details[idx].Mechanics, m)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	pq := `SELECT sp.service_ticket_id, p.id, p.name, p.sku, p.description, p.price
	       FROM service_ticket_parts sp
	       JOIN parts p ON p.id = sp.part_id
	       WHERE sp.service_ticket_id IN (` + in + `)
	       ORDER BY sp.service_ticket_id, p.id`
	prows, err := r.db.QueryContext(ctx, pq, ids...)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var tid uint64
		var p model.Part
		var desc sql.NullString
		if err := prows.Scan(&tid, &p.ID, &p.Name, &p.SKU, &desc, &p.Price); err != nil {
			return nil, err
		}
		if desc.Valid {
			p.Description = desc.String
		}
		if idx, ok := index[tid]; ok {
			details[idx].Parts = append(details[idx].Parts, p)
		}
	}
	return details, prows.Err()
}

// CountByCustomer returns the number of tickets owned by a customer.
func (r *TicketRepo) CountByCustomer(ctx context.Context, customerID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_tickets WHERE customer_id=?", customerID).Scan(&n)
	return n, err
}

// ListByCustomer returns one page of a customer's tickets ordered by id.
func (r *TicketRepo) ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.ServiceTicket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,description,vin,customer_id FROM service_tickets WHERE customer_id=? ORDER BY id LIMIT ? OFFSET ?",
		customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ServiceTicket, 0)
	for rows.Next() {
		var t model.ServiceTicket
		if err := rows.Scan(&t.ID, &t.Description, &t.VIN, &t.CustomerID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IDsByCustomer returns just the ids of a customer's tickets, for the
// summary listing mode.
func (r *TicketRepo) IDsByCustomer(ctx context.Context, customerID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM service_tickets WHERE customer_id=? ORDER BY id", customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpdateDescription changes a ticket's description.
func (r *TicketRepo) UpdateDescription(ctx context.Context, id uint64, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_tickets SET description=? WHERE id=?", description, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// Zero rows can also mean an unchanged description, so re-check
	// existence before reporting not found.
	if n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// Delete removes a ticket and both of its association sets in one
// transaction.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_mechanics WHERE service_ticket_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_parts WHERE service_ticket_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM service_tickets WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := notFoundWhenZero(res); err != nil {
		return err
	}
	return tx.Commit()
}

// AssignMechanic adds a mechanic to a ticket's mechanic set.  Both rows
// must exist (ErrNotFound otherwise).  Adding an already-present pair is
// a no-op: the set after two identical assigns equals the set after one.
func (r *TicketRepo) AssignMechanic(ctx context.Context, ticketID, mechanicID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := rowExistsTx(ctx, tx, "service_tickets", ticketID); err != nil {
		return err
	}
	if err := rowExistsTx(ctx, tx, "mechanics", mechanicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO service_ticket_mechanics (service_ticket_id, mechanic_id) VALUES (?,?)",
		ticketID, mechanicID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveMechanic removes a mechanic from a ticket's mechanic set.  Both
// rows must exist; removing an absent pair is a silent no-op.
func (r *TicketRepo) RemoveMechanic(ctx context.Context, ticketID, mechanicID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := rowExistsTx(ctx, tx, "service_tickets", ticketID); err != nil {
		return err
	}
	if err := rowExistsTx(ctx, tx, "mechanics", mechanicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_mechanics WHERE service_ticket_id=? AND mechanic_id=?",
		ticketID, mechanicID); err != nil {
		return err
	}
	return tx.Commit()
}

// BulkEditMechanics applies adds then removes against a ticket's mechanic
// set, best effort: ids that resolve to no mechanic are silently skipped
// so a partially valid batch still applies its valid members.  The
// optional description update rides in the same transaction.
func (r *TicketRepo) BulkEditMechanics(ctx context.Context, ticketID uint64, addIDs, removeIDs []uint64, description *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := rowExistsTx(ctx, tx, "service_tickets", ticketID); err != nil {
		return err
	}
	if description != nil {
		if _, err := tx.ExecContext(ctx,
			"UPDATE service_tickets SET description=? WHERE id=?", *description, ticketID); err != nil {
			return err
		}
	}
	for _, mid := range addIDs {
		// The SELECT keeps unknown ids out without aborting the batch.
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO service_ticket_mechanics (service_ticket_id, mechanic_id) SELECT ?, id FROM mechanics WHERE id=?",
			ticketID, mid); err != nil {
			return err
		}
	}
	for _, mid := range removeIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM service_ticket_mechanics WHERE service_ticket_id=? AND mechanic_id=?",
			ticketID, mid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MechanicsFor returns the mechanic set of a ticket ordered by id.
func (r *TicketRepo) MechanicsFor(ctx context.Context, ticketID uint64) ([]model.Mechanic, error) {
	const q = `SELECT m.id, m.name, m.email, m.password_hash, m.address, m.phone, m.specialty, m.salary
	           FROM service_ticket_mechanics sm
	           JOIN mechanics m ON m.id = sm.mechanic_id
	           WHERE sm.service_ticket_id = ?
	           ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Mechanic, 0)
	for rows.Next() {
		var m model.Mechanic
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Address, &m.Phone, &m.Specialty, &m.Salary); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddParts adds every resolvable part id to the ticket's part set and
// returns how many of the supplied ids resolved.  When none resolve the
// whole operation fails with ErrNoValidParts and nothing is persisted;
// when some resolve, the valid subset is applied (ids already in the set
// remain set members, counting toward the resolved total).
func (r *TicketRepo) AddParts(ctx context.Context, ticketID uint64, partIDs []uint64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := rowExistsTx(ctx, tx, "service_tickets", ticketID); err != nil {
		return 0, err
	}
	if len(partIDs) == 0 {
		return 0, ErrNoValidParts
	}

	placeholders := make([]string, 0, len(partIDs))
	args := make([]any, 0, len(partIDs))
	for _, pid := range partIDs {
		placeholders = append(placeholders, "?")
		args = append(args, pid)
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM parts WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return 0, err
	}
	valid := make([]uint64, 0, len(partIDs))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		valid = append(valid, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(valid) == 0 {
		return 0, ErrNoValidParts
	}
	for _, pid := range valid {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO service_ticket_parts (service_ticket_id, part_id) VALUES (?,?)",
			ticketID, pid); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(valid), nil
}

// RemovePart removes a part from a ticket's part set.  Both rows must
// exist (ErrNotFound) and the pair must be present (ErrNotAssociated).
func (r *TicketRepo) RemovePart(ctx context.Context, ticketID, partID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := rowExistsTx(ctx, tx, "service_tickets", ticketID); err != nil {
		return err
	}
	if err := rowExistsTx(ctx, tx, "parts", partID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM service_ticket_parts WHERE service_ticket_id=? AND part_id=?",
		ticketID, partID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotAssociated
	}
	return tx.Commit()
}

// PartsFor returns the part set of a ticket ordered by id.
func (r *TicketRepo) PartsFor(ctx context.Context, ticketID uint64) ([]model.Part, error) {
	const q = `SELECT p.id, p.name, p.sku, p.description, p.price
	           FROM service_ticket_parts sp
	           JOIN parts p ON p.id = sp.part_id
	           WHERE sp.service_ticket_id = ?
	           ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, q, ticketID)
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

// rowExistsTx checks a primary key within the transaction, answering
// ErrNotFound when the row is absent.  table is always a fixed name from
// this package, never user input.
func rowExistsTx(ctx context.Context, tx *sql.Tx, table string, id uint64) error {
	var found uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
