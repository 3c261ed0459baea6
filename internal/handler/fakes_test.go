package handler

import (
	"context"
	"sort"
	"strings"

	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
)

// In-memory stand-ins for the repositories. They reproduce the same
// sentinel errors and set semantics the SQL layer provides so handlers
// can be exercised without a database.

type fakeCustomerStore struct {
	nextID    uint64
	customers map[uint64]model.Customer
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{nextID: 1, customers: map[uint64]model.Customer{}}
}

func (f *fakeCustomerStore) add(c model.Customer) model.Customer {
	c.ID = f.nextID
	f.nextID++
	f.customers[c.ID] = c
	return c
}

func (f *fakeCustomerStore) Create(_ context.Context, c model.Customer) (uint64, error) {
	for _, existing := range f.customers {
		if strings.EqualFold(existing.Email, c.Email) {
			return 0, repository.ErrEmailExists
		}
		if c.Phone != "" && existing.Phone == c.Phone {
			return 0, repository.ErrPhoneExists
		}
	}
	return f.add(c).ID, nil
}

func (f *fakeCustomerStore) GetByID(_ context.Context, id uint64) (model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return model.Customer{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomerStore) GetByEmail(_ context.Context, email string) (model.Customer, error) {
	for _, c := range f.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return model.Customer{}, repository.ErrNotFound
}

func (f *fakeCustomerStore) Count(context.Context) (int64, error) {
	return int64(len(f.customers)), nil
}

func (f *fakeCustomerStore) List(_ context.Context, limit, offset int) ([]model.Customer, error) {
	all := make([]model.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (f *fakeCustomerStore) Update(_ context.Context, c model.Customer) error {
	if _, ok := f.customers[c.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range f.customers {
		if existing.ID == c.ID {
			continue
		}
		if strings.EqualFold(existing.Email, c.Email) {
			return repository.ErrEmailExists
		}
	}
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomerStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.customers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.customers, id)
	return nil
}

type fakeTicketStore struct {
	nextID    uint64
	tickets   map[uint64]model.ServiceTicket
	mechanics map[uint64]model.Mechanic
	parts     map[uint64]model.Part
	customers *fakeCustomerStore
	crew      map[uint64]map[uint64]bool
	fitted    map[uint64]map[uint64]bool
}

func newFakeTicketStore(customers *fakeCustomerStore) *fakeTicketStore {
	return &fakeTicketStore{
		nextID:    1,
		tickets:   map[uint64]model.ServiceTicket{},
		mechanics: map[uint64]model.Mechanic{},
		parts:     map[uint64]model.Part{},
		customers: customers,
		crew:      map[uint64]map[uint64]bool{},
		fitted:    map[uint64]map[uint64]bool{},
	}
}

func (f *fakeTicketStore) addTicket(description string, customerID uint64, vin string) model.ServiceTicket {
	t := model.ServiceTicket{ID: f.nextID, Description: description, VIN: vin, CustomerID: customerID}
	f.nextID++
	f.tickets[t.ID] = t
	f.crew[t.ID] = map[uint64]bool{}
	f.fitted[t.ID] = map[uint64]bool{}
	return t
}

func (f *fakeTicketStore) Create(_ context.Context, description string, customerID uint64, vin string) (model.ServiceTicket, error) {
	for _, t := range f.tickets {
		if t.VIN == vin {
			return model.ServiceTicket{}, repository.ErrDuplicateVIN
		}
	}
	if _, ok := f.customers.customers[customerID]; !ok {
		return model.ServiceTicket{}, repository.ErrNotFound
	}
	return f.addTicket(description, customerID, vin), nil
}

func (f *fakeTicketStore) GetByID(_ context.Context, id uint64) (model.ServiceTicket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return model.ServiceTicket{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTicketStore) detail(t model.ServiceTicket) repository.TicketDetail {
	d := repository.TicketDetail{Ticket: t, Mechanics: []model.Mechanic{}, Parts: []model.Part{}}
	for id := range f.crew[t.ID] {
		d.Mechanics = append(d.Mechanics, f.mechanics[id])
	}
	for id := range f.fitted[t.ID] {
		d.Parts = append(d.Parts, f.parts[id])
	}
	sort.Slice(d.Mechanics, func(i, j int) bool { return d.Mechanics[i].ID < d.Mechanics[j].ID })
	sort.Slice(d.Parts, func(i, j int) bool { return d.Parts[i].ID < d.Parts[j].ID })
	return d
}

func (f *fakeTicketStore) GetDetail(ctx context.Context, id uint64) (*repository.TicketDetail, error) {
	t, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := f.detail(t)
	return &d, nil
}

func (f *fakeTicketStore) ListAllDetailed(context.Context) ([]repository.TicketDetail, error) {
	all := make([]model.ServiceTicket, 0, len(f.tickets))
	for _, t := range f.tickets {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	out := make([]repository.TicketDetail, 0, len(all))
	for _, t := range all {
		out = append(out, f.detail(t))
	}
	return out, nil
}

func (f *fakeTicketStore) byCustomer(customerID uint64) []model.ServiceTicket {
	out := make([]model.ServiceTicket, 0)
	for _, t := range f.tickets {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeTicketStore) CountByCustomer(_ context.Context, customerID uint64) (int64, error) {
	return int64(len(f.byCustomer(customerID))), nil
}

func (f *fakeTicketStore) ListByCustomer(_ context.Context, customerID uint64, limit, offset int) ([]model.ServiceTicket, error) {
	return page(f.byCustomer(customerID), limit, offset), nil
}

func (f *fakeTicketStore) IDsByCustomer(_ context.Context, customerID uint64) ([]uint64, error) {
	out := make([]uint64, 0)
	for _, t := range f.byCustomer(customerID) {
		out = append(out, t.ID)
	}
	return out, nil
}

func (f *fakeTicketStore) UpdateDescription(_ context.Context, id uint64, description string) error {
	t, ok := f.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Description = description
	f.tickets[id] = t
	return nil
}

func (f *fakeTicketStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.tickets, id)
	delete(f.crew, id)
	delete(f.fitted, id)
	return nil
}

func (f *fakeTicketStore) AssignMechanic(_ context.Context, ticketID, mechanicID uint64) error {
	if _, ok := f.tickets[ticketID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := f.mechanics[mechanicID]; !ok {
		return repository.ErrNotFound
	}
	f.crew[ticketID][mechanicID] = true
	return nil
}

func (f *fakeTicketStore) RemoveMechanic(_ context.Context, ticketID, mechanicID uint64) error {
	if _, ok := f.tickets[ticketID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := f.mechanics[mechanicID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.crew[ticketID], mechanicID)
	return nil
}

func (f *fakeTicketStore) BulkEditMechanics(_ context.Context, ticketID uint64, addIDs, removeIDs []uint64, description *string) error {
	t, ok := f.tickets[ticketID]
	if !ok {
		return repository.ErrNotFound
	}
	if description != nil {
		t.Description = *description
		f.tickets[ticketID] = t
	}
	for _, id := range addIDs {
		if _, ok := f.mechanics[id]; ok {
			f.crew[ticketID][id] = true
		}
	}
	for _, id := range removeIDs {
		delete(f.crew[ticketID], id)
	}
	return nil
}

func (f *fakeTicketStore) MechanicsFor(_ context.Context, ticketID uint64) ([]model.Mechanic, error) {
	out := make([]model.Mechanic, 0)
	for id := range f.crew[ticketID] {
		out = append(out, f.mechanics[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTicketStore) AddParts(_ context.Context, ticketID uint64, partIDs []uint64) (int, error) {
	if _, ok := f.tickets[ticketID]; !ok {
		return 0, repository.ErrNotFound
	}
	valid := make([]uint64, 0, len(partIDs))
	for _, id := range partIDs {
		if _, ok := f.parts[id]; ok {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, repository.ErrNoValidParts
	}
	for _, id := range valid {
		f.fitted[ticketID][id] = true
	}
	return len(valid), nil
}

func (f *fakeTicketStore) RemovePart(_ context.Context, ticketID, partID uint64) error {
	if _, ok := f.tickets[ticketID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := f.parts[partID]; !ok {
		return repository.ErrNotFound
	}
	if !f.fitted[ticketID][partID] {
		return repository.ErrNotAssociated
	}
	delete(f.fitted[ticketID], partID)
	return nil
}

func (f *fakeTicketStore) PartsFor(_ context.Context, ticketID uint64) ([]model.Part, error) {
	out := make([]model.Part, 0)
	for id := range f.fitted[ticketID] {
		out = append(out, f.parts[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePartStore struct {
	nextID uint64
	parts  map[uint64]model.Part
}

func newFakePartStore() *fakePartStore {
	return &fakePartStore{nextID: 1, parts: map[uint64]model.Part{}}
}

func (f *fakePartStore) add(p model.Part) model.Part {
	p.ID = f.nextID
	f.nextID++
	f.parts[p.ID] = p
	return p
}

func (f *fakePartStore) dupCheck(p model.Part) error {
	for _, existing := range f.parts {
		if existing.ID == p.ID {
			continue
		}
		if strings.EqualFold(existing.Name, p.Name) {
			return repository.ErrDuplicateName
		}
		if strings.EqualFold(existing.SKU, p.SKU) {
			return repository.ErrDuplicateSKU
		}
	}
	return nil
}

func (f *fakePartStore) Create(_ context.Context, p model.Part) (uint64, error) {
	if err := f.dupCheck(p); err != nil {
		return 0, err
	}
	return f.add(p).ID, nil
}

func (f *fakePartStore) GetByID(_ context.Context, id uint64) (model.Part, error) {
	p, ok := f.parts[id]
	if !ok {
		return model.Part{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePartStore) Count(context.Context) (int64, error) {
	return int64(len(f.parts)), nil
}

func (f *fakePartStore) List(_ context.Context, limit, offset int) ([]model.Part, error) {
	all := make([]model.Part, 0, len(f.parts))
	for _, p := range f.parts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (f *fakePartStore) Update(_ context.Context, p model.Part) error {
	if _, ok := f.parts[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := f.dupCheck(p); err != nil {
		return err
	}
	f.parts[p.ID] = p
	return nil
}

func (f *fakePartStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.parts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.parts, id)
	return nil
}

type fakeMechanicStore struct {
	nextID    uint64
	mechanics map[uint64]model.Mechanic
	ranked    []repository.RankedMechanic
}

func newFakeMechanicStore() *fakeMechanicStore {
	return &fakeMechanicStore{nextID: 1, mechanics: map[uint64]model.Mechanic{}}
}

func (f *fakeMechanicStore) add(m model.Mechanic) model.Mechanic {
	m.ID = f.nextID
	f.nextID++
	f.mechanics[m.ID] = m
	return m
}

func (f *fakeMechanicStore) Create(_ context.Context, m model.Mechanic) (uint64, error) {
	for _, existing := range f.mechanics {
		if strings.EqualFold(existing.Email, m.Email) {
			return 0, repository.ErrEmailExists
		}
	}
	return f.add(m).ID, nil
}

func (f *fakeMechanicStore) GetByID(_ context.Context, id uint64) (model.Mechanic, error) {
	m, ok := f.mechanics[id]
	if !ok {
		return model.Mechanic{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeMechanicStore) GetByEmail(_ context.Context, email string) (model.Mechanic, error) {
	for _, m := range f.mechanics {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return model.Mechanic{}, repository.ErrNotFound
}

func (f *fakeMechanicStore) Count(context.Context) (int64, error) {
	return int64(len(f.mechanics)), nil
}

func (f *fakeMechanicStore) List(_ context.Context, limit, offset int) ([]model.Mechanic, error) {
	all := make([]model.Mechanic, 0, len(f.mechanics))
	for _, m := range f.mechanics {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (f *fakeMechanicStore) ListByTicketCount(context.Context) ([]repository.RankedMechanic, error) {
	return f.ranked, nil
}

func (f *fakeMechanicStore) Update(_ context.Context, m model.Mechanic) error {
	if _, ok := f.mechanics[m.ID]; !ok {
		return repository.ErrNotFound
	}
	f.mechanics[m.ID] = m
	return nil
}

func (f *fakeMechanicStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.mechanics[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.mechanics, id)
	return nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
