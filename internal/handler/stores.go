package handler

import (
	"context"

	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
)

// The handlers depend on these narrow store interfaces rather than the
// concrete repositories so tests can substitute in-memory fakes. The
// repository types satisfy them as-is.

type CustomerStore interface {
	Create(ctx context.Context, c model.Customer) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Customer, error)
	GetByEmail(ctx context.Context, email string) (model.Customer, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]model.Customer, error)
	Update(ctx context.Context, c model.Customer) error
	Delete(ctx context.Context, id uint64) error
}

type MechanicStore interface {
	Create(ctx context.Context, m model.Mechanic) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Mechanic, error)
	GetByEmail(ctx context.Context, email string) (model.Mechanic, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]model.Mechanic, error)
	ListByTicketCount(ctx context.Context) ([]repository.RankedMechanic, error)
	Update(ctx context.Context, m model.Mechanic) error
	Delete(ctx context.Context, id uint64) error
}

type PartStore interface {
	Create(ctx context.Context, p model.Part) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Part, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]model.Part, error)
	Update(ctx context.Context, p model.Part) error
	Delete(ctx context.Context, id uint64) error
}

type TicketStore interface {
	Create(ctx context.Context, description string, customerID uint64, vin string) (model.ServiceTicket, error)
	GetByID(ctx context.Context, id uint64) (model.ServiceTicket, error)
	GetDetail(ctx context.Context, id uint64) (*repository.TicketDetail, error)
	ListAllDetailed(ctx context.Context) ([]repository.TicketDetail, error)
	CountByCustomer(ctx context.Context, customerID uint64) (int64, error)
	ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.ServiceTicket, error)
	IDsByCustomer(ctx context.Context, customerID uint64) ([]uint64, error)
	UpdateDescription(ctx context.Context, id uint64, description string) error
	Delete(ctx context.Context, id uint64) error
	AssignMechanic(ctx context.Context, ticketID, mechanicID uint64) error
	RemoveMechanic(ctx context.Context, ticketID, mechanicID uint64) error
	BulkEditMechanics(ctx context.Context, ticketID uint64, addIDs, removeIDs []uint64, description *string) error
	MechanicsFor(ctx context.Context, ticketID uint64) ([]model.Mechanic, error)
	AddParts(ctx context.Context, ticketID uint64, partIDs []uint64) (int, error)
	RemovePart(ctx context.Context, ticketID, partID uint64) error
	PartsFor(ctx context.Context, ticketID uint64) ([]model.Part, error)
}
