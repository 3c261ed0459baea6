package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
)

// dbCtx bounds database work to a short timeout derived from the request.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// pathID parses a numeric path parameter. A zero return with ok=false
// means the segment was not a positive integer.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// ----- response shapes -----
//
// Password hashes never leave the repository layer through these views.

type customerView struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type mechanicView struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Specialty string  `json:"specialty"`
	Salary    float64 `json:"salary"`
}

type partView struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type ticketView struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	VIN         string `json:"vin"`
	CustomerID  uint64 `json:"customer_id"`
}

type ticketDetailView struct {
	ID          uint64         `json:"id"`
	Description string         `json:"description"`
	VIN         string         `json:"vin"`
	CustomerID  uint64         `json:"customer_id"`
	Mechanics   []mechanicView `json:"mechanics"`
	Parts       []partView     `json:"parts"`
}

type pageEnvelope struct {
	Items      any   `json:"items"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func viewCustomer(m model.Customer) customerView {
	return customerView{ID: m.ID, Name: m.Name, Email: m.Email, Address: m.Address, Phone: m.Phone}
}

func viewMechanic(m model.Mechanic) mechanicView {
	return mechanicView{
		ID: m.ID, Name: m.Name, Email: m.Email, Address: m.Address,
		Phone: m.Phone, Specialty: m.Specialty, Salary: m.Salary,
	}
}

func viewPart(p model.Part) partView {
	return partView{ID: p.ID, Name: p.Name, SKU: p.SKU, Description: p.Description, Price: p.Price}
}

func viewTicket(t model.ServiceTicket) ticketView {
	return ticketView{ID: t.ID, Description: t.Description, VIN: t.VIN, CustomerID: t.CustomerID}
}

func viewTicketDetail(d repository.TicketDetail) ticketDetailView {
	out := ticketDetailView{
		ID:          d.Ticket.ID,
		Description: d.Ticket.Description,
		VIN:         d.Ticket.VIN,
		CustomerID:  d.Ticket.CustomerID,
		Mechanics:   make([]mechanicView, 0, len(d.Mechanics)),
		Parts:       make([]partView, 0, len(d.Parts)),
	}
	for _, m := range d.Mechanics {
		out.Mechanics = append(out.Mechanics, viewMechanic(m))
	}
	for _, p := range d.Parts {
		out.Parts = append(out.Parts, viewPart(p))
	}
	return out
}
