package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/middleware"
	"github.com/mechworks/workshop-api/internal/queue"
	"github.com/mechworks/workshop-api/internal/repository"
	queue_publisher "github.com/mechworks/workshop-api/internal/service"
	"github.com/mechworks/workshop-api/internal/utils"
)

// TicketHandler bundles dependencies for service-ticket endpoints. The
// publish funcs are swappable so tests can observe events without a
// broker; production wiring uses the queue_publisher package.
type TicketHandler struct {
	Tickets   TicketStore
	Customers CustomerStore

	PublishCreated    func(context.Context, queue.TicketCreatedEvent) error
	PublishPartsAdded func(context.Context, queue.TicketPartsAddedEvent) error
}

func NewTicketHandler(tickets TicketStore, customers CustomerStore) *TicketHandler {
	return &TicketHandler{
		Tickets:           tickets,
		Customers:         customers,
		PublishCreated:    queue_publisher.PublishTicketCreated,
		PublishPartsAdded: queue_publisher.PublishTicketPartsAdded,
	}
}

type ticketCreateReq struct {
	Description string `json:"description"`
	VIN         string `json:"vin"`
	CustomerID  uint64 `json:"customer_id"`
}

type ticketUpdateReq struct {
	Description string `json:"description"`
}

type ticketEditReq struct {
	AddMechanicIDs    []uint64 `json:"add_mechanic_ids"`
	RemoveMechanicIDs []uint64 `json:"remove_mechanic_ids"`
	Description       *string  `json:"description"`
}

type addPartsReq struct {
	PartIDs []uint64 `json:"part_ids"`
}

// Create opens a service ticket for a customer's vehicle. Each VIN can
// have at most one ticket. Emits a ticket.created event; publish failures
// are logged, never surfaced to the client.
func (h *TicketHandler) Create(c echo.Context) error {
	var req ticketCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.VIN = strings.ToUpper(strings.TrimSpace(req.VIN))
	req.Description = strings.TrimSpace(req.Description)
	if req.VIN == "" || req.Description == "" || req.CustomerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description/vin/customer_id required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	t, err := h.Tickets.Create(ctx, req.Description, req.CustomerID, req.VIN)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateVIN):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a ticket already exists for this vin"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket failed"})
	}

	customerName := ""
	if cust, err := h.Customers.GetByID(ctx, t.CustomerID); err == nil {
		customerName = cust.Name
	}
	ev := queue.TicketCreatedEvent{
		TicketID:     t.ID,
		VIN:          t.VIN,
		Description:  t.Description,
		CustomerID:   t.CustomerID,
		CustomerName: customerName,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		if err := h.PublishCreated(pubCtx, ev); err != nil {
			log.Printf("ticket: publish created event failed: %v", err)
		}
	}()

	return c.JSON(http.StatusCreated, viewTicket(t))
}

// List is role-dependent: mechanics see every ticket with full mechanic
// and part sets, customers see a page of their own tickets.
func (h *TicketHandler) List(c echo.Context) error {
	role, ok := middleware.CurrentRole(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if role.IsMechanic() {
		details, err := h.Tickets.ListAllDetailed(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		items := make([]ticketDetailView, 0, len(details))
		for _, d := range details {
			items = append(items, viewTicketDetail(d))
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items})
	}

	p := utils.ParsePagination(c)
	total, err := h.Tickets.CountByCustomer(ctx, role.SubjectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, err := h.Tickets.ListByCustomer(ctx, role.SubjectID, p.PerPage, p.Offset())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]ticketView, 0, len(rows))
	for _, t := range rows {
		items = append(items, viewTicket(t))
	}
	return c.JSON(http.StatusOK, pageEnvelope{
		Items: items, Page: p.Page, PerPage: p.PerPage,
		Total: total, TotalPages: utils.TotalPages(total, p.PerPage),
	})
}

// Get returns a ticket with both association sets. Mechanics can read
// any ticket; a customer only their own.
func (h *TicketHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	det, err := h.Tickets.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.authorizeRead(c, det.Ticket.CustomerID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewTicketDetail(*det))
}

// Update changes a ticket's description.
func (h *TicketHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req ticketUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.UpdateDescription(ctx, id, req.Description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket failed"})
	}
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, viewTicket(t))
}

// Delete removes a ticket and its association sets.
func (h *TicketHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete ticket failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignMechanic adds a mechanic to the ticket's crew. Assigning the
// same mechanic twice leaves the crew unchanged. Responds with the
// ticket's current mechanic set.
func (h *TicketHandler) AssignMechanic(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	mechanicID, ok := pathID(c, "mechanic_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mechanic id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.AssignMechanic(ctx, ticketID, mechanicID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket or mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign mechanic failed"})
	}
	return h.respondMechanics(c, ctx, ticketID)
}

// RemoveMechanic takes a mechanic off the ticket's crew. Removing a
// mechanic that is not assigned is a no-op.
func (h *TicketHandler) RemoveMechanic(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	mechanicID, ok := pathID(c, "mechanic_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mechanic id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.RemoveMechanic(ctx, ticketID, mechanicID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket or mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove mechanic failed"})
	}
	return h.respondMechanics(c, ctx, ticketID)
}

// Edit applies a batch of crew adds and removes, optionally changing the
// description in the same operation. Unknown mechanic ids in the batch
// are skipped rather than failing the whole edit.
func (h *TicketHandler) Edit(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req ticketEditReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.BulkEditMechanics(ctx, ticketID, req.AddMechanicIDs, req.RemoveMechanicIDs, req.Description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edit ticket failed"})
	}

	det, err := h.Tickets.GetDetail(ctx, ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, viewTicketDetail(*det))
}

// AddParts attaches inventory parts to a ticket. Ids that do not resolve
// to a part are skipped; when none resolve, nothing is applied and the
// request fails. Emits a ticket.parts_added event on success.
func (h *TicketHandler) AddParts(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req addPartsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	count, err := h.Tickets.AddParts(ctx, ticketID, req.PartIDs)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, repository.ErrNoValidParts):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no valid parts in request"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add parts failed"})
	}

	ev := queue.TicketPartsAddedEvent{
		TicketID:      ticketID,
		PartIDs:       req.PartIDs,
		ResolvedCount: count,
		AddedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		if err := h.PublishPartsAdded(pubCtx, ev); err != nil {
			log.Printf("ticket: publish parts_added event failed: %v", err)
		}
	}()

	parts, err := h.Tickets.PartsFor(ctx, ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]partView, 0, len(parts))
	for _, p := range parts {
		views = append(views, viewPart(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"added_count": count, "parts": views})
}

// RemovePart detaches a part from a ticket. The pair must actually be
// associated.
func (h *TicketHandler) RemovePart(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	partID, ok := pathID(c, "part_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid part id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tickets.RemovePart(ctx, ticketID, partID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket or part not found"})
		case errors.Is(err, repository.ErrNotAssociated):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "part is not on this ticket"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove part failed"})
	}

	parts, err := h.Tickets.PartsFor(ctx, ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]partView, 0, len(parts))
	for _, p := range parts {
		views = append(views, viewPart(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"parts": views})
}

// Parts returns the part set of a ticket. Same visibility rules as Get.
func (h *TicketHandler) Parts(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.authorizeRead(c, t.CustomerID); err != nil {
		return err
	}

	parts, err := h.Tickets.PartsFor(ctx, ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]partView, 0, len(parts))
	for _, p := range parts {
		views = append(views, viewPart(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"parts": views})
}

// authorizeRead enforces ticket visibility: mechanics see everything,
// customers only tickets they own. Writes the error response itself and
// returns it for the handler to propagate.
func (h *TicketHandler) authorizeRead(c echo.Context, ownerID uint64) error {
	role, ok := middleware.CurrentRole(c)
	if ok && role.IsMechanic() {
		return nil
	}
	if ok && role.IsCustomer() && role.SubjectID == ownerID {
		return nil
	}
	return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have access to this ticket"})
}

func (h *TicketHandler) respondMechanics(c echo.Context, ctx context.Context, ticketID uint64) error {
	mechs, err := h.Tickets.MechanicsFor(ctx, ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]mechanicView, 0, len(mechs))
	for _, m := range mechs {
		views = append(views, viewMechanic(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "mechanics": views})
}
