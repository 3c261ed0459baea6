package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/config"
	"github.com/mechworks/workshop-api/internal/middleware"
	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
	"github.com/mechworks/workshop-api/internal/utils"
)

// CustomerHandler bundles dependencies for customer endpoints.
type CustomerHandler struct {
	Cfg       config.Config
	Customers CustomerStore
	Tickets   TicketStore
}

func NewCustomerHandler(cfg config.Config, customers CustomerStore, tickets TicketStore) *CustomerHandler {
	return &CustomerHandler{Cfg: cfg, Customers: customers, Tickets: tickets}
}

type customerCreateReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type customerUpdateReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Register creates a customer account. Open endpoint: anyone can sign up.
func (h *CustomerHandler) Register(c echo.Context) error {
	var req customerCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Customers.Create(ctx, model.Customer{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create customer failed"})
	}

	return c.JSON(http.StatusCreated, customerView{
		ID: id, Name: req.Name, Email: req.Email,
		Address: strings.TrimSpace(req.Address), Phone: strings.TrimSpace(req.Phone),
	})
}

// Login verifies customer credentials and issues an access token. The
// token carries only the subject id; who the subject is gets resolved on
// every request.
func (h *CustomerHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	cust, err := h.Customers.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(cust.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, cust.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"customer": viewCustomer(cust),
		"access":   tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// List returns one page of customers. Sits behind the response cache.
func (h *CustomerHandler) List(c echo.Context) error {
	p := utils.ParsePagination(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	total, err := h.Customers.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, err := h.Customers.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]customerView, 0, len(rows))
	for _, m := range rows {
		items = append(items, viewCustomer(m))
	}
	return c.JSON(http.StatusOK, pageEnvelope{
		Items: items, Page: p.Page, PerPage: p.PerPage,
		Total: total, TotalPages: utils.TotalPages(total, p.PerPage),
	})
}

// Get returns a single customer by id.
func (h *CustomerHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	cust, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, viewCustomer(cust))
}

// Update lets a customer edit their own profile. Editing anyone else's
// record is forbidden regardless of role.
func (h *CustomerHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	role, ok := middleware.CurrentRole(c)
	if !ok || !role.IsCustomer() || role.SubjectID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only modify your own account"})
	}

	var req customerUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	current, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// Empty fields keep their current value.
	if v := strings.TrimSpace(req.Name); v != "" {
		current.Name = v
	}
	if v := strings.ToLower(strings.TrimSpace(req.Email)); v != "" {
		current.Email = v
	}
	if v := strings.TrimSpace(req.Address); v != "" {
		current.Address = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		current.Phone = v
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		current.PasswordHash = hash
	}

	if err := h.Customers.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already registered"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update customer failed"})
	}
	return c.JSON(http.StatusOK, viewCustomer(current))
}

// Delete lets a customer remove their own account.
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	role, ok := middleware.CurrentRole(c)
	if !ok || !role.IsCustomer() || role.SubjectID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only delete your own account"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Customers.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete customer failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MyTickets lists the calling customer's own service tickets, paginated.
// With ?summary=true it returns only the ticket ids.
func (h *CustomerHandler) MyTickets(c echo.Context) error {
	role, ok := middleware.CurrentRole(c)
	if !ok || !role.IsCustomer() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only customers have their own tickets"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if strings.EqualFold(c.QueryParam("summary"), "true") {
		ids, err := h.Tickets.IDsByCustomer(ctx, role.SubjectID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"ticket_ids": ids})
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
