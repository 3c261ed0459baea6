package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/config"
	"github.com/mechworks/workshop-api/internal/middleware"
	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
	"github.com/mechworks/workshop-api/internal/utils"
)

// MechanicHandler bundles dependencies for mechanic endpoints.
type MechanicHandler struct {
	Cfg       config.Config
	Mechanics MechanicStore
}

func NewMechanicHandler(cfg config.Config, mechanics MechanicStore) *MechanicHandler {
	return &MechanicHandler{Cfg: cfg, Mechanics: mechanics}
}

type mechanicCreateReq struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Specialty string  `json:"specialty"`
	Salary    float64 `json:"salary"`
}

type mechanicUpdateReq struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Specialty string   `json:"specialty"`
	Salary    *float64 `json:"salary"`
}

type rankedMechanicView struct {
	mechanicView
	TicketCount int64 `json:"ticket_count"`
}

// Register creates a mechanic account. Open endpoint, same as customer
// signup.
func (h *MechanicHandler) Register(c echo.Context) error {
	var req mechanicCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}
	if req.Salary < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "salary must not be negative"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	m := model.Mechanic{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
		Specialty:    strings.TrimSpace(req.Specialty),
		Salary:       req.Salary,
	}
	id, err := h.Mechanics.Create(ctx, m)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create mechanic failed"})
	}
	m.ID = id
	return c.JSON(http.StatusCreated, viewMechanic(m))
}

// Login verifies mechanic credentials and issues an access token.
func (h *MechanicHandler) Login(c echo.Context) error {
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

	m, err := h.Mechanics.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(m.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"mechanic": viewMechanic(m),
		"access":   tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// List returns one page of mechanics. Sits behind the response cache.
func (h *MechanicHandler) List(c echo.Context) error {
	p := utils.ParsePagination(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	total, err := h.Mechanics.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, err := h.Mechanics.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]mechanicView, 0, len(rows))
	for _, m := range rows {
		items = append(items, viewMechanic(m))
	}
	return c.JSON(http.StatusOK, pageEnvelope{
		Items: items, Page: p.Page, PerPage: p.PerPage,
		Total: total, TotalPages: utils.TotalPages(total, p.PerPage),
	})
}

// Get returns a single mechanic by id.
func (h *MechanicHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mechanic id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	m, err := h.Mechanics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, viewMechanic(m))
}

// Top lists mechanics ranked by how many tickets they have worked on,
// busiest first. Open endpoint.
func (h *MechanicHandler) Top(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	ranked, err := h.Mechanics.ListByTicketCount(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]rankedMechanicView, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, rankedMechanicView{
			mechanicView: viewMechanic(r.Mechanic),
			TicketCount:  r.TicketCount,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Update lets a mechanic edit their own record.
func (h *MechanicHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mechanic id"})
	}
	role, ok := middleware.CurrentRole(c)
	if !ok || !role.IsMechanic() || role.SubjectID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only modify your own account"})
	}

	var req mechanicUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Salary != nil && *req.Salary < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "salary must not be negative"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	current, err := h.Mechanics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

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
	if v := strings.TrimSpace(req.Specialty); v != "" {
		current.Specialty = v
	}
	if req.Salary != nil {
		current.Salary = *req.Salary
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		current.PasswordHash = hash
	}

	if err := h.Mechanics.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already registered"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update mechanic failed"})
	}
	return c.JSON(http.StatusOK, viewMechanic(current))
}

// Delete removes the calling mechanic's own account together with any
// ticket assignments pointing at it.
func (h *MechanicHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mechanic id"})
	}
	role, ok := middleware.CurrentRole(c)
	if !ok || !role.IsMechanic() || role.SubjectID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only delete your own account"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Mechanics.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete mechanic failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
