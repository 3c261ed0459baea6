package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
	"github.com/mechworks/workshop-api/internal/utils"
)

// InventoryHandler bundles dependencies for the parts catalogue. Writes
// are restricted to mechanics at the routing layer; reads are open to any
// authenticated identity.
type InventoryHandler struct {
	Parts PartStore
}

func NewInventoryHandler(parts PartStore) *InventoryHandler {
	return &InventoryHandler{Parts: parts}
}

type partCreateReq struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type partUpdateReq struct {
	Name        string   `json:"name"`
	SKU         string   `json:"sku"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
}

// Create adds a part to the catalogue. Name and SKU are unique.
func (h *InventoryHandler) Create(c echo.Context) error {
	var req partCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/sku required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p := model.Part{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
	}
	id, err := h.Parts.Create(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "part name already exists"})
		case errors.Is(err, repository.ErrDuplicateSKU):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sku already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create part failed"})
	}
	p.ID = id
	return c.JSON(http.StatusCreated, viewPart(p))
}

// List returns one page of the catalogue. Sits behind the response cache.
func (h *InventoryHandler) List(c echo.Context) error {
	p := utils.ParsePagination(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	total, err := h.Parts.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rows, err := h.Parts.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]partView, 0, len(rows))
	for _, row := range rows {
		items = append(items, viewPart(row))
	}
	return c.JSON(http.StatusOK, pageEnvelope{
		Items: items, Page: p.Page, PerPage: p.PerPage,
		Total: total, TotalPages: utils.TotalPages(total, p.PerPage),
	})
}

// Get returns a single part by id.
func (h *InventoryHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid part id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Parts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "part not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, viewPart(p))
}

// Update edits a catalogue entry. Absent fields keep their value.
func (h *InventoryHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid part id"})
	}

	var req partUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Price != nil && *req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	current, err := h.Parts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "part not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		current.Name = v
	}
	if v := strings.TrimSpace(req.SKU); v != "" {
		current.SKU = v
	}
	if req.Description != nil {
		current.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		current.Price = *req.Price
	}

	if err := h.Parts.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "part name already exists"})
		case errors.Is(err, repository.ErrDuplicateSKU):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sku already exists"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "part not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update part failed"})
	}
	return c.JSON(http.StatusOK, viewPart(current))
}

// Delete removes a part and any ticket associations referencing it.
func (h *InventoryHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid part id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Parts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "part not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete part failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
