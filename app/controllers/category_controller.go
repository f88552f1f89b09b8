package controllers

import (
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
)

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: catalog}
}

// Index GET /api/categories
func (h *CategoryController) Index(c *ctx.Context) {
	cats, err := h.catalog.ListCategories(c.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(cats)
}

// Show GET /api/categories/{id}
func (h *CategoryController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound("Category not found")
		return
	}

	cat, err := h.catalog.GetCategory(c.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(cat)
}
