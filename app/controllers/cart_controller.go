package controllers

import (
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
	"github.com/shashiranjanraj/bookstore/pkg/session"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

// sessionID is the client's session header when sent, else the cookie session.
func (h *CartController) sessionID(c *ctx.Context) string {
	return session.ClientID(c.Context())
}

type addInput struct {
	BookID   uint `json:"book_id"  validate:"required"`
	Quantity *int `json:"quantity" validate:"omitempty,gte=1"`
}

type updateInput struct {
	BookID   uint `json:"book_id"  validate:"required"`
	Quantity *int `json:"quantity" validate:"required"`
}

// Show GET /api/cart
func (h *CartController) Show(c *ctx.Context) {
	view, err := h.carts.Cart(c.Context(), h.sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(view)
}

// Add POST /api/cart/add
func (h *CartController) Add(c *ctx.Context) {
	var input addInput
	if !c.BindJSON(&input) {
		return
	}
	qty := 1
	if input.Quantity != nil {
		qty = *input.Quantity
	}

	session := h.sessionID(c)
	if _, err := h.carts.AddItem(c.Context(), session, input.BookID, qty); err != nil {
		respondError(c, err)
		return
	}
	h.respondCount(c, session, "Item added to cart")
}

// Update PUT /api/cart/update
func (h *CartController) Update(c *ctx.Context) {
	var input updateInput
	if !c.BindJSON(&input) {
		return
	}

	session := h.sessionID(c)
	if err := h.carts.SetQuantity(c.Context(), session, input.BookID, *input.Quantity); err != nil {
		respondError(c, err)
		return
	}
	h.respondCount(c, session, "Cart updated")
}

// Remove DELETE /api/cart/remove/{bookId}
func (h *CartController) Remove(c *ctx.Context) {
	bookID, ok := c.ParamUint("bookId")
	if !ok {
		c.NotFound("Item not found in cart")
		return
	}

	session := h.sessionID(c)
	if err := h.carts.RemoveItem(c.Context(), session, bookID); err != nil {
		respondError(c, err)
		return
	}
	h.respondCount(c, session, "Item removed from cart")
}

// Clear DELETE /api/cart/clear
func (h *CartController) Clear(c *ctx.Context) {
	if err := h.carts.Clear(c.Context(), h.sessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Success(map[string]int{"cart_count": 0}, "Cart cleared")
}

func (h *CartController) respondCount(c *ctx.Context, session, msg string) {
	count, err := h.carts.Count(c.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(map[string]int{"cart_count": count}, msg)
}
