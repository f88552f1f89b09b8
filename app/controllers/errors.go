package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
	"github.com/shashiranjanraj/bookstore/pkg/logger"
)

// respondError maps a service error onto the HTTP envelope. Anything it does
// not recognise is logged and reported as a bare 500.
func respondError(c *ctx.Context, err error) {
	var verr *services.ValidationError

	switch {
	case errors.As(err, &verr):
		c.ValidationError(verr.Fields)
	case errors.Is(err, services.ErrInsufficientStock):
		c.Error(http.StatusBadRequest, "Insufficient stock")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden()
	case errors.Is(err, services.ErrBookNotFound):
		c.NotFound("Book not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		c.NotFound("Category not found")
	case errors.Is(err, services.ErrItemNotFound):
		c.NotFound("Item not found in cart")
	default:
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method,
			"path", c.R.URL.Path,
			"error", err,
		)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}
