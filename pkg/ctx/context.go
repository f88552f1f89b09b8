// Package ctx provides a request context for storefront handlers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding, the session
// and the JSON envelope:
//
//	func (c *BookController) Show(x *ctx.Context) {
//	    id, ok := x.ParamUint("id")
//	    if !ok {
//	        x.NotFound("Book not found")
//	        return
//	    }
//	    x.Success(book)
//	}
//
//	router.Get("/books/{id}", "books.show", ctx.Wrap(c.Show))
package ctx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/bookstore/pkg/bind"
	"github.com/shashiranjanraj/bookstore/pkg/response"
	"github.com/shashiranjanraj/bookstore/pkg/session"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// MaxBodyBytes caps JSON request bodies read through BindJSON.
var MaxBodyBytes int64 = 4 << 20

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// ─── Context ──────────────────────────────────────────────────────────────────

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // written status code (0 = not written yet)
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/books/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamUint parses a positive integer path parameter.
func (c *Context) ParamUint(key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// Query returns a trimmed query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryInt parses an integer query value; absent or malformed yields def.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Session returns the request's session.
func (c *Context) Session() *session.Session { return session.FromCtx(c.R) }

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the JSON body into dest. On failure it writes
// a 400 and returns false; the handler should return immediately.
//
//	var input AddInput
//	if !c.BindJSON(&input) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest, MaxBodyBytes)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

func (c *Context) write(status int, body response.Envelope) {
	c.status = status
	response.Write(c.W, status, body)
}

// Success sends a 200 envelope.
func (c *Context) Success(data any, message ...string) {
	c.write(http.StatusOK, response.Envelope{Success: true, Data: data, Message: first(message)})
}

// Created sends a 201 envelope.
func (c *Context) Created(data any, message ...string) {
	c.write(http.StatusCreated, response.Envelope{Success: true, Data: data, Message: first(message)})
}

// Paginated sends a 200 envelope with a pagination block.
func (c *Context) Paginated(items any, pagination any) {
	c.write(http.StatusOK, response.Envelope{Success: true, Data: items, Pagination: pagination})
}

// Error sends a failure envelope with the given status and message.
func (c *Context) Error(code int, message string) {
	c.write(code, response.Envelope{Success: false, Error: message})
}

// ValidationError sends a 400 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.write(http.StatusBadRequest, response.Envelope{Success: false, Error: "Validation failed", Errors: errs})
}

// Unauthorized sends a 401.
func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, firstOr(message, "Unauthorized"))
}

// Forbidden sends a 403.
func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, firstOr(message, "Unauthorized"))
}

// NotFound sends a 404.
func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, firstOr(message, "Not found"))
}

// WrittenStatus returns the status code written, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func first(s []string) string { return firstOr(s, "") }

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}
