package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
)

// maxCoverBytes caps multipart cover uploads.
const maxCoverBytes = 5 << 20

type BookController struct {
	catalog *services.CatalogService
}

func NewBookController(catalog *services.CatalogService) *BookController {
	return &BookController{catalog: catalog}
}

// parseBookQuery reads the listing filters. Malformed numbers are reported
// per field rather than silently ignored.
func parseBookQuery(c *ctx.Context) (services.BookQuery, map[string]string) {
	q := services.BookQuery{
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
	errs := map[string]string{}

	if raw := c.Query("category"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			errs["category"] = "category must be a numeric id"
		} else {
			id := uint(n)
			q.CategoryID = &id
		}
	}

	price := func(key string) *decimal.Decimal {
		raw := c.Query(key)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs[key] = key + " must be a number"
			return nil
		}
		return &d
	}
	q.MinPrice = price("min_price")
	q.MaxPrice = price("max_price")

	return q, errs
}

// Index GET /api/books
func (h *BookController) Index(c *ctx.Context) {
	q, errs := parseBookQuery(c)
	if len(errs) > 0 {
		c.ValidationError(errs)
		return
	}

	page, err := h.catalog.ListBooks(c.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Paginated(page.Items, page.Pagination)
}

// Show GET /api/books/{id}
func (h *BookController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound("Book not found")
		return
	}

	book, err := h.catalog.GetBook(c.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(book)
}

// Store POST /api/books
func (h *BookController) Store(c *ctx.Context) {
	var input services.BookInput
	if !c.BindJSON(&input) {
		return
	}

	book, err := h.catalog.CreateBook(c.Context(), c.Session(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Created(book, "Book created")
}

// Update PUT /api/books/{id}
func (h *BookController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound("Book not found")
		return
	}

	var patch store.BookPatch
	if !c.BindJSON(&patch) {
		return
	}

	book, err := h.catalog.UpdateBook(c.Context(), c.Session(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(book, "Book updated")
}

// Destroy DELETE /api/books/{id}
func (h *BookController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound("Book not found")
		return
	}

	if err := h.catalog.DeleteBook(c.Context(), c.Session(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Success(nil, "Book deleted")
}

// Cover POST /api/books/{id}/cover (multipart field "cover")
func (h *BookController) Cover(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound("Book not found")
		return
	}

	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxCoverBytes)
	file, header, err := c.R.FormFile("cover")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Error(http.StatusRequestEntityTooLarge, "Cover image too large")
			return
		}
		c.ValidationError(map[string]string{"cover": "cover file is required"})
		return
	}
	defer file.Close()

	book, err := h.catalog.SetCover(c.Context(), c.Session(), id, header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(book, "Cover uploaded")
}
