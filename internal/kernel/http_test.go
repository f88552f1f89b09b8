package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bookstore/app/controllers"
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/app/store/memory"
	"github.com/shashiranjanraj/bookstore/pkg/session"
	"github.com/shashiranjanraj/bookstore/pkg/storage"
)

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Errors     map[string]string `json:"errors"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
		Pages int   `json:"pages"`
	} `json:"pagination"`
}

type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
	header  map[string]string
}

func newClient(t *testing.T) *client {
	t.Helper()

	st := memory.Seeded()
	gate := services.NewAdminGate(st)
	require.NoError(t, gate.EnsureAdmin(context.Background(), "admin", "admin123"))

	disk, err := storage.NewLocal(t.TempDir(), "http://localhost:8080/storage")
	require.NoError(t, err)

	catalog := services.NewCatalogService(st, gate, services.CatalogOptions{Disk: disk})
	k, err := NewHTTPKernel(Deps{
		Catalog:        catalog,
		Carts:          services.NewCartService(st, catalog),
		Gate:           gate,
		Health:         controllers.NewHealthController(st),
		Sessions:       session.NewMemoryStore(),
		SessionOptions: session.DefaultOptions(),
		SessionHeader:  "X-Session-ID",
		Disk:           disk,
	})
	require.NoError(t, err)

	return &client{t: t, h: k.Handler(), header: map[string]string{}}
}

func (c *client) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()

	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()

	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if got := rec.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (c *client) login() {
	c.t.Helper()
	rec, _ := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListBooks(t *testing.T) {
	c := newClient(t)

	rec, env := c.do(http.MethodGet, "/api/books?limit=3&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(8), env.Pagination.Total)
	assert.Equal(t, 3, env.Pagination.Pages)

	var books []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &books))
	require.Len(t, books, 3)
	assert.Equal(t, float64(4), books[0]["id"])

	rec, env = c.do(http.MethodGet, "/api/books?page=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, int64(8), env.Pagination.Total)

	rec, env = c.do(http.MethodGet, "/api/books?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "min_price")

	rec, env = c.do(http.MethodGet, "/api/books?search=tolkien&category=3&max_price=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), env.Pagination.Total)
}

func TestShowBookAndCategory(t *testing.T) {
	c := newClient(t)

	rec, env := c.do(http.MethodGet, "/api/books/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var book map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.Equal(t, "The Hobbit", book["title"])
	assert.Equal(t, 15.99, book["price"])

	rec, env = c.do(http.MethodGet, "/api/books/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, _ = c.do(http.MethodGet, "/api/books/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = c.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	require.Len(t, cats, 6)
	assert.Equal(t, "Fantasy", cats[0]["name"])
	assert.Equal(t, float64(3), cats[0]["book_count"])

	rec, _ = c.do(http.MethodGet, "/api/categories/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminGate(t *testing.T) {
	c := newClient(t)

	rec, env := c.do(http.MethodPost, "/api/books", map[string]interface{}{"title": "Dune", "author": "Frank Herbert", "price": 9.99})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized", env.Error)

	rec, _ = c.do(http.MethodDelete, "/api/books/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c.login()

	rec, env = c.do(http.MethodGet, "/api/auth/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_admin":true,"username":"admin"}`, string(env.Data))

	rec, env = c.do(http.MethodPost, "/api/books", map[string]interface{}{"title": "Dune", "author": "Frank Herbert", "price": 9.99})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "https://via.placeholder.com/300x400", created["image_url"])

	rec, env = c.do(http.MethodPost, "/api/books", map[string]interface{}{"author": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "title")
	assert.Contains(t, env.Errors, "price")

	rec, env = c.do(http.MethodPut, "/api/books/9", map[string]interface{}{"stock": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, float64(4), updated["stock"])
	assert.Equal(t, "Dune", updated["title"])

	rec, _ = c.do(http.MethodDelete, "/api/books/9", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = c.do(http.MethodDelete, "/api/books/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = c.do(http.MethodDelete, "/api/books/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRotatesSessionCookie(t *testing.T) {
	tests := []struct {
		name   string
		preset string
	}{
		{"issued by the server", ""},
		{"chosen by the client", "chosen-session-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t)
			if tt.preset != "" {
				c.cookies = []*http.Cookie{{Name: session.DefaultOptions().CookieName, Value: tt.preset}}
			}

			rec, _ := c.do(http.MethodGet, "/api/auth/status", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, c.cookies, 1)
			before := c.cookies[0]
			assert.NotEqual(t, tt.preset, before.Value, "an unknown id is never adopted")

			c.login()
			require.Len(t, c.cookies, 1)
			assert.NotEqual(t, before.Value, c.cookies[0].Value)

			_, env := c.do(http.MethodGet, "/api/auth/status", nil)
			assert.Contains(t, string(env.Data), `"is_admin":true`)

			for _, stale := range []string{before.Value, tt.preset} {
				if stale == "" {
					continue
				}
				other := &client{t: t, h: c.h, header: map[string]string{}}
				other.cookies = []*http.Cookie{{Name: before.Name, Value: stale}}
				_, env = other.do(http.MethodGet, "/api/auth/status", nil)
				assert.Contains(t, string(env.Data), `"is_admin":false`, stale)
			}
		})
	}
}

func TestCoverUpload(t *testing.T) {
	c := newClient(t)
	c.login()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("cover", "hobbit.jpg")
	require.NoError(t, err)
	fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/books/5/cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, env := c.send(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var book map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.Equal(t, "http://localhost:8080/storage/covers/5.jpg", book["image_url"])

	rec, _ = c.do(http.MethodGet, "/storage/covers/5.jpg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestCartFlow(t *testing.T) {
	c := newClient(t)
	c.header["X-Session-ID"] = "cart-1"

	rec, env := c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"cart_count":1}`, string(env.Data))

	rec, env = c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cart_count":3}`, string(env.Data))

	rec, env = c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 1, "quantity": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock", env.Error)

	rec, env = c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "book_id")

	rec, _ = c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 404})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = c.do(http.MethodPost, "/api/cart/add", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = c.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Items []struct {
			BookID   uint    `json:"book_id"`
			Quantity int     `json:"quantity"`
			Subtotal float64 `json:"subtotal"`
		} `json:"items"`
		Total float64 `json:"total"`
		Count int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, 38.97, view.Total)

	rec, _ = c.do(http.MethodPut, "/api/cart/update", map[string]interface{}{"book_id": 1, "quantity": 5})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = c.do(http.MethodPut, "/api/cart/update", map[string]interface{}{"book_id": 2, "quantity": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = c.do(http.MethodDelete, "/api/cart/remove/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, env = c.do(http.MethodDelete, "/api/cart/remove/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cart_count":0}`, string(env.Data))

	rec, _ = c.do(http.MethodDelete, "/api/cart/clear", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another session sees nothing.
	c.header["X-Session-ID"] = "cart-2"
	_, env = c.do(http.MethodGet, "/api/cart", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 0, view.Count)
}

func TestCartFallsBackToCookieSession(t *testing.T) {
	c := newClient(t)

	rec, _ := c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 2, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, c.cookies)

	_, env := c.do(http.MethodGet, "/api/cart", nil)
	var view struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2, view.Count)
}

func TestGraphQLCartMatchesHeaderSession(t *testing.T) {
	c := newClient(t)
	c.header["X-Session-ID"] = "api-client"

	rec, _ := c.do(http.MethodPost, "/api/cart/add", map[string]interface{}{"book_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = c.do(http.MethodPost, "/graphql", map[string]string{"query": `{ cart { count } }`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"cart":{"count":2}}}`, rec.Body.String())

	// The cookie session alone holds a different, empty cart.
	delete(c.header, "X-Session-ID")
	rec, _ = c.do(http.MethodPost, "/graphql", map[string]string{"query": `{ cart { count } }`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"cart":{"count":0}}}`, rec.Body.String())
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	c := newClient(t)

	rec, env := c.do(http.MethodPatch, "/api/books", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Method not allowed", env.Error)

	rec, env = c.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestHealthMetricsAndGraphQL(t *testing.T) {
	c := newClient(t)

	rec, _ := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookstore_http_requests_total")

	rec, _ = c.do(http.MethodPost, "/graphql", map[string]string{"query": `{ book(id: 1) { title } }`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"book":{"title":"The Great Gatsby"}}}`, rec.Body.String())
}
