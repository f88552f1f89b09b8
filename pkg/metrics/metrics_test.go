package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/books/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := counterValue(t, RequestTotal.WithLabelValues("GET", "/api/books/{id}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/books/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/books/43", nil))
	after := counterValue(t, RequestTotal.WithLabelValues("GET", "/api/books/{id}", "418"))

	assert.Equal(t, 2.0, after-before)
}

func TestRecordCart(t *testing.T) {
	ok := CartOperations.WithLabelValues("add", "ok")
	failed := CartOperations.WithLabelValues("add", "error")
	okBefore, failedBefore := counterValue(t, ok), counterValue(t, failed)

	RecordCart("add", nil)
	RecordCart("add", errors.New("out of stock"))

	assert.Equal(t, 1.0, counterValue(t, ok)-okBefore)
	assert.Equal(t, 1.0, counterValue(t, failed)-failedBefore)
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordCart("clear", nil)
	rec := httptest.NewRecorder()
	Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookstore_cart_operations_total")
}
