// Package kernel assembles the storefront's HTTP handler: global middleware,
// operational endpoints and the API routes.
package kernel

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/bookstore/app/controllers"
	appgraphql "github.com/shashiranjanraj/bookstore/app/graphql"
	"github.com/shashiranjanraj/bookstore/app/routes"
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
	"github.com/shashiranjanraj/bookstore/pkg/graphql"
	"github.com/shashiranjanraj/bookstore/pkg/metrics"
	"github.com/shashiranjanraj/bookstore/pkg/middleware"
	"github.com/shashiranjanraj/bookstore/pkg/reqid"
	"github.com/shashiranjanraj/bookstore/pkg/response"
	"github.com/shashiranjanraj/bookstore/pkg/router"
	"github.com/shashiranjanraj/bookstore/pkg/session"
	"github.com/shashiranjanraj/bookstore/pkg/storage"
)

// Deps are the collaborators the kernel wires into routes.
type Deps struct {
	Catalog *services.CatalogService
	Carts   *services.CartService
	Gate    *services.AdminGate
	Health  *controllers.HealthController

	Sessions       session.Store
	SessionOptions session.Options
	SessionHeader  string

	Disk         storage.Disk
	RateLimit    int // requests per client per minute; 0 disables
	MaxBodyBytes int64
}

type HTTPKernel struct {
	router *router.Router
}

// NewHTTPKernel builds the router. Middleware order, outermost first:
// metrics, recovery, request id, access log, session, client id, CORS, rate limit.
func NewHTTPKernel(d Deps) (*HTTPKernel, error) {
	if d.MaxBodyBytes > 0 {
		ctx.MaxBodyBytes = d.MaxBodyBytes
	}

	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(d.Sessions, d.SessionOptions))
	r.Use(session.ClientIDMiddleware(d.SessionHeader))
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(d.SessionHeader)))
	if d.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(d.RateLimit, time.Minute).Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { response.MethodNotAllowed(w) })

	r.HandleFunc("/metrics", metrics.Handler())
	if d.Health != nil {
		r.Get("/health", "health", ctx.Wrap(d.Health.Show))
	}

	schema, err := appgraphql.NewSchema(d.Catalog, d.Carts)
	if err != nil {
		return nil, fmt.Errorf("kernel: graphql schema: %w", err)
	}
	r.Post("/graphql", "graphql", graphql.Handler(schema, ctx.MaxBodyBytes))

	if local, ok := d.Disk.(*storage.LocalDisk); ok {
		r.Mount("/storage", http.StripPrefix("/storage", http.FileServer(http.Dir(local.Root()))))
	}

	routes.RegisterAPI(r, routes.Services{
		Catalog: d.Catalog,
		Carts:   d.Carts,
		Gate:    d.Gate,
	})

	return &HTTPKernel{router: r}, nil
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Routes lists every named route.
func (k *HTTPKernel) Routes() []router.RouteInfo { return k.router.Routes() }
