// Package routes registers the storefront API on the router.
package routes

import (
	"github.com/shashiranjanraj/bookstore/app/controllers"
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
	"github.com/shashiranjanraj/bookstore/pkg/router"
)

// Services is everything the API handlers need.
type Services struct {
	Catalog *services.CatalogService
	Carts   *services.CartService
	Gate    *services.AdminGate
}

func RegisterAPI(r *router.Router, s Services) {
	books := controllers.NewBookController(s.Catalog)
	categories := controllers.NewCategoryController(s.Catalog)
	cart := controllers.NewCartController(s.Carts)
	auth := controllers.NewAuthController(s.Gate)

	api := r.Group("/api")

	api.Get("/books", "books.index", ctx.Wrap(books.Index))
	api.Get("/books/{id}", "books.show", ctx.Wrap(books.Show))

	admin := api.Group("", controllers.RequireAdmin(s.Gate))
	admin.Post("/books", "books.store", ctx.Wrap(books.Store))
	admin.Put("/books/{id}", "books.update", ctx.Wrap(books.Update))
	admin.Delete("/books/{id}", "books.destroy", ctx.Wrap(books.Destroy))
	admin.Post("/books/{id}/cover", "books.cover", ctx.Wrap(books.Cover))

	api.Get("/categories", "categories.index", ctx.Wrap(categories.Index))
	api.Get("/categories/{id}", "categories.show", ctx.Wrap(categories.Show))

	api.Get("/cart", "cart.show", ctx.Wrap(cart.Show))
	api.Post("/cart/add", "cart.add", ctx.Wrap(cart.Add))
	api.Put("/cart/update", "cart.update", ctx.Wrap(cart.Update))
	api.Delete("/cart/remove/{bookId}", "cart.remove", ctx.Wrap(cart.Remove))
	api.Delete("/cart/clear", "cart.clear", ctx.Wrap(cart.Clear))

	api.Post("/auth/login", "auth.login", ctx.Wrap(auth.Login))
	api.Post("/auth/logout", "auth.logout", ctx.Wrap(auth.Logout))
	api.Get("/auth/status", "auth.status", ctx.Wrap(auth.Status))
}
