// Package graphql exposes a read-only GraphQL view of the catalog and carts.
// Resolvers call the same services as the JSON API.
package graphql

import (
	"errors"
	"time"

	gql "github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/graphql"
	"github.com/shashiranjanraj/bookstore/pkg/session"
)

var categoryType = gql.NewObject(gql.ObjectConfig{
	Name: "Category",
	Fields: gql.Fields{
		"id":        &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"name":      &gql.Field{Type: gql.NewNonNull(gql.String)},
		"bookCount": &gql.Field{Type: gql.Int},
	},
})

var bookType = gql.NewObject(gql.ObjectConfig{
	Name: "Book",
	Fields: gql.Fields{
		"id":          &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"title":       &gql.Field{Type: gql.NewNonNull(gql.String)},
		"author":      &gql.Field{Type: gql.NewNonNull(gql.String)},
		"description": &gql.Field{Type: gql.String},
		"price":       &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"categoryId":  &gql.Field{Type: gql.Int},
		"category":    &gql.Field{Type: categoryType},
		"isbn":        &gql.Field{Type: gql.String},
		"stock":       &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"imageUrl":    &gql.Field{Type: gql.String},
		"rating":      &gql.Field{Type: gql.Float},
		"createdAt":   &gql.Field{Type: gql.String},
	},
})

var bookPageType = gql.NewObject(gql.ObjectConfig{
	Name: "BookPage",
	Fields: gql.Fields{
		"items": &gql.Field{Type: gql.NewList(bookType)},
		"total": &gql.Field{Type: gql.Int},
		"page":  &gql.Field{Type: gql.Int},
		"limit": &gql.Field{Type: gql.Int},
		"pages": &gql.Field{Type: gql.Int},
	},
})

var cartItemType = gql.NewObject(gql.ObjectConfig{
	Name: "CartItem",
	Fields: gql.Fields{
		"bookId":   &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"quantity": &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"subtotal": &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"book":     &gql.Field{Type: bookType},
	},
})

var cartType = gql.NewObject(gql.ObjectConfig{
	Name: "Cart",
	Fields: gql.Fields{
		"items": &gql.Field{Type: gql.NewList(cartItemType)},
		"total": &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"count": &gql.Field{Type: gql.NewNonNull(gql.Int)},
	},
})

// NewSchema builds the query root over the catalog and cart services.
func NewSchema(catalog *services.CatalogService, carts *services.CartService) (gql.Schema, error) {
	r := resolver{catalog: catalog, carts: carts}

	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"books": &gql.Field{
				Type: bookPageType,
				Args: gql.FieldConfigArgument{
					"search":   &gql.ArgumentConfig{Type: gql.String},
					"category": &gql.ArgumentConfig{Type: gql.Int},
					"minPrice": &gql.ArgumentConfig{Type: gql.Float},
					"maxPrice": &gql.ArgumentConfig{Type: gql.Float},
					"page":     &gql.ArgumentConfig{Type: gql.Int},
					"limit":    &gql.ArgumentConfig{Type: gql.Int},
				},
				Resolve: r.books,
			},
			"book": &gql.Field{
				Type: bookType,
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: r.book,
			},
			"categories": &gql.Field{
				Type:    gql.NewList(categoryType),
				Resolve: r.categories,
			},
			"cart": &gql.Field{
				Type: cartType,
				Args: gql.FieldConfigArgument{
					"session": &gql.ArgumentConfig{Type: gql.String},
				},
				Resolve: r.cart,
			},
		},
	})

	return graphql.NewSchema(query)
}

type resolver struct {
	catalog *services.CatalogService
	carts   *services.CartService
}

func (r resolver) books(p gql.ResolveParams) (interface{}, error) {
	q := services.BookQuery{}
	q.Search, _ = p.Args["search"].(string)
	q.Page, _ = p.Args["page"].(int)
	q.Limit, _ = p.Args["limit"].(int)
	if id, ok := p.Args["category"].(int); ok && id > 0 {
		cid := uint(id)
		q.CategoryID = &cid
	}
	if v, ok := p.Args["minPrice"].(float64); ok {
		d := decimal.NewFromFloat(v)
		q.MinPrice = &d
	}
	if v, ok := p.Args["maxPrice"].(float64); ok {
		d := decimal.NewFromFloat(v)
		q.MaxPrice = &d
	}

	page, err := r.catalog.ListBooks(p.Context, q)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, len(page.Items))
	for i, b := range page.Items {
		items[i] = bookMap(b)
	}
	return map[string]interface{}{
		"items": items,
		"total": int(page.Pagination.Total),
		"page":  page.Pagination.Page,
		"limit": page.Pagination.Limit,
		"pages": page.Pagination.Pages,
	}, nil
}

// book resolves to null for unknown ids.
func (r resolver) book(p gql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(int)
	if id < 1 {
		return nil, nil
	}

	b, err := r.catalog.GetBook(p.Context, uint(id))
	if errors.Is(err, services.ErrBookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bookMap(b), nil
}

func (r resolver) categories(p gql.ResolveParams) (interface{}, error) {
	cats, err := r.catalog.ListCategories(p.Context)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, len(cats))
	for i, c := range cats {
		out[i] = map[string]interface{}{
			"id":        int(c.ID),
			"name":      c.Name,
			"bookCount": int(c.BookCount),
		}
	}
	return out, nil
}

// cart falls back to the caller's own cart identity, header or cookie, when
// no id is given.
func (r resolver) cart(p gql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["session"].(string)
	if id == "" {
		id = session.ClientID(p.Context)
	}

	view, err := r.carts.Cart(p.Context, id)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, len(view.Items))
	for i, it := range view.Items {
		items[i] = map[string]interface{}{
			"bookId":   int(it.BookID),
			"quantity": it.Quantity,
			"subtotal": it.Subtotal.InexactFloat64(),
			"book":     bookMap(it.Book),
		}
	}
	return map[string]interface{}{
		"items": items,
		"total": view.Total.InexactFloat64(),
		"count": view.Count,
	}, nil
}

func bookMap(b models.Book) map[string]interface{} {
	m := map[string]interface{}{
		"id":          int(b.ID),
		"title":       b.Title,
		"author":      b.Author,
		"description": b.Description,
		"price":       b.Price.InexactFloat64(),
		"isbn":        b.ISBN,
		"stock":       b.Stock,
		"imageUrl":    b.ImageURL,
		"rating":      b.Rating,
		"createdAt":   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CategoryID != nil {
		m["categoryId"] = int(*b.CategoryID)
	}
	if b.Category != nil {
		m["category"] = map[string]interface{}{"id": int(b.Category.ID), "name": b.Category.Name}
	}
	return m
}
