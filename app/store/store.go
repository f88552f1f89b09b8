// Package store defines the storage contract shared by the in-memory and SQL
// backends. Services depend only on these interfaces.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/models"
)

// ErrNotFound is returned by point lookups and deletes of missing rows.
var ErrNotFound = errors.New("store: not found")

// StorageError wraps a failure of the underlying backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// BookFilter is a conjunction of the predicates that are set.
type BookFilter struct {
	Search     string // case-insensitive substring of title, author or description
	CategoryID *uint
	MinPrice   *decimal.Decimal // inclusive
	MaxPrice   *decimal.Decimal // inclusive
}

// Matches reports whether b satisfies every present predicate.
func (f BookFilter) Matches(b models.Book) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(strings.ToLower(b.Description), q) {
			return false
		}
	}
	if f.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *f.CategoryID) {
		return false
	}
	if f.MinPrice != nil && b.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && b.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// BookPatch carries the fields of a partial update; nil means keep.
// A CategoryID pointing at 0 clears the category.
type BookPatch struct {
	Title       *string          `json:"title"`
	Author      *string          `json:"author"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uint            `json:"category_id"`
	ISBN        *string          `json:"isbn"`
	Stock       *int             `json:"stock"`
	ImageURL    *string          `json:"image_url"`
	Rating      *float64         `json:"rating"`
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool { return len(p.Columns()) == 0 }

// Apply merges the patch into b.
func (p BookPatch) Apply(b *models.Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.CategoryID != nil {
		if *p.CategoryID == 0 {
			b.CategoryID = nil
		} else {
			id := *p.CategoryID
			b.CategoryID = &id
		}
		b.Category = nil
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if p.ImageURL != nil {
		b.ImageURL = *p.ImageURL
	}
	if p.Rating != nil {
		b.Rating = *p.Rating
	}
}

// Columns maps the patch to column → value for SQL updates.
func (p BookPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Author != nil {
		cols["author"] = *p.Author
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.CategoryID != nil {
		if *p.CategoryID == 0 {
			cols["category_id"] = nil
		} else {
			cols["category_id"] = *p.CategoryID
		}
	}
	if p.ISBN != nil {
		cols["isbn"] = *p.ISBN
	}
	if p.Stock != nil {
		cols["stock"] = *p.Stock
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	if p.Rating != nil {
		cols["rating"] = *p.Rating
	}
	return cols
}

// Catalog holds books and categories.
type Catalog interface {
	// ListBooks returns one page of matching books and the unpaginated total.
	ListBooks(ctx context.Context, f BookFilter, page, pageSize int) ([]models.Book, int64, error)
	GetBook(ctx context.Context, id uint) (models.Book, error)
	// CreateBook assigns ID and timestamps on b.
	CreateBook(ctx context.Context, b *models.Book) error
	UpdateBook(ctx context.Context, id uint, p BookPatch) (models.Book, error)
	DeleteBook(ctx context.Context, id uint) error
	// ListCategories is ordered by name.
	ListCategories(ctx context.Context) ([]models.CategoryCount, error)
	GetCategory(ctx context.Context, id uint) (models.Category, error)
}

// Carts holds cart lines keyed by an opaque session id.
type Carts interface {
	// CartLines is in insertion order; an unknown session has no lines.
	CartLines(ctx context.Context, session string) ([]models.CartLine, error)
	CartLine(ctx context.Context, session string, bookID uint) (models.CartLine, error)
	// PutCartLine inserts or replaces the quantity of the (session, book) line.
	PutCartLine(ctx context.Context, line models.CartLine) error
	DeleteCartLine(ctx context.Context, session string, bookID uint) error
	ClearCart(ctx context.Context, session string) error
}

// Admins holds admin accounts.
type Admins interface {
	FindAdmin(ctx context.Context, username string) (models.AdminUser, error)
	// SaveAdmin creates the account or replaces its password hash.
	SaveAdmin(ctx context.Context, a *models.AdminUser) error
}

// Store is the full backend.
type Store interface {
	Catalog
	Carts
	Admins
	Ping(ctx context.Context) error
	Close() error
}

// Offset converts a 1-based page into a row offset. Pages too large to
// address saturate at math.MaxInt rather than wrapping negative.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
