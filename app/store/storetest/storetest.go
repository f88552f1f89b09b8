// Package storetest is the behavioural contract every store.Store backend
// must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
)

// Factory returns a fresh store holding store.SeedCategories and
// store.SeedBooks, with book IDs 1..8 in seed order.
type Factory func(t *testing.T) store.Store

func ptr[T any](v T) *T { return &v }

func ids(books []models.Book) []uint {
	out := make([]uint, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

// Run executes the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ListBooksPaginates", func(t *testing.T) { listBooksPaginates(t, newStore(t)) })
	t.Run("ListBooksFilters", func(t *testing.T) { listBooksFilters(t, newStore(t)) })
	t.Run("BookCRUD", func(t *testing.T) { bookCRUD(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { categories(t, newStore(t)) })
	t.Run("CartLines", func(t *testing.T) { cartLines(t, newStore(t)) })
	t.Run("Admins", func(t *testing.T) { admins(t, newStore(t)) })
}

func listBooksPaginates(t *testing.T, s store.Store) {
	ctx := context.Background()

	all, total, err := s.ListBooks(ctx, store.BookFilter{}, 1, 100)
	require.NoError(t, err)
	require.EqualValues(t, 8, total)
	require.Len(t, all, 8)

	again, _, err := s.ListBooks(ctx, store.BookFilter{}, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(again), "order is stable across calls")

	page2, total, err := s.ListBooks(ctx, store.BookFilter{}, 2, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 8, total, "total ignores pagination")
	assert.Equal(t, ids(all[3:6]), ids(page2))

	page3, _, err := s.ListBooks(ctx, store.BookFilter{}, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, ids(all[6:]), ids(page3))

	beyond, _, err := s.ListBooks(ctx, store.BookFilter{}, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	huge, total, err := s.ListBooks(ctx, store.BookFilter{}, math.MaxInt, 12)
	require.NoError(t, err)
	assert.Empty(t, huge, "offsets past the addressable range are empty, not page 1")
	assert.EqualValues(t, 8, total)
}

func listBooksFilters(t *testing.T, s store.Store) {
	ctx := context.Background()

	tests := []struct {
		name   string
		filter store.BookFilter
		want   []uint
	}{
		{"search author", store.BookFilter{Search: "TOLKIEN"}, []uint{5, 8}},
		{"search description", store.BookFilter{Search: "dystopian"}, []uint{3}},
		{"category", store.BookFilter{CategoryID: ptr(uint(3))}, []uint{5, 6, 8}},
		{"price range inclusive", store.BookFilter{
			MinPrice: ptr(decimal.RequireFromString("15.99")),
			MaxPrice: ptr(decimal.RequireFromString("16.99")),
		}, []uint{5, 6}},
		{"conjunction", store.BookFilter{
			Search:     "novel",
			CategoryID: ptr(uint(3)),
			MaxPrice:   ptr(decimal.NewFromInt(16)),
		}, []uint{5}},
		{"no match", store.BookFilter{Search: "zzz"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListBooks(ctx, tt.filter, 1, 100)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
			assert.ElementsMatch(t, tt.want, ids(got))
		})
	}
}

func bookCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()

	gatsby, err := s.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "The Great Gatsby", gatsby.Title)
	assert.True(t, decimal.RequireFromString("12.99").Equal(gatsby.Price))
	require.NotNil(t, gatsby.Category)
	assert.Equal(t, "Fiction", gatsby.Category.Name)

	_, err = s.GetBook(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	book := &models.Book{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Price:    decimal.RequireFromString("18.50"),
		Stock:    4,
		ImageURL: models.PlaceholderImage,
	}
	require.NoError(t, s.CreateBook(ctx, book))
	assert.NotZero(t, book.ID)
	assert.NotContains(t, []uint{1, 2, 3, 4, 5, 6, 7, 8}, book.ID)
	assert.False(t, book.CreatedAt.IsZero())

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Nil(t, got.CategoryID)

	updated, err := s.UpdateBook(ctx, book.ID, store.BookPatch{
		Price:      ptr(decimal.RequireFromString("20")),
		CategoryID: ptr(uint(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", updated.Title, "absent fields are kept")
	assert.True(t, decimal.NewFromInt(20).Equal(updated.Price))
	require.NotNil(t, updated.CategoryID)
	assert.EqualValues(t, 2, *updated.CategoryID)

	cleared, err := s.UpdateBook(ctx, book.ID, store.BookPatch{CategoryID: ptr(uint(0))})
	require.NoError(t, err)
	assert.Nil(t, cleared.CategoryID)

	_, err = s.UpdateBook(ctx, 999, store.BookPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteBook(ctx, book.ID))
	_, err = s.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBook(ctx, book.ID), store.ErrNotFound)

	next := &models.Book{Title: "Emma", Author: "Jane Austen", Price: decimal.NewFromInt(9)}
	require.NoError(t, s.CreateBook(ctx, next))
	_, err = s.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, uint(1), next.ID, "never collides with a live id")
}

func categories(t *testing.T, s store.Store) {
	ctx := context.Background()

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)

	names := make([]string, len(cats))
	counts := map[string]int64{}
	for i, c := range cats {
		names[i] = c.Name
		counts[c.Name] = c.BookCount
	}
	assert.Equal(t, []string{"Fantasy", "Fiction", "Mystery", "Non-Fiction", "Romance", "Science Fiction"}, names)
	assert.Equal(t, map[string]int64{
		"Fantasy": 3, "Fiction": 3, "Mystery": 0, "Non-Fiction": 0, "Romance": 1, "Science Fiction": 1,
	}, counts)

	require.NoError(t, s.DeleteBook(ctx, 8))
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == "Fantasy" {
			assert.EqualValues(t, 2, c.BookCount)
		}
	}

	c, err := s.GetCategory(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Romance", c.Name)

	_, err = s.GetCategory(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func cartLines(t *testing.T, s store.Store) {
	ctx := context.Background()

	lines, err := s.CartLines(ctx, "unseen")
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, s.PutCartLine(ctx, models.CartLine{SessionID: "a", BookID: 3, Quantity: 1}))
	require.NoError(t, s.PutCartLine(ctx, models.CartLine{SessionID: "a", BookID: 1, Quantity: 2}))
	require.NoError(t, s.PutCartLine(ctx, models.CartLine{SessionID: "a", BookID: 3, Quantity: 5}))
	require.NoError(t, s.PutCartLine(ctx, models.CartLine{SessionID: "b", BookID: 3, Quantity: 7}))

	lines, err = s.CartLines(ctx, "a")
	require.NoError(t, err)
	require.Len(t, lines, 2, "one line per (session, book)")
	assert.Equal(t, uint(3), lines[0].BookID, "insertion order")
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, uint(1), lines[1].BookID)

	line, err := s.CartLine(ctx, "b", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, line.Quantity, "sessions are isolated")

	_, err = s.CartLine(ctx, "b", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteCartLine(ctx, "a", 3))
	assert.ErrorIs(t, s.DeleteCartLine(ctx, "a", 3), store.ErrNotFound)

	require.NoError(t, s.ClearCart(ctx, "a"))
	require.NoError(t, s.ClearCart(ctx, "a"))
	require.NoError(t, s.ClearCart(ctx, "never-seen"))
	lines, err = s.CartLines(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = s.CartLines(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func admins(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.FindAdmin(ctx, "root")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	a := &models.AdminUser{Username: "root", PasswordHash: "h1"}
	require.NoError(t, s.SaveAdmin(ctx, a))
	assert.NotZero(t, a.ID)

	again := &models.AdminUser{Username: "root", PasswordHash: "h2"}
	require.NoError(t, s.SaveAdmin(ctx, again))

	got, err := s.FindAdmin(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, a.ID, got.ID)
}
