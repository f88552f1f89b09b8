package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/app/store/memory"
	"github.com/shashiranjanraj/bookstore/pkg/session"
	"github.com/shashiranjanraj/bookstore/pkg/storage"
)

type fixture struct {
	store   *memory.Store
	gate    *AdminGate
	catalog *CatalogService
	carts   *CartService
	admin   *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.Seeded()
	gate := NewAdminGate(st)
	require.NoError(t, gate.EnsureAdmin(context.Background(), "admin", "admin123"))

	disk, err := storage.NewLocal(t.TempDir(), "http://localhost/storage")
	require.NoError(t, err)

	catalog := NewCatalogService(st, gate, CatalogOptions{Disk: disk})
	admin := session.New("admin-session")
	_, err = gate.Login(context.Background(), admin, "admin", "admin123")
	require.NoError(t, err)

	return &fixture{
		store:   st,
		gate:    gate,
		catalog: catalog,
		carts:   NewCartService(st, catalog),
		admin:   admin,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// ─── Cart ─────────────────────────────────────────────────────────────────────

func TestAddItemMergesIntoOneLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 1, 2)
	require.NoError(t, err)
	line, err := f.carts.AddItem(ctx, "s1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	view, err := f.carts.Cart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Count)
	assert.True(t, dec("64.95").Equal(view.Total), view.Total.String())
}

func TestAddItemRejectsWithoutChangingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 8, 6)
	require.NoError(t, err)

	tests := []struct {
		name   string
		bookID uint
		qty    int
		want   error
	}{
		{"over stock", 8, 5, ErrInsufficientStock},
		{"unknown book", 999, 1, ErrBookNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.carts.AddItem(ctx, "s1", tt.bookID, tt.qty)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.carts.AddItem(ctx, "s1", 8, 0)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.carts.AddItem(ctx, "", 8, 1)
	assert.True(t, errors.As(err, &verr))

	count, err := f.carts.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestAddItemHugeQuantityIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 1, 1)
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, "s1", 1, math.MaxInt)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	line, err := f.store.CartLine(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	total, err := f.carts.Total(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, dec("12.99").Equal(total), total.String())
}

func TestAddItemUpToExactStock(t *testing.T) {
	f := newFixture(t)
	_, err := f.carts.AddItem(context.Background(), "s1", 8, 10)
	require.NoError(t, err)
}

func TestSetQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.carts.SetQuantity(ctx, "s1", 1, 2), ErrItemNotFound)

	_, err := f.carts.AddItem(ctx, "s1", 1, 2)
	require.NoError(t, err)

	require.NoError(t, f.carts.SetQuantity(ctx, "s1", 1, 7))
	assert.ErrorIs(t, f.carts.SetQuantity(ctx, "s1", 1, 16), ErrInsufficientStock)

	count, err := f.carts.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	require.NoError(t, f.carts.SetQuantity(ctx, "s1", 1, 0))
	view, err := f.carts.Cart(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.ErrorIs(t, f.carts.RemoveItem(ctx, "s1", 1), ErrItemNotFound)
}

func TestSetQuantityBookGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 2, 1)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteBook(ctx, f.admin, 2))

	assert.ErrorIs(t, f.carts.SetQuantity(ctx, "s1", 2, 3), ErrBookNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.carts.RemoveItem(ctx, "s1", 1), ErrItemNotFound)

	_, err := f.carts.AddItem(ctx, "s1", 1, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", 3, 2)
	require.NoError(t, err)

	require.NoError(t, f.carts.RemoveItem(ctx, "s1", 1))
	count, err := f.carts.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, f.carts.Clear(ctx, "s1"))
	require.NoError(t, f.carts.Clear(ctx, "s1"))
	require.NoError(t, f.carts.Clear(ctx, "never-seen"))

	total, err := f.carts.Total(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestCartUsesLivePrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 1, 2)
	require.NoError(t, err)

	_, err = f.catalog.UpdateBook(ctx, f.admin, 1, store.BookPatch{Price: ptr(dec("10.00"))})
	require.NoError(t, err)

	total, err := f.carts.Total(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, dec("20.00").Equal(total), total.String())
}

func TestCartHidesDeletedBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", 1, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", 2, 1)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteBook(ctx, f.admin, 2))

	view, err := f.carts.Cart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, uint(1), view.Items[0].BookID)
	assert.Equal(t, 1, view.Count)

	lines, err := f.store.CartLines(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "a", 1, 3)
	require.NoError(t, err)

	view, err := f.carts.Cart(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.Count)
}

func TestConcurrentAddItemNeverExceedsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Book 2 has stock 20; 50 single-unit adds race for it.
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.AddItem(ctx, "race", 2, 1)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, ok)
	line, err := f.store.CartLine(ctx, "race", 2)
	require.NoError(t, err)
	assert.Equal(t, 20, line.Quantity)
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

func TestListBooksPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		q         BookQuery
		wantLen   int
		wantPage  int
		wantLimit int
		wantPages int
	}{
		{"defaults", BookQuery{}, 8, 1, 12, 1},
		{"second page", BookQuery{Page: 2, Limit: 3}, 3, 2, 3, 3},
		{"last page", BookQuery{Page: 3, Limit: 3}, 2, 3, 3, 3},
		{"page below one", BookQuery{Page: -4, Limit: 5}, 5, 1, 5, 2},
		{"limit clamped high", BookQuery{Limit: 1000}, 8, 1, 100, 1},
		{"limit clamped low", BookQuery{Limit: -2}, 1, 1, 1, 8},
		{"past the end", BookQuery{Page: 9, Limit: 3}, 0, 9, 3, 3},
		{"page at MaxInt", BookQuery{Page: math.MaxInt}, 0, math.MaxInt, 12, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.catalog.ListBooks(ctx, tt.q)
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantLen)
			assert.Equal(t, tt.wantPage, page.Pagination.Page)
			assert.Equal(t, tt.wantLimit, page.Pagination.Limit)
			assert.Equal(t, tt.wantPages, page.Pagination.Pages)
			assert.Equal(t, int64(8), page.Pagination.Total)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestListBooksFilters(t *testing.T) {
	f := newFixture(t)

	page, err := f.catalog.ListBooks(context.Background(), BookQuery{
		Search:   "TOLKIEN",
		MinPrice: ptr(dec("20")),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "The Lord of the Rings", page.Items[0].Title)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.GetBook(ctx, 404)
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = f.catalog.GetCategory(ctx, 404)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestMutationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := session.New("guest")

	_, err := f.catalog.CreateBook(ctx, guest, BookInput{Title: "x", Author: "y", Price: ptr(dec("1"))})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.catalog.UpdateBook(ctx, guest, 1, store.BookPatch{Title: ptr("z")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.catalog.DeleteBook(ctx, guest, 1), ErrForbidden)
	_, err = f.catalog.SetCover(ctx, guest, 1, "c.png", strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrForbidden)

	// A truthy non-boolean flag is not an admin.
	guest.Set(KeyAdminLoggedIn, "true")
	assert.ErrorIs(t, f.catalog.DeleteBook(ctx, guest, 1), ErrForbidden)

	page, err := f.catalog.ListBooks(ctx, BookQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(8), page.Pagination.Total)
}

func TestCreateBookDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.catalog.CreateBook(ctx, f.admin, BookInput{Title: "Dune", Author: "Frank Herbert", Price: ptr(dec("9.5"))})
	require.NoError(t, err)
	assert.Equal(t, uint(9), b.ID)
	assert.Equal(t, models.PlaceholderImage, b.ImageURL)
	assert.Nil(t, b.CategoryID)
	assert.Equal(t, 0, b.Stock)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := f.catalog.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	tests := []struct {
		name  string
		in    BookInput
		field string
	}{
		{"missing title", BookInput{Author: "a", Price: ptr(dec("1"))}, "title"},
		{"missing price", BookInput{Title: "t", Author: "a"}, "price"},
		{"negative price", BookInput{Title: "t", Author: "a", Price: ptr(dec("-1"))}, "price"},
		{"negative stock", BookInput{Title: "t", Author: "a", Price: ptr(dec("1")), Stock: -1}, "stock"},
		{"rating too high", BookInput{Title: "t", Author: "a", Price: ptr(dec("1")), Rating: 6}, "rating"},
		{"unknown category", BookInput{Title: "t", Author: "a", Price: ptr(dec("1")), CategoryID: ptr(uint(99))}, "category_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateBook(ctx, f.admin, tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestUpdateBookMergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.catalog.UpdateBook(ctx, f.admin, 3, store.BookPatch{Stock: ptr(3), CategoryID: ptr(uint(0))})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Stock)
	assert.Nil(t, b.CategoryID)
	assert.Equal(t, "1984", b.Title)

	_, err = f.catalog.UpdateBook(ctx, f.admin, 404, store.BookPatch{Stock: ptr(1)})
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = f.catalog.UpdateBook(ctx, f.admin, 3, store.BookPatch{Title: ptr("  ")})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDeleteBookUpdatesCategoryCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	count := func(name string) int64 {
		cats, err := f.catalog.ListCategories(ctx)
		require.NoError(t, err)
		for _, c := range cats {
			if c.Name == name {
				return c.BookCount
			}
		}
		t.Fatalf("category %q missing", name)
		return 0
	}

	assert.Equal(t, int64(3), count("Fantasy"))
	require.NoError(t, f.catalog.DeleteBook(ctx, f.admin, 8))
	assert.Equal(t, int64(2), count("Fantasy"))
	assert.ErrorIs(t, f.catalog.DeleteBook(ctx, f.admin, 8), ErrBookNotFound)

	_, err := f.catalog.CreateBook(ctx, f.admin, BookInput{Title: "Mistborn", Author: "Brandon Sanderson", Price: ptr(dec("8")), CategoryID: ptr(uint(3))})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count("Fantasy"))
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	return ok && json.Unmarshal(raw, dest) == nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// midCountCatalog runs during once, after counting categories but before
// the counts are handed back.
type midCountCatalog struct {
	store.Catalog
	during func()
}

func (c *midCountCatalog) ListCategories(ctx context.Context) ([]models.CategoryCount, error) {
	cats, err := c.Catalog.ListCategories(ctx)
	if during := c.during; during != nil {
		c.during = nil
		during()
	}
	return cats, err
}

func TestCategoryCacheDropsFillOverlappingAChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kv := &mapCache{data: map[string][]byte{}}
	backing := &midCountCatalog{Catalog: f.store}
	catalog := NewCatalogService(backing, f.gate, CatalogOptions{Cache: kv})
	backing.during = func() { require.NoError(t, catalog.DeleteBook(ctx, f.admin, 8)) }

	fantasy := func(cats []models.CategoryCount) int64 {
		for _, c := range cats {
			if c.Name == "Fantasy" {
				return c.BookCount
			}
		}
		t.Fatal("Fantasy missing")
		return 0
	}

	cats, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fantasy(cats), "counted before the delete")
	assert.False(t, kv.has(categoriesCacheKey), "pre-delete counts must not be cached")

	cats, err = catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fantasy(cats))
	assert.True(t, kv.has(categoriesCacheKey))

	cats, err = catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fantasy(cats))
}

func TestEventsFireOnMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got []string
	f.catalog.Events().Listen(EventBookUpdated, func(p interface{}) { got = append(got, p.(BookEvent).Op) })

	_, err := f.catalog.UpdateBook(ctx, f.admin, 1, store.BookPatch{Stock: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"update"}, got)
}

func TestSetCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.catalog.SetCover(ctx, f.admin, 4, "Pride.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/storage/covers/4.png", b.ImageURL)

	_, err = f.catalog.SetCover(ctx, f.admin, 4, "notes.txt", strings.NewReader("x"))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.catalog.SetCover(ctx, f.admin, 404, "c.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// ─── Admin gate ───────────────────────────────────────────────────────────────

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := session.New("")

	_, err := f.gate.Login(ctx, sess, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.gate.Login(ctx, sess, "nobody", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, f.gate.IsAdmin(sess))

	_, err = f.gate.Login(ctx, sess, "", "")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	anonymous := sess.ID()

	admin, err := f.gate.Login(ctx, sess, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
	assert.NotEqual(t, anonymous, sess.ID(), "login moves the session to a new id")
	assert.True(t, f.gate.IsAdmin(sess))
	assert.Equal(t, "admin", f.gate.Username(sess))

	f.gate.Logout(sess)
	assert.False(t, f.gate.IsAdmin(sess))
	assert.Equal(t, "", f.gate.Username(sess))
	f.gate.Logout(sess)
}
