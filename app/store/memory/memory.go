// Package memory is a process-local Store. Books list in ascending ID order.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	books      map[uint]models.Book
	lastBookID uint
	categories map[uint]models.Category

	carts      map[string][]models.CartLine // insertion order
	lastLineID uint

	admins      map[string]models.AdminUser
	lastAdminID uint

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		books:      make(map[uint]models.Book),
		categories: make(map[uint]models.Category),
		carts:      make(map[string][]models.CartLine),
		admins:     make(map[string]models.AdminUser),
		now:        time.Now,
	}
}

// Seeded returns a store holding the starter categories and books.
func Seeded() *Store {
	s := New()
	for _, c := range store.SeedCategories() {
		s.categories[c.ID] = c
	}
	for _, b := range store.SeedBooks() {
		s.books[b.ID] = b
		if b.ID > s.lastBookID {
			s.lastBookID = b.ID
		}
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// withCategory returns a detached copy of b with its category joined.
func (s *Store) withCategory(b models.Book) models.Book {
	b = b.Clone()
	b.Category = nil
	if b.CategoryID != nil {
		if c, ok := s.categories[*b.CategoryID]; ok {
			b.Category = &c
		}
	}
	return b
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *Store) ListBooks(_ context.Context, f store.BookFilter, page, pageSize int) ([]models.Book, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		if f.Matches(b) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := store.Offset(page, pageSize)
	if start < 0 || start >= len(matched) {
		return []models.Book{}, total, nil
	}
	end := len(matched)
	if pageSize > 0 && pageSize < end-start {
		end = start + pageSize
	}

	out := make([]models.Book, 0, end-start)
	for _, b := range matched[start:end] {
		out = append(out, s.withCategory(b))
	}
	return out, total, nil
}

func (s *Store) GetBook(_ context.Context, id uint) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return models.Book{}, store.ErrNotFound
	}
	return s.withCategory(b), nil
}

func (s *Store) CreateBook(_ context.Context, b *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastBookID++
	now := s.now()
	b.ID = s.lastBookID
	b.CreatedAt, b.UpdatedAt = now, now

	stored := b.Clone()
	stored.Category = nil
	s.books[b.ID] = stored

	*b = s.withCategory(stored)
	return nil
}

func (s *Store) UpdateBook(_ context.Context, id uint, p store.BookPatch) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return models.Book{}, store.ErrNotFound
	}
	b = b.Clone()
	p.Apply(&b)
	b.UpdatedAt = s.now()
	s.books[id] = b
	return s.withCategory(b), nil
}

func (s *Store) DeleteBook(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *Store) ListCategories(context.Context) ([]models.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uint]int64, len(s.categories))
	for _, b := range s.books {
		if b.CategoryID != nil {
			counts[*b.CategoryID]++
		}
	}

	out := make([]models.CategoryCount, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, models.CategoryCount{Category: c, BookCount: counts[c.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id uint) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	return c, nil
}

// AddCategory registers a category; used by seeding and tests.
func (s *Store) AddCategory(c models.Category) {
	s.mu.Lock()
	s.categories[c.ID] = c
	s.mu.Unlock()
}

// ── Carts ────────────────────────────────────────────────────────────────────

func (s *Store) CartLines(_ context.Context, session string) ([]models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := s.carts[session]
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *Store) CartLine(_ context.Context, session string, bookID uint) (models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.carts[session] {
		if l.BookID == bookID {
			return l, nil
		}
	}
	return models.CartLine{}, store.ErrNotFound
}

func (s *Store) PutCartLine(_ context.Context, line models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[line.SessionID]
	for i := range lines {
		if lines[i].BookID == line.BookID {
			lines[i].Quantity = line.Quantity
			return nil
		}
	}

	s.lastLineID++
	line.ID = s.lastLineID
	if line.AddedAt.IsZero() {
		line.AddedAt = s.now()
	}
	s.carts[line.SessionID] = append(lines, line)
	return nil
}

func (s *Store) DeleteCartLine(_ context.Context, session string, bookID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	for i, l := range lines {
		if l.BookID != bookID {
			continue
		}
		rest := append(lines[:i:i], lines[i+1:]...)
		if len(rest) == 0 {
			delete(s.carts, session)
		} else {
			s.carts[session] = rest
		}
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) ClearCart(_ context.Context, session string) error {
	s.mu.Lock()
	delete(s.carts, session)
	s.mu.Unlock()
	return nil
}

// ── Admins ───────────────────────────────────────────────────────────────────

func (s *Store) FindAdmin(_ context.Context, username string) (models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[username]
	if !ok {
		return models.AdminUser{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) SaveAdmin(_ context.Context, a *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.admins[a.Username]; ok {
		a.ID = existing.ID
	} else {
		s.lastAdminID++
		a.ID = s.lastAdminID
	}
	s.admins[a.Username] = *a
	return nil
}
