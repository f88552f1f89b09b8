package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/pkg/bind"
	"github.com/shashiranjanraj/bookstore/pkg/cache"
	"github.com/shashiranjanraj/bookstore/pkg/event"
	"github.com/shashiranjanraj/bookstore/pkg/keylock"
	"github.com/shashiranjanraj/bookstore/pkg/logger"
	"github.com/shashiranjanraj/bookstore/pkg/metrics"
	"github.com/shashiranjanraj/bookstore/pkg/storage"
)

// Book lifecycle events fired on the catalog's bus.
const (
	EventBookCreated = "book.created"
	EventBookUpdated = "book.updated"
	EventBookDeleted = "book.deleted"
)

const (
	categoriesCacheKey = "categories"
	maxPageSize        = 100
)

var coverExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// BookEvent is the payload of every book.* event.
type BookEvent struct {
	Op     string
	BookID uint
	Title  string
}

// BookQuery is a listing request as it arrives from a client.
type BookQuery struct {
	Search     string
	CategoryID *uint
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Page       int
	Limit      int
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type BookPage struct {
	Items      []models.Book `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// BookInput is the body of a create request.
type BookInput struct {
	Title       string           `json:"title"       validate:"required,max=255"`
	Author      string           `json:"author"      validate:"required,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	CategoryID  *uint            `json:"category_id"`
	ISBN        string           `json:"isbn"        validate:"max=32"`
	Stock       int              `json:"stock"       validate:"gte=0"`
	ImageURL    string           `json:"image_url"   validate:"max=512"`
	Rating      float64          `json:"rating"      validate:"gte=0,lte=5"`
}

// CategoryCache is the key-value cache the category listing is kept in;
// *cache.Cache satisfies it.
type CategoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type CatalogOptions struct {
	Cache    CategoryCache
	CacheTTL time.Duration
	Disk     storage.Disk
	Events   *event.Bus
	PerPage  int
}

// CatalogService serves catalog reads and admin-gated writes.
type CatalogService struct {
	store   store.Catalog
	gate    *AdminGate
	cache   CategoryCache
	ttl     time.Duration
	disk    storage.Disk
	events  *event.Bus
	perPage int
	locks   *keylock.Map

	// cacheMu orders category cache fills against invalidations; cacheGen
	// counts invalidations so a fill started before one is dropped.
	cacheMu  sync.Mutex
	cacheGen uint64
}

func NewCatalogService(catalog store.Catalog, gate *AdminGate, opts CatalogOptions) *CatalogService {
	if opts.PerPage < 1 {
		opts.PerPage = 12
	}
	if opts.PerPage > maxPageSize {
		opts.PerPage = maxPageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Events == nil {
		opts.Events = event.NewBus(nil)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil, "")
	}

	s := &CatalogService{
		store:   catalog,
		gate:    gate,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		disk:    opts.Disk,
		events:  opts.Events,
		perPage: opts.PerPage,
		locks:   keylock.New(),
	}

	for _, name := range []string{EventBookCreated, EventBookUpdated, EventBookDeleted} {
		s.events.Listen(name, s.invalidateCategories)
		s.events.ListenAsync(name, recordBookChange)
	}
	return s
}

// Events exposes the bus so other components can listen for book changes.
func (s *CatalogService) Events() *event.Bus { return s.events }

// invalidateCategories runs before the mutating call returns, so the next
// ListCategories sees fresh counts.
func (s *CatalogService) invalidateCategories(interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cacheGen++
	if err := s.cache.Del(ctx, categoriesCacheKey); err != nil {
		logger.Warn("catalog: category cache invalidation failed", "error", err)
	}
}

func recordBookChange(payload interface{}) {
	ev, ok := payload.(BookEvent)
	if !ok {
		return
	}
	metrics.CatalogMutations.WithLabelValues(ev.Op).Inc()
	logger.Info("catalog: book changed", "op", ev.Op, "book_id", ev.BookID, "title", ev.Title)
}

func (s *CatalogService) fire(name, op string, b models.Book) {
	s.events.Fire(name, BookEvent{Op: op, BookID: b.ID, Title: b.Title})
}

// ListBooks returns one page of books that match every supplied filter.
func (s *CatalogService) ListBooks(ctx context.Context, q BookQuery) (BookPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	switch {
	case limit == 0:
		limit = s.perPage
	case limit < 1:
		limit = 1
	case limit > maxPageSize:
		limit = maxPageSize
	}

	filter := store.BookFilter{
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
	}

	books, total, err := s.store.ListBooks(ctx, filter, page, limit)
	if err != nil {
		return BookPage{}, err
	}
	if books == nil {
		books = []models.Book{}
	}

	pages := int(total / int64(limit))
	if total%int64(limit) != 0 {
		pages++
	}

	return BookPage{
		Items:      books,
		Pagination: Pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	}, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id uint) (models.Book, error) {
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return models.Book{}, notFound(err, ErrBookNotFound)
	}
	return b, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return models.Category{}, notFound(err, ErrCategoryNotFound)
	}
	return c, nil
}

// ListCategories returns every category with its book count, served from
// the cache when one is configured.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.CategoryCount, error) {
	var cached []models.CategoryCount
	if s.cache.Get(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}

	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []models.CategoryCount{}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	// A book changed while counting; these counts may predate it.
	if gen != s.cacheGen {
		return cats, nil
	}
	if err := s.cache.Set(ctx, categoriesCacheKey, cats, s.ttl); err != nil {
		logger.WithCtx(ctx).Warn("catalog: category cache write failed", "error", err)
	}
	return cats, nil
}

func (s *CatalogService) requireAdmin(sess SessionState) error {
	if s.gate == nil || !s.gate.IsAdmin(sess) {
		return ErrForbidden
	}
	return nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}
	_, err := s.store.GetCategory(ctx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("category_id", "category does not exist")
	}
	return err
}

// CreateBook adds a book. Unset optional fields take their defaults.
func (s *CatalogService) CreateBook(ctx context.Context, sess SessionState, in BookInput) (models.Book, error) {
	if err := s.requireAdmin(sess); err != nil {
		return models.Book{}, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)

	fields := bind.Struct(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if in.Price != nil && in.Price.IsNegative() {
		fields["price"] = "price must be at least 0"
	}
	if len(fields) > 0 {
		return models.Book{}, &ValidationError{Fields: fields}
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return models.Book{}, err
	}

	b := models.Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Price:       in.Price.Round(2),
		ISBN:        in.ISBN,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		Rating:      in.Rating,
	}
	if in.CategoryID != nil && *in.CategoryID != 0 {
		id := *in.CategoryID
		b.CategoryID = &id
	}
	if b.ImageURL == "" {
		b.ImageURL = models.PlaceholderImage
	}

	if err := s.store.CreateBook(ctx, &b); err != nil {
		return models.Book{}, err
	}

	s.fire(EventBookCreated, "create", b)
	return b, nil
}

func validatePatch(p store.BookPatch) map[string]string {
	fields := map[string]string{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		fields["title"] = "title is required"
	}
	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		fields["author"] = "author is required"
	}
	if p.Price != nil && p.Price.IsNegative() {
		fields["price"] = "price must be at least 0"
	}
	if p.Stock != nil && *p.Stock < 0 {
		fields["stock"] = "stock must be at least 0"
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		fields["rating"] = "rating must be between 0 and 5"
	}
	return fields
}

// UpdateBook merges the supplied fields into book id.
func (s *CatalogService) UpdateBook(ctx context.Context, sess SessionState, id uint, p store.BookPatch) (models.Book, error) {
	if err := s.requireAdmin(sess); err != nil {
		return models.Book{}, err
	}
	if fields := validatePatch(p); len(fields) > 0 {
		return models.Book{}, &ValidationError{Fields: fields}
	}
	if p.Price != nil {
		rounded := p.Price.Round(2)
		p.Price = &rounded
	}

	unlock := s.locks.Lock(bookKey(id))
	defer unlock()

	if p.Empty() {
		return s.GetBook(ctx, id)
	}
	if err := s.checkCategory(ctx, p.CategoryID); err != nil {
		return models.Book{}, err
	}

	b, err := s.store.UpdateBook(ctx, id, p)
	if err != nil {
		return models.Book{}, notFound(err, ErrBookNotFound)
	}

	s.fire(EventBookUpdated, "update", b)
	return b, nil
}

// DeleteBook removes book id. Cart lines that reference it are left alone.
func (s *CatalogService) DeleteBook(ctx context.Context, sess SessionState, id uint) error {
	if err := s.requireAdmin(sess); err != nil {
		return err
	}

	unlock := s.locks.Lock(bookKey(id))
	defer unlock()

	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return notFound(err, ErrBookNotFound)
	}
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return notFound(err, ErrBookNotFound)
	}

	s.fire(EventBookDeleted, "delete", b)
	return nil
}

// SetCover stores an uploaded cover image and points the book at it.
func (s *CatalogService) SetCover(ctx context.Context, sess SessionState, id uint, filename string, r io.Reader) (models.Book, error) {
	if err := s.requireAdmin(sess); err != nil {
		return models.Book{}, err
	}
	if s.disk == nil {
		return models.Book{}, errors.New("catalog: no storage disk configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !coverExtensions[ext] {
		return models.Book{}, invalid("cover", "cover must be a jpg, png, gif or webp image")
	}

	unlock := s.locks.Lock(bookKey(id))
	defer unlock()

	if _, err := s.store.GetBook(ctx, id); err != nil {
		return models.Book{}, notFound(err, ErrBookNotFound)
	}

	path := fmt.Sprintf("covers/%d%s", id, ext)
	if err := s.disk.Put(ctx, path, r, mime.TypeByExtension(ext)); err != nil {
		return models.Book{}, fmt.Errorf("catalog: store cover: %w", err)
	}

	url := s.disk.URL(path)
	b, err := s.store.UpdateBook(ctx, id, store.BookPatch{ImageURL: &url})
	if err != nil {
		return models.Book{}, notFound(err, ErrBookNotFound)
	}

	s.fire(EventBookUpdated, "cover", b)
	return b, nil
}

func bookKey(id uint) string { return "book:" + strconv.FormatUint(uint64(id), 10) }
