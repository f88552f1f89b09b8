// Package sqlstore is the gorm-backed Store. Books list newest first.
package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/pkg/metrics"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// New wraps an open connection. Tables come from database/migrations.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the connection for migrations and seeders.
func (s *Store) DB() *gorm.DB { return s.db }

// wrap maps gorm's not-found to store.ErrNotFound and everything else to a
// StorageError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return &store.StorageError{Op: op, Err: err}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func applyFilter(q *gorm.DB, f store.BookFilter) *gorm.DB {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(description) LIKE ?)", like, like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	return q
}

func (s *Store) ListBooks(ctx context.Context, f store.BookFilter, page, pageSize int) ([]models.Book, int64, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	filtered := func() *gorm.DB {
		return applyFilter(s.db.WithContext(ctx).Model(&models.Book{}), f)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, wrap("count books", err)
	}

	books := []models.Book{}
	err := filtered().
		Preload("Category").
		Order("created_at DESC").Order("id DESC").
		Offset(store.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&books).Error
	if err != nil {
		return nil, 0, wrap("list books", err)
	}
	return books, total, nil
}

func (s *Store) GetBook(ctx context.Context, id uint) (models.Book, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var b models.Book
	err := s.db.WithContext(ctx).Preload("Category").First(&b, id).Error
	return b, wrap("get book", err)
}

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	defer metrics.ObserveDBQuery("insert", time.Now())

	b.ID = 0
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error; err != nil {
		return wrap("create book", err)
	}
	created, err := s.GetBook(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = created
	return nil
}

func (s *Store) UpdateBook(ctx context.Context, id uint, p store.BookPatch) (models.Book, error) {
	defer metrics.ObserveDBQuery("update", time.Now())

	var out models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Book
		if err := tx.Select("id").First(&current, id).Error; err != nil {
			return err
		}
		if cols := p.Columns(); len(cols) > 0 {
			if err := tx.Model(&current).Omit(clause.Associations).Updates(cols).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Category").First(&out, id).Error
	})
	return out, wrap("update book", err)
}

func (s *Store) DeleteBook(ctx context.Context, id uint) error {
	defer metrics.ObserveDBQuery("delete", time.Now())

	res := s.db.WithContext(ctx).Delete(&models.Book{}, id)
	if res.Error != nil {
		return wrap("delete book", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.CategoryCount, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	out := []models.CategoryCount{}
	err := s.db.WithContext(ctx).
		Table("categories").
		Select("categories.id, categories.name, COUNT(books.id) AS book_count").
		Joins("LEFT JOIN books ON books.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.name ASC").
		Scan(&out).Error
	return out, wrap("list categories", err)
}

func (s *Store) GetCategory(ctx context.Context, id uint) (models.Category, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var c models.Category
	err := s.db.WithContext(ctx).First(&c, id).Error
	return c, wrap("get category", err)
}

// ── Carts ────────────────────────────────────────────────────────────────────

func (s *Store) CartLines(ctx context.Context, session string) ([]models.CartLine, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	lines := []models.CartLine{}
	err := s.db.WithContext(ctx).
		Where("session_id = ?", session).
		Order("id ASC").
		Find(&lines).Error
	return lines, wrap("cart lines", err)
}

func (s *Store) CartLine(ctx context.Context, session string, bookID uint) (models.CartLine, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var line models.CartLine
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND book_id = ?", session, bookID).
		First(&line).Error
	return line, wrap("cart line", err)
}

func (s *Store) PutCartLine(ctx context.Context, line models.CartLine) error {
	defer metrics.ObserveDBQuery("upsert", time.Now())

	line.ID = 0
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).
		Create(&line).Error
	return wrap("put cart line", err)
}

func (s *Store) DeleteCartLine(ctx context.Context, session string, bookID uint) error {
	defer metrics.ObserveDBQuery("delete", time.Now())

	res := s.db.WithContext(ctx).
		Where("session_id = ? AND book_id = ?", session, bookID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return wrap("delete cart line", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, session string) error {
	defer metrics.ObserveDBQuery("delete", time.Now())

	err := s.db.WithContext(ctx).
		Where("session_id = ?", session).
		Delete(&models.CartLine{}).Error
	return wrap("clear cart", err)
}

// ── Admins ───────────────────────────────────────────────────────────────────

func (s *Store) FindAdmin(ctx context.Context, username string) (models.AdminUser, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var a models.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	return a, wrap("find admin", err)
}

func (s *Store) SaveAdmin(ctx context.Context, a *models.AdminUser) error {
	defer metrics.ObserveDBQuery("upsert", time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AdminUser
		err := tx.Where("username = ?", a.Username).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			a.ID = 0
			return tx.Create(a).Error
		case err != nil:
			return err
		}
		a.ID = existing.ID
		return tx.Model(&existing).Update("password_hash", a.PasswordHash).Error
	})
	return wrap("save admin", err)
}
