package seeders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/config"
	"github.com/shashiranjanraj/bookstore/pkg/auth"
)

func init() {
	Register("catalog", SeedCatalog)
	Register("admin", SeedAdmin)
}

// SeedCatalog inserts the starter categories and books. Rows are matched by
// category name and book ISBN, and ids are left to the database so sequences
// stay consistent.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		realID := map[uint]uint{}
		for _, seed := range store.SeedCategories() {
			c := models.Category{Name: seed.Name}
			if err := tx.Where(models.Category{Name: seed.Name}).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("category %s: %w", seed.Name, err)
			}
			realID[seed.ID] = c.ID
		}

		for _, b := range store.SeedBooks() {
			var existing models.Book
			err := tx.Select("id").Where("isbn = ?", b.ISBN).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			b.ID = 0
			if b.CategoryID != nil {
				id := realID[*b.CategoryID]
				b.CategoryID = &id
			}
			if err := tx.Create(&b).Error; err != nil {
				return fmt.Errorf("book %s: %w", b.Title, err)
			}
		}
		return nil
	})
}

// SeedAdmin creates or resets the ADMIN_USERNAME account.
func SeedAdmin(ctx context.Context, db *gorm.DB) error {
	hash, err := auth.HashPassword(config.AdminPassword())
	if err != nil {
		return err
	}

	admin := models.AdminUser{Username: config.AdminUsername(), PasswordHash: hash}
	return db.WithContext(ctx).
		Where(models.AdminUser{Username: admin.Username}).
		Assign(models.AdminUser{PasswordHash: hash}).
		FirstOrCreate(&admin).Error
}
