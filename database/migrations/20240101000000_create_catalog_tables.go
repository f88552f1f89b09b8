package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/pkg/migration"
)

func init() {
	migration.Register("20240101000000_create_categories_table", &CreateCategoriesTable{})
	migration.Register("20240101000001_create_books_table", &CreateBooksTable{})
}

// -------- categories --------

type CreateCategoriesTable struct{}

func (m *CreateCategoriesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Category{})
}

func (m *CreateCategoriesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("categories")
}

// -------- books --------

type CreateBooksTable struct{}

func (m *CreateBooksTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Book{})
}

func (m *CreateBooksTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("books")
}
