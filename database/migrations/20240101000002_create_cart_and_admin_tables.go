package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/pkg/migration"
)

func init() {
	migration.Register("20240101000002_create_cart_lines_table", &CreateCartLinesTable{})
	migration.Register("20240101000003_create_admin_users_table", &CreateAdminUsersTable{})
}

// -------- cart_lines --------

type CreateCartLinesTable struct{}

func (m *CreateCartLinesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CartLine{})
}

func (m *CreateCartLinesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("cart_lines")
}

// -------- admin_users --------

type CreateAdminUsersTable struct{}

func (m *CreateAdminUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.AdminUser{})
}

func (m *CreateAdminUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("admin_users")
}
