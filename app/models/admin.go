package models

// AdminUser is an account allowed to mutate the catalog.
type AdminUser struct {
	ID           uint   `gorm:"primaryKey"                   json:"id"`
	Username     string `gorm:"size:100;not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"size:255;not null"            json:"-"` // bcrypt, never serialised
}
