package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices render as JSON numbers (12.99), not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// PlaceholderImage is the cover used when a book is created without one.
const PlaceholderImage = "https://via.placeholder.com/300x400"

// Book is a catalog entry. Price is exact decimal money.
type Book struct {
	ID          uint            `gorm:"primaryKey"                 json:"id"`
	Title       string          `gorm:"size:255;not null;index"    json:"title"`
	Author      string          `gorm:"size:255;not null;index"    json:"author"`
	Description string          `gorm:"type:text"                  json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  *uint           `gorm:"index"                      json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID"      json:"category,omitempty"`
	ISBN        string          `gorm:"column:isbn;size:32"        json:"isbn"`
	Stock       int             `gorm:"not null;default:0"         json:"stock"`
	ImageURL    string          `gorm:"size:512"                   json:"image_url"`
	Rating      float64         `gorm:"not null;default:0"         json:"rating"`
	CreatedAt   time.Time       `gorm:"index"                      json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no pointers with b.
func (b Book) Clone() Book {
	if b.CategoryID != nil {
		id := *b.CategoryID
		b.CategoryID = &id
	}
	if b.Category != nil {
		c := *b.Category
		b.Category = &c
	}
	return b
}
