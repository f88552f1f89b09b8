package models

// Category groups books. Read-only through the API.
type Category struct {
	ID   uint   `gorm:"primaryKey"                   json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

// CategoryCount is a category annotated with how many books reference it.
type CategoryCount struct {
	Category
	BookCount int64 `json:"book_count"`
}
