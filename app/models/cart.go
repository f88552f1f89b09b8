package models

import "time"

// CartLine is one (session, book) → quantity record. There is no foreign key
// to books: deleting a book leaves its lines in place.
type CartLine struct {
	ID        uint      `gorm:"primaryKey"                                        json:"id"`
	SessionID string    `gorm:"size:128;not null;uniqueIndex:idx_cart_session_book" json:"session_id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_cart_session_book"          json:"book_id"`
	Quantity  int       `gorm:"not null"                                          json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime"                                    json:"added_at"`
}
