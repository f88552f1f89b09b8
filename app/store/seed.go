package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/models"
)

// SeedCategories is the starter category list.
func SeedCategories() []models.Category {
	return []models.Category{
		{ID: 1, Name: "Fiction"},
		{ID: 2, Name: "Science Fiction"},
		{ID: 3, Name: "Fantasy"},
		{ID: 4, Name: "Romance"},
		{ID: 5, Name: "Mystery"},
		{ID: 6, Name: "Non-Fiction"},
	}
}

// SeedBooks is the starter catalog. CreatedAt increases with ID so newest-first
// listings are deterministic.
func SeedBooks() []models.Book {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cat := func(id uint) *uint { return &id }

	books := []models.Book{
		{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Price: decimal.RequireFromString("12.99"), CategoryID: cat(1),
			ISBN: "978-0-7432-7356-5", Stock: 15, Rating: 4.5, ImageURL: "https://covers.openlibrary.org/b/id/7222246-L.jpg",
			Description: "A classic American novel set in the Jazz Age that explores themes of wealth, love, and the American Dream."},
		{ID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Price: decimal.RequireFromString("14.99"), CategoryID: cat(1),
			ISBN: "978-0-06-112008-4", Stock: 20, Rating: 4.8, ImageURL: "https://covers.openlibrary.org/b/id/8228691-L.jpg",
			Description: "A gripping tale of racial injustice and childhood innocence in the American South."},
		{ID: 3, Title: "1984", Author: "George Orwell", Price: decimal.RequireFromString("13.99"), CategoryID: cat(2),
			ISBN: "978-0-452-28423-4", Stock: 25, Rating: 4.7, ImageURL: "https://covers.openlibrary.org/b/id/7222246-L.jpg",
			Description: "A dystopian social science fiction novel and cautionary tale about totalitarianism."},
		{ID: 4, Title: "Pride and Prejudice", Author: "Jane Austen", Price: decimal.RequireFromString("11.99"), CategoryID: cat(4),
			ISBN: "978-0-14-143951-8", Stock: 18, Rating: 4.6, ImageURL: "https://covers.openlibrary.org/b/id/8235655-L.jpg",
			Description: "A romantic novel of manners that explores themes of love, reputation, and class."},
		{ID: 5, Title: "The Hobbit", Author: "J.R.R. Tolkien", Price: decimal.RequireFromString("15.99"), CategoryID: cat(3),
			ISBN: "978-0-547-92822-7", Stock: 22, Rating: 4.9, ImageURL: "https://covers.openlibrary.org/b/id/8482014-L.jpg",
			Description: "A fantasy novel and children's book about the quest of home-loving hobbit Bilbo Baggins."},
		{ID: 6, Title: "Harry Potter and the Philosopher's Stone", Author: "J.K. Rowling", Price: decimal.RequireFromString("16.99"), CategoryID: cat(3),
			ISBN: "978-0-7475-3269-9", Stock: 30, Rating: 4.9, ImageURL: "https://covers.openlibrary.org/b/id/10521270-L.jpg",
			Description: "The first novel in the Harry Potter series following a young wizard's journey."},
		{ID: 7, Title: "The Catcher in the Rye", Author: "J.D. Salinger", Price: decimal.RequireFromString("12.99"), CategoryID: cat(1),
			ISBN: "978-0-316-76948-0", Stock: 12, Rating: 4.3, ImageURL: "https://covers.openlibrary.org/b/id/8228522-L.jpg",
			Description: "A story about teenage rebellion and alienation narrated by Holden Caulfield."},
		{ID: 8, Title: "The Lord of the Rings", Author: "J.R.R. Tolkien", Price: decimal.RequireFromString("24.99"), CategoryID: cat(3),
			ISBN: "978-0-544-00341-5", Stock: 10, Rating: 5.0, ImageURL: "https://covers.openlibrary.org/b/id/8482014-L.jpg",
			Description: "An epic high-fantasy novel about the quest to destroy the One Ring."},
	}

	for i := range books {
		books[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		books[i].UpdatedAt = books[i].CreatedAt
	}
	return books
}
