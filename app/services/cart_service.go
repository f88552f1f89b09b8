package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bookstore/app/models"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/pkg/keylock"
	"github.com/shashiranjanraj/bookstore/pkg/metrics"
)

// BookReader is the slice of the catalog the cart needs.
type BookReader interface {
	GetBook(ctx context.Context, id uint) (models.Book, error)
}

// CartItem is one priced cart line. Subtotal uses the book's current price.
type CartItem struct {
	BookID   uint            `json:"book_id"`
	Quantity int             `json:"quantity"`
	Book     models.Book     `json:"book"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartView is a priced snapshot of one session's cart.
type CartView struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// CartService owns the cart invariants: one line per book, quantity never
// above stock at write time. Mutations for one session are serialised.
type CartService struct {
	carts store.Carts
	books BookReader
	locks *keylock.Map
}

func NewCartService(carts store.Carts, books BookReader) *CartService {
	return &CartService{carts: carts, books: books, locks: keylock.New()}
}

func checkSession(session string) error {
	if session == "" {
		return invalid("session", "session id is required")
	}
	return nil
}

// Cart prices every line against the live catalog. Lines whose book no
// longer exists are left out of the view.
func (s *CartService) Cart(ctx context.Context, session string) (CartView, error) {
	view := CartView{Items: []CartItem{}, Total: decimal.Zero}
	if err := checkSession(session); err != nil {
		return view, err
	}

	lines, err := s.carts.CartLines(ctx, session)
	if err != nil {
		return view, err
	}

	for _, line := range lines {
		book, err := s.books.GetBook(ctx, line.BookID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return CartView{Items: []CartItem{}, Total: decimal.Zero}, err
		}

		subtotal := book.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Items = append(view.Items, CartItem{
			BookID:   line.BookID,
			Quantity: line.Quantity,
			Book:     book,
			Subtotal: subtotal,
		})
		view.Total = view.Total.Add(subtotal)
		view.Count += line.Quantity
	}
	return view, nil
}

// Total is the sum of quantity × current price.
func (s *CartService) Total(ctx context.Context, session string) (decimal.Decimal, error) {
	view, err := s.Cart(ctx, session)
	return view.Total, err
}

// Count is the sum of quantities.
func (s *CartService) Count(ctx context.Context, session string) (int, error) {
	view, err := s.Cart(ctx, session)
	return view.Count, err
}

// AddItem adds qty of a book, merging into an existing line. Nothing changes
// when the combined quantity would exceed stock.
func (s *CartService) AddItem(ctx context.Context, session string, bookID uint, qty int) (line models.CartLine, err error) {
	defer func() { metrics.RecordCart("add", err) }()

	if err := checkSession(session); err != nil {
		return line, err
	}
	if qty < 1 {
		return line, invalid("quantity", "quantity must be at least 1")
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return line, notFound(err, ErrBookNotFound)
	}

	existing := 0
	current, err := s.carts.CartLine(ctx, session, bookID)
	switch {
	case err == nil:
		existing = current.Quantity
	case !errors.Is(err, store.ErrNotFound):
		return line, err
	}

	// Compared as a difference: existing+qty can overflow for huge qty.
	if qty > book.Stock-existing {
		return line, fmt.Errorf("%w: %d available, %d in cart, %d requested", ErrInsufficientStock, book.Stock, existing, qty)
	}

	line = models.CartLine{SessionID: session, BookID: bookID, Quantity: existing + qty}
	if err := s.carts.PutCartLine(ctx, line); err != nil {
		return models.CartLine{}, err
	}
	return line, nil
}

// SetQuantity replaces a line's quantity; qty ≤ 0 removes the line.
func (s *CartService) SetQuantity(ctx context.Context, session string, bookID uint, qty int) (err error) {
	defer func() { metrics.RecordCart("update", err) }()

	if err := checkSession(session); err != nil {
		return err
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	line, err := s.carts.CartLine(ctx, session, bookID)
	if err != nil {
		return notFound(err, ErrItemNotFound)
	}

	if qty <= 0 {
		return notFound(s.carts.DeleteCartLine(ctx, session, bookID), ErrItemNotFound)
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return notFound(err, ErrBookNotFound)
	}
	if qty > book.Stock {
		return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, book.Stock, qty)
	}

	line.Quantity = qty
	return s.carts.PutCartLine(ctx, line)
}

// RemoveItem deletes the line for bookID.
func (s *CartService) RemoveItem(ctx context.Context, session string, bookID uint) (err error) {
	defer func() { metrics.RecordCart("remove", err) }()

	if err := checkSession(session); err != nil {
		return err
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	return notFound(s.carts.DeleteCartLine(ctx, session, bookID), ErrItemNotFound)
}

// Clear empties the cart. Clearing an unknown session succeeds.
func (s *CartService) Clear(ctx context.Context, session string) (err error) {
	defer func() { metrics.RecordCart("clear", err) }()

	if err := checkSession(session); err != nil {
		return err
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	return s.carts.ClearCart(ctx, session)
}
