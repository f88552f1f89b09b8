package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/shashiranjanraj/bookstore/app/store"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrForbidden          = errors.New("admin session required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StorageError is a backend failure surfaced unchanged from the store.
type StorageError = store.StorageError

// ValidationError reports malformed or missing input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFound translates store.ErrNotFound into the domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}
