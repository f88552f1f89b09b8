package store

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/bookstore/app/models"
)

func ptr[T any](v T) *T { return &v }

func TestBookFilterMatches(t *testing.T) {
	hobbit := SeedBooks()[4]

	tests := []struct {
		name   string
		filter BookFilter
		want   bool
	}{
		{"empty filter", BookFilter{}, true},
		{"title case-insensitive", BookFilter{Search: "hOBBit"}, true},
		{"author", BookFilter{Search: "tolkien"}, true},
		{"description", BookFilter{Search: "bilbo"}, true},
		{"no match", BookFilter{Search: "gatsby"}, false},
		{"category", BookFilter{CategoryID: ptr(uint(3))}, true},
		{"other category", BookFilter{CategoryID: ptr(uint(1))}, false},
		{"min inclusive", BookFilter{MinPrice: ptr(decimal.RequireFromString("15.99"))}, true},
		{"max inclusive", BookFilter{MaxPrice: ptr(decimal.RequireFromString("15.99"))}, true},
		{"below min", BookFilter{MinPrice: ptr(decimal.NewFromInt(16))}, false},
		{"conjunction", BookFilter{Search: "tolkien", MaxPrice: ptr(decimal.NewFromInt(10))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(hobbit))
		})
	}

	uncategorised := models.Book{Title: "Loose"}
	assert.False(t, BookFilter{CategoryID: ptr(uint(1))}.Matches(uncategorised))
}

func TestBookPatchApplyAndColumns(t *testing.T) {
	b := SeedBooks()[0]
	p := BookPatch{Price: ptr(decimal.RequireFromString("9.50")), CategoryID: ptr(uint(0))}

	p.Apply(&b)
	assert.Equal(t, "9.5", b.Price.String())
	assert.Nil(t, b.CategoryID)
	assert.Equal(t, "The Great Gatsby", b.Title, "absent fields are kept")

	cols := p.Columns()
	assert.Len(t, cols, 2)
	assert.Nil(t, cols["category_id"])
	assert.True(t, BookPatch{}.Empty())
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 12))
	assert.Equal(t, 3, Offset(2, 3))
	assert.Equal(t, 0, Offset(0, 5))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt, 12))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt/2, 100))
}
