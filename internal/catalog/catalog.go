// Package catalog holds the product/category domain model and its storage
// backends (in-memory, JSON file, Postgres, Redis).
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryKind groups categories by the kind of item they hold.
type CategoryKind string

const (
	KindHotDrinks  CategoryKind = "hot_drinks"
	KindColdDrinks CategoryKind = "cold_drinks"
	KindDesserts   CategoryKind = "desserts"
	KindSnacks     CategoryKind = "snacks"
	KindBreakfast  CategoryKind = "breakfast"
	KindLunch      CategoryKind = "lunch"
)

// ProductSize is the serving size, when one applies.
type ProductSize string

const (
	SizeSmall      ProductSize = "small"
	SizeMedium     ProductSize = "medium"
	SizeLarge      ProductSize = "large"
	SizeExtraLarge ProductSize = "extra_large"
)

// Category is a named grouping on the menu.
type Category struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Kind        CategoryKind `json:"kind"`
	Active      bool         `json:"active"`
}

// Product is a sellable catalog item. Price is an exact decimal, never a
// float.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
	Available   bool            `json:"available"`
	Size        ProductSize     `json:"size,omitempty"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Calories    int             `json:"calories,omitempty"`
}

// ErrInvalidProduct rejects products that fail validation.
var ErrInvalidProduct = errors.New("invalid product")

// Validate checks the fields a store must never persist broken.
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidProduct)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", ErrInvalidProduct)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: category id required", ErrInvalidProduct)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with the receiver.
func (p Product) Clone() Product {
	out := p
	if p.Ingredients != nil {
		out.Ingredients = append([]string(nil), p.Ingredients...)
	}
	return out
}

// Sentinel errors shared by every backend.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateID      = errors.New("id already in use")
)

// ProductRepository is the storage contract for products. Add assigns an id
// when the given product has none; ByID reports presence with the bool so
// absence is not an error.
type ProductRepository interface {
	All(ctx context.Context) ([]Product, error)
	ByID(ctx context.Context, id int64) (Product, bool, error)
	ByCategory(ctx context.Context, categoryID int64) ([]Product, error)
	Available(ctx context.Context) ([]Product, error)
	SearchByName(ctx context.Context, query string) ([]Product, error)
	Add(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository is the storage contract for categories.
type CategoryRepository interface {
	All(ctx context.Context) ([]Category, error)
	ByID(ctx context.Context, id int64) (Category, bool, error)
	ByKind(ctx context.Context, kind CategoryKind) ([]Category, error)
	Active(ctx context.Context) ([]Category, error)
	Add(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) error
	Delete(ctx context.Context, id int64) error
}
