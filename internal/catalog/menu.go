package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MenuService answers read-side menu queries by composing the product and
// category repositories. It never mutates either store.
type MenuService struct {
	products   ProductRepository
	categories CategoryRepository
}

// NewMenuService wires a menu over the given repositories.
func NewMenuService(products ProductRepository, categories CategoryRepository) *MenuService {
	return &MenuService{products: products, categories: categories}
}

// MenuSection is one active category with its available products.
type MenuSection struct {
	Category Category  `json:"category"`
	Products []Product `json:"products"`
}

// FullMenu lists every active category with its available products, in
// category id order. Active categories with nothing available still appear,
// with an empty product list.
func (m *MenuService) FullMenu(ctx context.Context) ([]MenuSection, error) {
	cats, err := m.categories.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	avail, err := m.products.Available(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	byCat := make(map[int64][]Product, len(cats))
	for _, p := range avail {
		byCat[p.CategoryID] = append(byCat[p.CategoryID], p)
	}
	out := make([]MenuSection, 0, len(cats))
	for _, c := range cats {
		ps := byCat[c.ID]
		if ps == nil {
			ps = []Product{}
		}
		out = append(out, MenuSection{Category: c, Products: ps})
	}
	return out, nil
}

// ProductDetail is a product joined with its category.
type ProductDetail struct {
	Product  Product   `json:"product"`
	Category *Category `json:"category,omitempty"`
}

// Detail returns a product with its category resolved. A dangling category
// reference leaves Category nil rather than failing the lookup.
func (m *MenuService) Detail(ctx context.Context, productID int64) (ProductDetail, error) {
	p, ok, err := m.products.ByID(ctx, productID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("product %d: %w", productID, err)
	}
	if !ok {
		return ProductDetail{}, ErrProductNotFound
	}
	detail := ProductDetail{Product: p}
	if c, ok, err := m.categories.ByID(ctx, p.CategoryID); err != nil {
		return ProductDetail{}, fmt.Errorf("category %d: %w", p.CategoryID, err)
	} else if ok {
		detail.Category = &c
	}
	return detail, nil
}

// Search finds available products whose name contains the query,
// case-insensitively. An empty query returns the whole available list.
func (m *MenuService) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return m.products.Available(ctx)
	}
	found, err := m.products.SearchByName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	out := found[:0]
	for _, p := range found {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// ByCategory lists the available products of one category. The category must
// exist.
func (m *MenuService) ByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	if _, ok, err := m.categories.ByID(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, err)
	} else if !ok {
		return nil, ErrCategoryNotFound
	}
	all, err := m.products.ByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// ByKind lists available products across every category of the given kind.
func (m *MenuService) ByKind(ctx context.Context, kind CategoryKind) ([]Product, error) {
	cats, err := m.categories.ByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("categories of kind %s: %w", kind, err)
	}
	want := make(map[int64]bool, len(cats))
	for _, c := range cats {
		want[c.ID] = true
	}
	avail, err := m.products.Available(ctx)
	if err != nil {
		return nil, err
	}
	out := avail[:0]
	for _, p := range avail {
		if want[p.CategoryID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// PriceFilter bounds a price query. A nil bound is open.
type PriceFilter struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// FilterByPrice lists available products inside the given price bounds.
func (m *MenuService) FilterByPrice(ctx context.Context, f PriceFilter) ([]Product, error) {
	avail, err := m.products.Available(ctx)
	if err != nil {
		return nil, err
	}
	out := avail[:0]
	for _, p := range avail {
		if f.Min != nil && p.Price.LessThan(*f.Min) {
			continue
		}
		if f.Max != nil && p.Price.GreaterThan(*f.Max) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FilterByCalories lists available products at or under the calorie cap,
// skipping products with no calorie data.
func (m *MenuService) FilterByCalories(ctx context.Context, maxCalories int) ([]Product, error) {
	avail, err := m.products.Available(ctx)
	if err != nil {
		return nil, err
	}
	out := avail[:0]
	for _, p := range avail {
		if p.Calories > 0 && p.Calories <= maxCalories {
			out = append(out, p)
		}
	}
	return out, nil
}

// Stats summarizes the catalog for the operations dashboard.
type Stats struct {
	TotalProducts     int             `json:"total_products"`
	AvailableProducts int             `json:"available_products"`
	TotalCategories   int             `json:"total_categories"`
	ActiveCategories  int             `json:"active_categories"`
	MinPrice          decimal.Decimal `json:"min_price"`
	MaxPrice          decimal.Decimal `json:"max_price"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	ByKind            map[string]int  `json:"by_kind"`
}

// Stats computes catalog-wide counts and price aggregates over available
// products.
func (m *MenuService) Stats(ctx context.Context) (Stats, error) {
	all, err := m.products.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	cats, err := m.categories.All(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalProducts:   len(all),
		TotalCategories: len(cats),
		ByKind:          make(map[string]int),
	}
	kindOf := make(map[int64]CategoryKind, len(cats))
	for _, c := range cats {
		kindOf[c.ID] = c.Kind
		if c.Active {
			stats.ActiveCategories++
		}
	}

	sum := decimal.Zero
	for _, p := range all {
		if !p.Available {
			continue
		}
		if stats.AvailableProducts == 0 {
			stats.MinPrice = p.Price
			stats.MaxPrice = p.Price
		} else {
			if p.Price.LessThan(stats.MinPrice) {
				stats.MinPrice = p.Price
			}
			if p.Price.GreaterThan(stats.MaxPrice) {
				stats.MaxPrice = p.Price
			}
		}
		stats.AvailableProducts++
		sum = sum.Add(p.Price)
		if kind, ok := kindOf[p.CategoryID]; ok {
			stats.ByKind[string(kind)]++
		}
	}
	if stats.AvailableProducts > 0 {
		stats.AveragePrice = sum.DivRound(decimal.NewFromInt(int64(stats.AvailableProducts)), 2)
	}
	return stats, nil
}

// Recommendations returns up to limit available products that share a
// category with the given product, cheapest first. The product itself is
// excluded.
func (m *MenuService) Recommendations(ctx context.Context, productID int64, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 3
	}
	p, ok, err := m.products.ByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", productID, err)
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	neighbors, err := m.products.ByCategory(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, limit)
	for _, n := range neighbors {
		if n.ID == p.ID || !n.Available {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
