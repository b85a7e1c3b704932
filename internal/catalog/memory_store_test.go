package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testProduct(name string, categoryID int64) Product {
	return Product{
		Name:       name,
		Price:      decimal.RequireFromString("10.00"),
		CategoryID: categoryID,
		Available:  true,
	}
}

func TestProductMemoryStoreAddAssignsIDs(t *testing.T) {
	s := NewProductMemoryStore()
	ctx := context.Background()

	first, err := s.Add(ctx, testProduct("espresso", 1))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	second, err := s.Add(ctx, testProduct("latte", 1))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}

	dup := testProduct("mocha", 1)
	dup.ID = 2
	if _, err := s.Add(ctx, dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestProductMemoryStoreContinuesIDsPastSeed(t *testing.T) {
	seed := testProduct("espresso", 1)
	seed.ID = 7
	s := NewProductMemoryStore(seed)

	added, err := s.Add(context.Background(), testProduct("latte", 1))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if added.ID != 8 {
		t.Fatalf("expected id 8 after seed id 7, got %d", added.ID)
	}
}

func TestProductMemoryStoreRejectsInvalid(t *testing.T) {
	s := NewProductMemoryStore()
	bad := Product{Name: "", Price: decimal.RequireFromString("5.00"), CategoryID: 1}
	if _, err := s.Add(context.Background(), bad); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct for empty name, got %v", err)
	}
	bad = Product{Name: "free", Price: decimal.Zero, CategoryID: 1}
	if _, err := s.Add(context.Background(), bad); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct for zero price, got %v", err)
	}
}

func TestProductMemoryStoreUpdateAndDelete(t *testing.T) {
	s := NewProductMemoryStore()
	ctx := context.Background()
	p, err := s.Add(ctx, testProduct("espresso", 1))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	p.Name = "double espresso"
	if err := s.Update(ctx, p); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	got, ok, err := s.ByID(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("ByID after update: ok=%v err=%v", ok, err)
	}
	if got.Name != "double espresso" {
		t.Fatalf("update not applied, name = %q", got.Name)
	}

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := s.Delete(ctx, p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on second delete, got %v", err)
	}

	missing := testProduct("ghost", 1)
	missing.ID = 99
	if err := s.Update(ctx, missing); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on update of missing id, got %v", err)
	}
}

func TestProductMemoryStoreFilters(t *testing.T) {
	s := NewProductMemoryStore(SeedProducts()...)
	ctx := context.Background()

	coffee, err := s.ByCategory(ctx, 1)
	if err != nil {
		t.Fatalf("ByCategory returned error: %v", err)
	}
	if len(coffee) != 3 {
		t.Fatalf("expected 3 coffee products, got %d", len(coffee))
	}

	avail, err := s.Available(ctx)
	if err != nil {
		t.Fatalf("Available returned error: %v", err)
	}
	for _, p := range avail {
		if !p.Available {
			t.Fatalf("Available returned unavailable product %q", p.Name)
		}
	}

	found, err := s.SearchByName(ctx, "CAPP")
	if err != nil {
		t.Fatalf("SearchByName returned error: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Cappuccino" {
		t.Fatalf("case-insensitive search failed, got %v", found)
	}
}

func TestProductMemoryStoreReturnsCopies(t *testing.T) {
	s := NewProductMemoryStore(SeedProducts()...)
	ctx := context.Background()

	got, ok, err := s.ByID(ctx, 2)
	if err != nil || !ok {
		t.Fatalf("ByID: ok=%v err=%v", ok, err)
	}
	got.Ingredients[0] = "mutated"

	again, _, err := s.ByID(ctx, 2)
	if err != nil {
		t.Fatalf("ByID returned error: %v", err)
	}
	if again.Ingredients[0] == "mutated" {
		t.Fatal("store handed out its internal ingredient slice")
	}
}

func TestCategoryMemoryStore(t *testing.T) {
	s := NewCategoryMemoryStore(SeedCategories()...)
	ctx := context.Background()

	active, err := s.Active(ctx)
	if err != nil {
		t.Fatalf("Active returned error: %v", err)
	}
	if len(active) != 5 {
		t.Fatalf("expected 5 active categories, got %d", len(active))
	}

	hot, err := s.ByKind(ctx, KindHotDrinks)
	if err != nil {
		t.Fatalf("ByKind returned error: %v", err)
	}
	if len(hot) != 2 {
		t.Fatalf("expected 2 hot drink categories, got %d", len(hot))
	}

	added, err := s.Add(ctx, Category{Name: "Specials", Kind: KindBreakfast, Active: true})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if added.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", added.ID)
	}

	if err := s.Delete(ctx, 999); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}
