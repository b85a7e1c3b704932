package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// ProductMemoryStore keeps products in memory. Safe for concurrent use; every
// read returns copies so callers never hold the live slice.
type ProductMemoryStore struct {
	mu       sync.Mutex
	products map[int64]Product
	nextID   int64
}

// NewProductMemoryStore constructs a store preloaded with the given products.
func NewProductMemoryStore(seed ...Product) *ProductMemoryStore {
	s := &ProductMemoryStore{
		products: make(map[int64]Product, len(seed)),
		nextID:   1,
	}
	for _, p := range seed {
		s.products[p.ID] = p.Clone()
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s
}

func (s *ProductMemoryStore) All(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(Product) bool { return true }), nil
}

func (s *ProductMemoryStore) ByID(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *ProductMemoryStore) ByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(p Product) bool { return p.CategoryID == categoryID }), nil
}

func (s *ProductMemoryStore) Available(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(p Product) bool { return p.Available }), nil
}

func (s *ProductMemoryStore) SearchByName(ctx context.Context, query string) ([]Product, error) {
	needle := strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}), nil
}

func (s *ProductMemoryStore) Add(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	} else if _, exists := s.products[p.ID]; exists {
		return Product{}, ErrDuplicateID
	} else if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	s.products[p.ID] = p.Clone()
	return p, nil
}

func (s *ProductMemoryStore) Update(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	s.products[p.ID] = p.Clone()
	return nil
}

func (s *ProductMemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// snapshot must be called with s.mu held.
func (s *ProductMemoryStore) snapshot(keep func(Product) bool) []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CategoryMemoryStore keeps categories in memory.
type CategoryMemoryStore struct {
	mu         sync.Mutex
	categories map[int64]Category
	nextID     int64
}

// NewCategoryMemoryStore constructs a store preloaded with the given categories.
func NewCategoryMemoryStore(seed ...Category) *CategoryMemoryStore {
	s := &CategoryMemoryStore{
		categories: make(map[int64]Category, len(seed)),
		nextID:     1,
	}
	for _, c := range seed {
		s.categories[c.ID] = c
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	return s
}

func (s *CategoryMemoryStore) All(ctx context.Context) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(Category) bool { return true }), nil
}

func (s *CategoryMemoryStore) ByID(ctx context.Context, id int64) (Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	return c, ok, nil
}

func (s *CategoryMemoryStore) ByKind(ctx context.Context, kind CategoryKind) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(c Category) bool { return c.Kind == kind }), nil
}

func (s *CategoryMemoryStore) Active(ctx context.Context) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(c Category) bool { return c.Active }), nil
}

func (s *CategoryMemoryStore) Add(ctx context.Context, c Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID
		s.nextID++
	} else if _, exists := s.categories[c.ID]; exists {
		return Category{}, ErrDuplicateID
	} else if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *CategoryMemoryStore) Update(ctx context.Context, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return ErrCategoryNotFound
	}
	s.categories[c.ID] = c
	return nil
}

func (s *CategoryMemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

// snapshot must be called with s.mu held.
func (s *CategoryMemoryStore) snapshot(keep func(Category) bool) []Category {
	out := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
