package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cantina/internal/reliability"
)

// ProductFileStore persists products as a JSON document on disk. Every disk
// touch goes through a circuit breaker so a broken volume fails fast instead
// of hanging each request.
type ProductFileStore struct {
	mu      sync.Mutex
	path    string
	breaker *reliability.CircuitBreaker
}

// NewProductFileStore opens (or creates) the JSON file at path. A nil breaker
// gets a default one named after the file.
func NewProductFileStore(path string, breaker *reliability.CircuitBreaker) (*ProductFileStore, error) {
	if breaker == nil {
		breaker = reliability.NewCircuitBreaker(reliability.BreakerConfig{
			Name: "file:" + filepath.Base(path),
		})
	}
	s := &ProductFileStore{path: path, breaker: breaker}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
	}
	return s, nil
}

// Breaker exposes the breaker guarding disk access.
func (s *ProductFileStore) Breaker() *reliability.CircuitBreaker { return s.breaker }

type productFile struct {
	NextID   int64     `json:"next_id"`
	Products []Product `json:"products"`
}

// load must be called with s.mu held.
func (s *ProductFileStore) load() (productFile, error) {
	var doc productFile
	err := s.breaker.Do(func() error {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return productFile{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return doc, nil
}

// save must be called with s.mu held (except inside the constructor).
func (s *ProductFileStore) save(doc *productFile) error {
	if doc == nil {
		doc = &productFile{NextID: 1, Products: []Product{}}
	}
	if doc.Products == nil {
		doc.Products = []Product{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	err = s.breaker.Do(func() error {
		return os.WriteFile(s.path, raw, 0o644)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *ProductFileStore) filtered(keep func(Product) bool) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(doc.Products))
	for _, p := range doc.Products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ProductFileStore) All(ctx context.Context) ([]Product, error) {
	return s.filtered(func(Product) bool { return true })
}

func (s *ProductFileStore) ByID(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range doc.Products {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

func (s *ProductFileStore) ByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	return s.filtered(func(p Product) bool { return p.CategoryID == categoryID })
}

func (s *ProductFileStore) Available(ctx context.Context) ([]Product, error) {
	return s.filtered(func(p Product) bool { return p.Available })
}

func (s *ProductFileStore) SearchByName(ctx context.Context, query string) ([]Product, error) {
	needle := strings.ToLower(query)
	return s.filtered(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

func (s *ProductFileStore) Add(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Product{}, err
	}
	if p.ID == 0 {
		p.ID = doc.NextID
		doc.NextID++
	} else {
		for _, have := range doc.Products {
			if have.ID == p.ID {
				return Product{}, ErrDuplicateID
			}
		}
		if p.ID >= doc.NextID {
			doc.NextID = p.ID + 1
		}
	}
	doc.Products = append(doc.Products, p)
	if err := s.save(&doc); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *ProductFileStore) Update(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, have := range doc.Products {
		if have.ID == p.ID {
			doc.Products[i] = p
			return s.save(&doc)
		}
	}
	return ErrProductNotFound
}

func (s *ProductFileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, have := range doc.Products {
		if have.ID == id {
			doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
			return s.save(&doc)
		}
	}
	return ErrProductNotFound
}

// CategoryFileStore persists categories as a JSON document on disk, sharing
// the product store's breaker discipline.
type CategoryFileStore struct {
	mu      sync.Mutex
	path    string
	breaker *reliability.CircuitBreaker
}

// NewCategoryFileStore opens (or creates) the JSON file at path.
func NewCategoryFileStore(path string, breaker *reliability.CircuitBreaker) (*CategoryFileStore, error) {
	if breaker == nil {
		breaker = reliability.NewCircuitBreaker(reliability.BreakerConfig{
			Name: "file:" + filepath.Base(path),
		})
	}
	s := &CategoryFileStore{path: path, breaker: breaker}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
	}
	return s, nil
}

// Breaker exposes the breaker guarding disk access.
func (s *CategoryFileStore) Breaker() *reliability.CircuitBreaker { return s.breaker }

type categoryFile struct {
	NextID     int64      `json:"next_id"`
	Categories []Category `json:"categories"`
}

// load must be called with s.mu held.
func (s *CategoryFileStore) load() (categoryFile, error) {
	var doc categoryFile
	err := s.breaker.Do(func() error {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return categoryFile{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return doc, nil
}

// save must be called with s.mu held (except inside the constructor).
func (s *CategoryFileStore) save(doc *categoryFile) error {
	if doc == nil {
		doc = &categoryFile{NextID: 1, Categories: []Category{}}
	}
	if doc.Categories == nil {
		doc.Categories = []Category{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	err = s.breaker.Do(func() error {
		return os.WriteFile(s.path, raw, 0o644)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *CategoryFileStore) filtered(keep func(Category) bool) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CategoryFileStore) All(ctx context.Context) ([]Category, error) {
	return s.filtered(func(Category) bool { return true })
}

func (s *CategoryFileStore) ByID(ctx context.Context, id int64) (Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Category{}, false, err
	}
	for _, c := range doc.Categories {
		if c.ID == id {
			return c, true, nil
		}
	}
	return Category{}, false, nil
}

func (s *CategoryFileStore) ByKind(ctx context.Context, kind CategoryKind) ([]Category, error) {
	return s.filtered(func(c Category) bool { return c.Kind == kind })
}

func (s *CategoryFileStore) Active(ctx context.Context) ([]Category, error) {
	return s.filtered(func(c Category) bool { return c.Active })
}

func (s *CategoryFileStore) Add(ctx context.Context, c Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Category{}, err
	}
	if c.ID == 0 {
		c.ID = doc.NextID
		doc.NextID++
	} else {
		for _, have := range doc.Categories {
			if have.ID == c.ID {
				return Category{}, ErrDuplicateID
			}
		}
		if c.ID >= doc.NextID {
			doc.NextID = c.ID + 1
		}
	}
	doc.Categories = append(doc.Categories, c)
	if err := s.save(&doc); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *CategoryFileStore) Update(ctx context.Context, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, have := range doc.Categories {
		if have.ID == c.ID {
			doc.Categories[i] = c
			return s.save(&doc)
		}
	}
	return ErrCategoryNotFound
}

func (s *CategoryFileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, have := range doc.Categories {
		if have.ID == id {
			doc.Categories = append(doc.Categories[:i], doc.Categories[i+1:]...)
			return s.save(&doc)
		}
	}
	return ErrCategoryNotFound
}
