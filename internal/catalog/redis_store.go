package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisProductStore keeps products in a Redis hash, one JSON value per id,
// with an INCR counter for id assignment.
type RedisProductStore struct {
	rdb    redis.Cmdable
	hash   string
	nextID string
}

// NewRedisProductStore builds a store using keys derived from prefix
// (typically the service name).
func NewRedisProductStore(rdb redis.Cmdable, prefix string) *RedisProductStore {
	if prefix == "" {
		prefix = "catalog"
	}
	return &RedisProductStore{
		rdb:    rdb,
		hash:   prefix + ":products",
		nextID: prefix + ":products:next_id",
	}
}

func (s *RedisProductStore) all(ctx context.Context) ([]Product, error) {
	vals, err := s.rdb.HVals(ctx, s.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hvals %s: %w", s.hash, err)
	}
	out := make([]Product, 0, len(vals))
	for _, raw := range vals {
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisProductStore) filtered(ctx context.Context, keep func(Product) bool) ([]Product, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *RedisProductStore) All(ctx context.Context) ([]Product, error) {
	return s.all(ctx)
}

func (s *RedisProductStore) ByID(ctx context.Context, id int64) (Product, bool, error) {
	raw, err := s.rdb.HGet(ctx, s.hash, field(id)).Result()
	if err == redis.Nil {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("redis hget %s: %w", s.hash, err)
	}
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Product{}, false, fmt.Errorf("decode product: %w", err)
	}
	return p, true, nil
}

func (s *RedisProductStore) ByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	return s.filtered(ctx, func(p Product) bool { return p.CategoryID == categoryID })
}

func (s *RedisProductStore) Available(ctx context.Context) ([]Product, error) {
	return s.filtered(ctx, func(p Product) bool { return p.Available })
}

func (s *RedisProductStore) SearchByName(ctx context.Context, query string) ([]Product, error) {
	needle := strings.ToLower(query)
	return s.filtered(ctx, func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

func (s *RedisProductStore) Add(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	if p.ID == 0 {
		id, err := s.rdb.Incr(ctx, s.nextID).Result()
		if err != nil {
			return Product{}, fmt.Errorf("redis incr %s: %w", s.nextID, err)
		}
		p.ID = id
	} else {
		exists, err := s.rdb.HExists(ctx, s.hash, field(p.ID)).Result()
		if err != nil {
			return Product{}, fmt.Errorf("redis hexists %s: %w", s.hash, err)
		}
		if exists {
			return Product{}, ErrDuplicateID
		}
	}
	if err := s.write(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *RedisProductStore) Update(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	exists, err := s.rdb.HExists(ctx, s.hash, field(p.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis hexists %s: %w", s.hash, err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return s.write(ctx, p)
}

func (s *RedisProductStore) Delete(ctx context.Context, id int64) error {
	n, err := s.rdb.HDel(ctx, s.hash, field(id)).Result()
	if err != nil {
		return fmt.Errorf("redis hdel %s: %w", s.hash, err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *RedisProductStore) write(ctx context.Context, p Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.hash, field(p.ID), raw).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", s.hash, err)
	}
	return nil
}

// RedisCategoryStore keeps categories in a Redis hash.
type RedisCategoryStore struct {
	rdb    redis.Cmdable
	hash   string
	nextID string
}

// NewRedisCategoryStore builds a store using keys derived from prefix.
func NewRedisCategoryStore(rdb redis.Cmdable, prefix string) *RedisCategoryStore {
	if prefix == "" {
		prefix = "catalog"
	}
	return &RedisCategoryStore{
		rdb:    rdb,
		hash:   prefix + ":categories",
		nextID: prefix + ":categories:next_id",
	}
}

func (s *RedisCategoryStore) all(ctx context.Context) ([]Category, error) {
	vals, err := s.rdb.HVals(ctx, s.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hvals %s: %w", s.hash, err)
	}
	out := make([]Category, 0, len(vals))
	for _, raw := range vals {
		var c Category
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisCategoryStore) filtered(ctx context.Context, keep func(Category) bool) ([]Category, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *RedisCategoryStore) All(ctx context.Context) ([]Category, error) {
	return s.all(ctx)
}

func (s *RedisCategoryStore) ByID(ctx context.Context, id int64) (Category, bool, error) {
	raw, err := s.rdb.HGet(ctx, s.hash, field(id)).Result()
	if err == redis.Nil {
		return Category{}, false, nil
	}
	if err != nil {
		return Category{}, false, fmt.Errorf("redis hget %s: %w", s.hash, err)
	}
	var c Category
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Category{}, false, fmt.Errorf("decode category: %w", err)
	}
	return c, true, nil
}

func (s *RedisCategoryStore) ByKind(ctx context.Context, kind CategoryKind) ([]Category, error) {
	return s.filtered(ctx, func(c Category) bool { return c.Kind == kind })
}

func (s *RedisCategoryStore) Active(ctx context.Context) ([]Category, error) {
	return s.filtered(ctx, func(c Category) bool { return c.Active })
}

func (s *RedisCategoryStore) Add(ctx context.Context, c Category) (Category, error) {
	if c.ID == 0 {
		id, err := s.rdb.Incr(ctx, s.nextID).Result()
		if err != nil {
			return Category{}, fmt.Errorf("redis incr %s: %w", s.nextID, err)
		}
		c.ID = id
	} else {
		exists, err := s.rdb.HExists(ctx, s.hash, field(c.ID)).Result()
		if err != nil {
			return Category{}, fmt.Errorf("redis hexists %s: %w", s.hash, err)
		}
		if exists {
			return Category{}, ErrDuplicateID
		}
	}
	if err := s.write(ctx, c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *RedisCategoryStore) Update(ctx context.Context, c Category) error {
	exists, err := s.rdb.HExists(ctx, s.hash, field(c.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis hexists %s: %w", s.hash, err)
	}
	if !exists {
		return ErrCategoryNotFound
	}
	return s.write(ctx, c)
}

func (s *RedisCategoryStore) Delete(ctx context.Context, id int64) error {
	n, err := s.rdb.HDel(ctx, s.hash, field(id)).Result()
	if err != nil {
		return fmt.Errorf("redis hdel %s: %w", s.hash, err)
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *RedisCategoryStore) write(ctx context.Context, c Category) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode category: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.hash, field(c.ID), raw).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", s.hash, err)
	}
	return nil
}

func field(id int64) string { return fmt.Sprintf("%d", id) }
