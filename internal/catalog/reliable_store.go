package catalog

import (
	"context"

	"cantina/internal/reliability"
)

// ReliableProductStore wraps a ProductRepository with reliability controls:
// rate limiting, a circuit breaker, and retries, applied in that order per
// attempt. Any of the three may be nil.
type ReliableProductStore struct {
	base    ProductRepository
	limiter *reliability.RateLimiter
	breaker *reliability.CircuitBreaker
	retry   reliability.RetryPolicy
}

// NewReliableProductStore constructs a reliability-wrapped product store.
func NewReliableProductStore(base ProductRepository, limiter *reliability.RateLimiter, breaker *reliability.CircuitBreaker, retry reliability.RetryPolicy) *ReliableProductStore {
	return &ReliableProductStore{
		base:    base,
		limiter: limiter,
		breaker: breaker,
		retry:   retry,
	}
}

// Breaker exposes the wrapped breaker, or nil when none is configured.
func (s *ReliableProductStore) Breaker() *reliability.CircuitBreaker { return s.breaker }

func (s *ReliableProductStore) All(ctx context.Context) ([]Product, error) {
	var out []Product
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.All(ctx)
		return err
	})
	return out, err
}

func (s *ReliableProductStore) ByID(ctx context.Context, id int64) (Product, bool, error) {
	var (
		p  Product
		ok bool
	)
	err := s.do(ctx, func() error {
		var err error
		p, ok, err = s.base.ByID(ctx, id)
		return err
	})
	return p, ok, err
}

func (s *ReliableProductStore) ByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	var out []Product
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.ByCategory(ctx, categoryID)
		return err
	})
	return out, err
}

func (s *ReliableProductStore) Available(ctx context.Context) ([]Product, error) {
	var out []Product
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.Available(ctx)
		return err
	})
	return out, err
}

func (s *ReliableProductStore) SearchByName(ctx context.Context, query string) ([]Product, error) {
	var out []Product
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.SearchByName(ctx, query)
		return err
	})
	return out, err
}

func (s *ReliableProductStore) Add(ctx context.Context, p Product) (Product, error) {
	var added Product
	err := s.do(ctx, func() error {
		var err error
		added, err = s.base.Add(ctx, p)
		return err
	})
	return added, err
}

func (s *ReliableProductStore) Update(ctx context.Context, p Product) error {
	return s.do(ctx, func() error {
		return s.base.Update(ctx, p)
	})
}

func (s *ReliableProductStore) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, func() error {
		return s.base.Delete(ctx, id)
	})
}

func (s *ReliableProductStore) do(ctx context.Context, fn func() error) error {
	attempt := func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if s.breaker != nil {
			return s.breaker.Do(fn)
		}
		return fn()
	}
	return s.retry.Do(ctx, attempt)
}

// ReliableCategoryStore wraps a CategoryRepository with reliability controls.
type ReliableCategoryStore struct {
	base    CategoryRepository
	limiter *reliability.RateLimiter
	breaker *reliability.CircuitBreaker
	retry   reliability.RetryPolicy
}

// NewReliableCategoryStore constructs a reliability-wrapped category store.
func NewReliableCategoryStore(base CategoryRepository, limiter *reliability.RateLimiter, breaker *reliability.CircuitBreaker, retry reliability.RetryPolicy) *ReliableCategoryStore {
	return &ReliableCategoryStore{
		base:    base,
		limiter: limiter,
		breaker: breaker,
		retry:   retry,
	}
}

// Breaker exposes the wrapped breaker, or nil when none is configured.
func (s *ReliableCategoryStore) Breaker() *reliability.CircuitBreaker { return s.breaker }

func (s *ReliableCategoryStore) All(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.All(ctx)
		return err
	})
	return out, err
}

func (s *ReliableCategoryStore) ByID(ctx context.Context, id int64) (Category, bool, error) {
	var (
		c  Category
		ok bool
	)
	err := s.do(ctx, func() error {
		var err error
		c, ok, err = s.base.ByID(ctx, id)
		return err
	})
	return c, ok, err
}

func (s *ReliableCategoryStore) ByKind(ctx context.Context, kind CategoryKind) ([]Category, error) {
	var out []Category
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.ByKind(ctx, kind)
		return err
	})
	return out, err
}

func (s *ReliableCategoryStore) Active(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.do(ctx, func() error {
		var err error
		out, err = s.base.Active(ctx)
		return err
	})
	return out, err
}

func (s *ReliableCategoryStore) Add(ctx context.Context, c Category) (Category, error) {
	var added Category
	err := s.do(ctx, func() error {
		var err error
		added, err = s.base.Add(ctx, c)
		return err
	})
	return added, err
}

func (s *ReliableCategoryStore) Update(ctx context.Context, c Category) error {
	return s.do(ctx, func() error {
		return s.base.Update(ctx, c)
	})
}

func (s *ReliableCategoryStore) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, func() error {
		return s.base.Delete(ctx, id)
	})
}

func (s *ReliableCategoryStore) do(ctx context.Context, fn func() error) error {
	attempt := func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if s.breaker != nil {
			return s.breaker.Do(fn)
		}
		return fn()
	}
	return s.retry.Do(ctx, attempt)
}
