package orders

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Line is one priced product line inside an order.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is a stored order.
type Order struct {
	ID        int64           `json:"id"`
	Client    string          `json:"client"`
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (o Order) clone() Order {
	out := o
	out.Lines = append([]Line(nil), o.Lines...)
	return out
}

// ErrOrderNotFound reports an unknown order id.
var ErrOrderNotFound = fmt.Errorf("order not found")

// Store holds orders and the inventory reservation ledger behind one mutex.
// Order ids increase monotonically and are never reused, even after a
// rollback removes the order they were assigned to.
type Store struct {
	mu           sync.Mutex
	orders       map[int64]Order
	nextID       int64
	reservations map[int64]int
	now          func() time.Time
}

// NewStore constructs an empty order store.
func NewStore() *Store {
	return &Store{
		orders:       make(map[int64]Order),
		nextID:       1,
		reservations: make(map[int64]int),
		now:          time.Now,
	}
}

// Reserve records quantity units held for productID.
func (s *Store) Reserve(productID int64, quantity int) {
	if quantity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[productID] += quantity
}

// Release gives back quantity units for productID. Entries that reach zero
// (or below, from an over-release) are removed from the ledger entirely.
func (s *Store) Release(productID int64, quantity int) {
	if quantity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	left := s.reservations[productID] - quantity
	if left <= 0 {
		delete(s.reservations, productID)
		return
	}
	s.reservations[productID] = left
}

// Reservations returns a copy of the live ledger.
func (s *Store) Reservations() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.reservations))
	for id, q := range s.reservations {
		out[id] = q
	}
	return out
}

// Append stores the order under a freshly assigned id and returns it.
func (s *Store) Append(o Order) Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID
	s.nextID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	s.orders[o.ID] = o.clone()
	return o
}

// Remove deletes the order. The id stays burned; the next Append still gets
// a higher id.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

// SetStatus transitions the order to the given status.
func (s *Store) SetStatus(id int64, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

// Order returns the order by id.
func (s *Store) Order(id int64) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// Orders returns every stored order, oldest id first.
func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for id := int64(1); id < s.nextID; id++ {
		if o, ok := s.orders[id]; ok {
			out = append(out, o.clone())
		}
	}
	return out
}
