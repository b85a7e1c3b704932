// Package orders runs the order-creation workflow as a saga over the
// catalog, the order store and the reservation ledger.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"cantina/internal/catalog"
	"cantina/internal/saga"
)

// ItemRequest is one requested order line, as submitted by a client.
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ValidationError rejects an order before any side effect happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid order: " + e.Reason }

// OrderView is the caller-facing shape of an order.
type OrderView = Order

// Result is the outcome of one order submission. On failure Order is nil and
// Saga carries the per-step diagnostics.
type Result struct {
	Success bool          `json:"success"`
	Order   *OrderView    `json:"order,omitempty"`
	Message string        `json:"message,omitempty"`
	Saga    saga.Snapshot `json:"saga"`
}

// ProductLookup is the slice of the catalog the workflow needs.
type ProductLookup interface {
	ByID(ctx context.Context, id int64) (catalog.Product, bool, error)
}

// SagaMetrics counts saga outcomes. Implementations must be safe for
// concurrent use.
type SagaMetrics interface {
	SagaStarted(name string)
	SagaCompleted(name string)
	SagaCompensated(name string)
}

// WorkflowOptions carries the optional collaborators of a Workflow.
// Confirm, when set, is an external confirmation gate (payment capture,
// receipt printer) consulted by the final step; its error fails the saga and
// rolls the whole order back.
type WorkflowOptions struct {
	Events  EventPublisher
	Metrics SagaMetrics
	Confirm func(ctx context.Context, o Order) error
	Logf    func(format string, args ...any)
}

// Workflow submits orders through a four-step saga: validate the products,
// reserve inventory, persist the order, confirm it. A failure at any step
// rolls back everything the earlier steps did, in reverse order.
type Workflow struct {
	products ProductLookup
	store    *Store
	events   EventPublisher
	metrics  SagaMetrics
	confirm  func(ctx context.Context, o Order) error
	logf     func(format string, args ...any)
}

// NewWorkflow wires a workflow over the product catalog and an order store.
func NewWorkflow(products ProductLookup, store *Store, opts WorkflowOptions) *Workflow {
	w := &Workflow{
		products: products,
		store:    store,
		events:   opts.Events,
		metrics:  opts.Metrics,
		confirm:  opts.Confirm,
		logf:     opts.Logf,
	}
	if w.logf == nil {
		w.logf = log.Printf
	}
	return w
}

// Store exposes the underlying order store for read-side handlers.
func (w *Workflow) Store() *Store { return w.store }

// Saga context keys.
const (
	ctxClient    = "client"
	ctxItems     = "items"
	ctxValidated = "validated"
	ctxOrderID   = "order_id"
)

// sagaName is also the name breaker/metric series use for this workflow.
const sagaName = "create_order"

// SubmitOrder runs the order-creation saga. The returned error is the
// original step failure; Result is populated either way so callers can
// report what happened, including the saga snapshot after a rollback.
func (w *Workflow) SubmitOrder(ctx context.Context, client string, items []ItemRequest) (Result, error) {
	run := saga.New(sagaName, saga.Options{
		Context: saga.Context{ctxClient: client, ctxItems: items},
		Logf:    w.logf,
	})
	run.AddStep("validate_products", w.validateProducts, nil).
		AddStep("reserve_inventory", w.reserveInventory, w.releaseInventory).
		AddStep("create_order", w.createOrder, w.removeOrder).
		AddStep("confirm_order", w.confirmOrder, w.revertConfirmation)

	if w.metrics != nil {
		w.metrics.SagaStarted(sagaName)
	}
	err := run.Execute(ctx)
	if err != nil {
		if w.metrics != nil {
			w.metrics.SagaCompensated(sagaName)
		}
		if id, ok := run.Context()[ctxOrderID].(int64); ok {
			w.publish(EventOrderFailed, Order{ID: id, Client: client, Status: StatusFailed})
		}
		return Result{
			Success: false,
			Message: err.Error(),
			Saga:    run.Snapshot(),
		}, err
	}
	if w.metrics != nil {
		w.metrics.SagaCompleted(sagaName)
	}

	orderID := run.Context()[ctxOrderID].(int64)
	order, ok := w.store.Order(orderID)
	if !ok {
		return Result{}, fmt.Errorf("order %d vanished after confirmation", orderID)
	}
	w.publish(EventOrderCreated, order)
	return Result{
		Success: true,
		Order:   &order,
		Message: fmt.Sprintf("order %d confirmed", order.ID),
		Saga:    run.Snapshot(),
	}, nil
}

// validateProducts checks every requested line against the catalog and
// prices it. No side effects, so it carries no compensation.
func (w *Workflow) validateProducts(ctx context.Context, sc saga.Context) (any, error) {
	client, _ := sc[ctxClient].(string)
	if client == "" {
		return nil, &ValidationError{Reason: "client name required"}
	}
	items, _ := sc[ctxItems].([]ItemRequest)
	if len(items) == 0 {
		return nil, &ValidationError{Reason: "at least one item required"}
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("product %d: quantity must be positive", item.ProductID)}
		}
		p, ok, err := w.products.ByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("look up product %d: %w", item.ProductID, err)
		}
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("product %d does not exist", item.ProductID)}
		}
		if !p.Available {
			return nil, &ValidationError{Reason: fmt.Sprintf("product %q is not available", p.Name)}
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		lines = append(lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			Subtotal:  p.Price.Mul(qty),
		})
	}
	sc[ctxValidated] = lines
	return lines, nil
}

// reserveInventory records the ledger holds for every validated line.
func (w *Workflow) reserveInventory(ctx context.Context, sc saga.Context) (any, error) {
	lines := sc[ctxValidated].([]Line)
	for _, ln := range lines {
		w.store.Reserve(ln.ProductID, ln.Quantity)
	}
	return lines, nil
}

// releaseInventory gives the holds back, line by line.
func (w *Workflow) releaseInventory(ctx context.Context, sc saga.Context, data any) error {
	lines, ok := data.([]Line)
	if !ok {
		return fmt.Errorf("no reserved lines recorded")
	}
	for _, ln := range lines {
		w.store.Release(ln.ProductID, ln.Quantity)
	}
	return nil
}

// createOrder persists the order in pending state.
func (w *Workflow) createOrder(ctx context.Context, sc saga.Context) (any, error) {
	client := sc[ctxClient].(string)
	lines := sc[ctxValidated].([]Line)

	total := decimal.Zero
	for _, ln := range lines {
		total = total.Add(ln.Subtotal)
	}
	order := w.store.Append(Order{
		Client: client,
		Lines:  lines,
		Total:  total,
		Status: StatusPending,
	})
	sc[ctxOrderID] = order.ID
	return order.ID, nil
}

// removeOrder deletes the pending order; its id stays burned.
func (w *Workflow) removeOrder(ctx context.Context, sc saga.Context, data any) error {
	id, ok := data.(int64)
	if !ok {
		return fmt.Errorf("no order id recorded")
	}
	return w.store.Remove(id)
}

// confirmOrder flips the pending order to confirmed, consulting the external
// confirmation gate first when one is configured.
func (w *Workflow) confirmOrder(ctx context.Context, sc saga.Context) (any, error) {
	id := sc[ctxOrderID].(int64)
	if w.confirm != nil {
		order, ok := w.store.Order(id)
		if !ok {
			return nil, fmt.Errorf("confirm order %d: %w", id, ErrOrderNotFound)
		}
		if err := w.confirm(ctx, order); err != nil {
			return nil, fmt.Errorf("confirm order %d: %w", id, err)
		}
	}
	if err := w.store.SetStatus(id, StatusConfirmed); err != nil {
		return nil, fmt.Errorf("confirm order %d: %w", id, err)
	}
	return id, nil
}

// revertConfirmation marks a confirmed order cancelled. With confirmation as
// the final step this only fires when confirmation itself fails mid-flight;
// the create_order compensation then removes the record outright.
func (w *Workflow) revertConfirmation(ctx context.Context, sc saga.Context, data any) error {
	id, ok := data.(int64)
	if !ok {
		return fmt.Errorf("no order id recorded")
	}
	err := w.store.SetStatus(id, StatusCancelled)
	if errors.Is(err, ErrOrderNotFound) {
		return nil
	}
	return err
}

// Cancel cancels a confirmed order and releases its reservations.
func (w *Workflow) Cancel(ctx context.Context, id int64) (Order, error) {
	order, ok := w.store.Order(id)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if order.Status != StatusConfirmed && order.Status != StatusPending {
		return Order{}, &ValidationError{Reason: fmt.Sprintf("order %d is %s, not cancellable", id, order.Status)}
	}
	if err := w.store.SetStatus(id, StatusCancelled); err != nil {
		return Order{}, err
	}
	for _, ln := range order.Lines {
		w.store.Release(ln.ProductID, ln.Quantity)
	}
	order.Status = StatusCancelled
	w.publish(EventOrderCancelled, order)
	return order, nil
}

func (w *Workflow) publish(eventType string, order Order) {
	if w.events == nil {
		return
	}
	ev := Event{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Order:      order,
		OccurredAt: time.Now(),
	}
	if err := w.events.Publish(ev); err != nil {
		w.logf("publish %s for order %d: %v", eventType, order.ID, err)
	}
}
