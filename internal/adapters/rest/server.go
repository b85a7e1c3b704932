// Package rest exposes the catalog, menu and order workflow over HTTP/JSON.
package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"cantina/internal/catalog"
	"cantina/internal/orders"
	"cantina/internal/realtime"
	"cantina/internal/reliability"
)

// Options carries the server's collaborators. Products, Categories, Menu and
// Workflow are required; the rest are optional.
type Options struct {
	Products   catalog.ProductRepository
	Categories catalog.CategoryRepository
	Menu       *catalog.MenuService
	Workflow   *orders.Workflow
	Hub        *realtime.Hub
	Breakers   map[string]*reliability.CircuitBreaker
	Logf       func(format string, args ...any)
}

// Server is the HTTP adapter.
type Server struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	menu       *catalog.MenuService
	workflow   *orders.Workflow
	hub        *realtime.Hub
	breakers   map[string]*reliability.CircuitBreaker
	logf       func(format string, args ...any)
	upgrader   websocket.Upgrader
}

// NewServer constructs the HTTP adapter.
func NewServer(opts Options) *Server {
	s := &Server{
		products:   opts.Products,
		categories: opts.Categories,
		menu:       opts.Menu,
		workflow:   opts.Workflow,
		hub:        opts.Hub,
		breakers:   opts.Breakers,
		logf:       opts.Logf,
	}
	if s.logf == nil {
		s.logf = log.Printf
	}
	return s
}

// Routes builds the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/v1/products", s.handleListProducts)
	mux.HandleFunc("POST /api/v1/products", s.handleCreateProduct)
	mux.HandleFunc("GET /api/v1/products/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /api/v1/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/v1/products/{id}", s.handleDeleteProduct)

	mux.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/v1/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/v1/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/v1/menu", s.handleFullMenu)
	mux.HandleFunc("GET /api/v1/menu/search", s.handleMenuSearch)
	mux.HandleFunc("GET /api/v1/menu/filter", s.handleMenuFilter)
	mux.HandleFunc("GET /api/v1/menu/statistics", s.handleMenuStats)
	mux.HandleFunc("GET /api/v1/menu/category/{id}", s.handleMenuByCategory)
	mux.HandleFunc("GET /api/v1/menu/kind/{kind}", s.handleMenuByKind)
	mux.HandleFunc("GET /api/v1/menu/products/{id}", s.handleMenuDetail)
	mux.HandleFunc("GET /api/v1/menu/products/{id}/recommendations", s.handleRecommendations)

	mux.HandleFunc("POST /api/v1/orders", s.handleSubmitOrder)
	mux.HandleFunc("GET /api/v1/orders", s.handleListOrders)
	mux.HandleFunc("GET /api/v1/orders/reservations", s.handleReservations)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("DELETE /api/v1/orders/{id}", s.handleCancelOrder)

	mux.HandleFunc("GET /api/v1/circuit-breakers", s.handleListBreakers)
	mux.HandleFunc("POST /api/v1/circuit-breakers/{name}/reset", s.handleResetBreaker)

	if s.hub != nil {
		mux.HandleFunc("GET /ws/orders", s.handleOrdersWS)
	}

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOrdersWS upgrades the connection and hands it to the hub. The read
// loop only exists to notice the peer going away.
func (s *Server) handleOrdersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade: %v", err)
		return
	}
	s.hub.Register <- conn
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unregister <- conn
				return
			}
		}
	}()
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logf("encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses: validation problems are
// 400, absence is 404, id collisions are 409 and an open circuit is 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *orders.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr), errors.Is(err, catalog.ErrInvalidProduct):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, reliability.ErrCircuitOpen):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logf("internal error: %v", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
