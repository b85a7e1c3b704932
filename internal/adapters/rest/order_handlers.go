package rest

import (
	"errors"
	"net/http"

	"cantina/internal/orders"
)

type submitOrderRequest struct {
	Client string               `json:"client"`
	Items  []orders.ItemRequest `json:"items"`
}

// handleSubmitOrder runs the order saga. A rolled-back order answers 422
// with the saga snapshot so clients can see which steps ran and were undone;
// plain validation problems answer 400.
func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.workflow.SubmitOrder(r.Context(), req.Client, req.Items)
	if err != nil {
		var verr *orders.ValidationError
		if errors.As(err, &verr) {
			s.writeJSON(w, http.StatusBadRequest, res)
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	out := s.workflow.Store().Orders()
	if out == nil {
		out = []orders.Order{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, orders.ErrOrderNotFound)
		return
	}
	o, found := s.workflow.Store().Order(id)
	if !found {
		s.writeError(w, orders.ErrOrderNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, orders.ErrOrderNotFound)
		return
	}
	o, err := s.workflow.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.workflow.Store().Reservations())
}
