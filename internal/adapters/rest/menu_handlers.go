package rest

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"cantina/internal/catalog"
)

func (s *Server) handleFullMenu(w http.ResponseWriter, r *http.Request) {
	sections, err := s.menu.FullMenu(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleMenuSearch(w http.ResponseWriter, r *http.Request) {
	found, err := s.menu.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if found == nil {
		found = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, found)
}

// handleMenuFilter narrows available products by price band and calorie cap.
// All bounds are optional; max_calories wins last because it filters the
// price result further.
func (s *Server) handleMenuFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter catalog.PriceFilter
	if raw := q.Get("min_price"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "min_price must be a decimal"})
			return
		}
		filter.Min = &min
	}
	if raw := q.Get("max_price"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "max_price must be a decimal"})
			return
		}
		filter.Max = &max
	}

	out, err := s.menu.FilterByPrice(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if raw := q.Get("max_calories"); raw != "" {
		maxCal, err := strconv.Atoi(raw)
		if err != nil || maxCal < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "max_calories must be a non-negative integer"})
			return
		}
		kept := out[:0]
		for _, p := range out {
			if p.Calories > 0 && p.Calories <= maxCal {
				kept = append(kept, p)
			}
		}
		out = kept
	}

	if out == nil {
		out = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMenuStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.menu.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMenuByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrCategoryNotFound)
		return
	}
	out, err := s.menu.ByCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMenuByKind(w http.ResponseWriter, r *http.Request) {
	out, err := s.menu.ByKind(r.Context(), catalog.CategoryKind(r.PathValue("kind")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMenuDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	detail, err := s.menu.Detail(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	limit := 3
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	out, err := s.menu.Recommendations(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, out)
}
