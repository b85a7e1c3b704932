package rest

import (
	"net/http"
	"sort"

	"cantina/internal/reliability"
)

func (s *Server) handleListBreakers(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.breakers))
	for name := range s.breakers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]reliability.BreakerStats, 0, len(names))
	for _, name := range names {
		out = append(out, s.breakers[name].Stats())
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	breaker, ok := s.breakers[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown circuit breaker " + name})
		return
	}
	breaker.Reset()
	s.writeJSON(w, http.StatusOK, breaker.Stats())
}
