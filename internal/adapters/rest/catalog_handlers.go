package rest

import (
	"net/http"
	"strconv"

	"cantina/internal/catalog"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		out []catalog.Product
		err error
	)
	switch {
	case r.URL.Query().Get("category_id") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "category_id must be an integer"})
			return
		}
		out, err = s.products.ByCategory(r.Context(), categoryID)
	case r.URL.Query().Get("available") == "true":
		out, err = s.products.Available(r.Context())
	default:
		out, err = s.products.All(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []catalog.Product{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if !s.decode(w, r, &p) {
		return
	}
	added, err := s.products.Add(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	p, found, err := s.products.ByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	var p catalog.Product
	if !s.decode(w, r, &p) {
		return
	}
	p.ID = id
	if err := s.products.Update(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrProductNotFound)
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		out []catalog.Category
		err error
	)
	switch {
	case r.URL.Query().Get("kind") != "":
		out, err = s.categories.ByKind(r.Context(), catalog.CategoryKind(r.URL.Query().Get("kind")))
	case r.URL.Query().Get("active") == "true":
		out, err = s.categories.Active(r.Context())
	default:
		out, err = s.categories.All(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []catalog.Category{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if !s.decode(w, r, &c) {
		return
	}
	if c.Name == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "category name required"})
		return
	}
	added, err := s.categories.Add(r.Context(), c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrCategoryNotFound)
		return
	}
	c, found, err := s.categories.ByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		s.writeError(w, catalog.ErrCategoryNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrCategoryNotFound)
		return
	}
	var c catalog.Category
	if !s.decode(w, r, &c) {
		return
	}
	c.ID = id
	if err := s.categories.Update(r.Context(), c); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, catalog.ErrCategoryNotFound)
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
