package httpapi

import (
	"booklist/internal/core/domain/models"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type memoRequest struct {
	Memo string `json:"memo"`
}

type searchState struct {
	Filters models.SearchQuery       `json:"filters"`
	Pending bool                     `json:"pending"`
	Results []models.BookDescription `json:"results"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) error {
	respondWithJSON(w, http.StatusOK, s.books.Books())
	return nil
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) error {
	var desc models.BookDescription
	if err := decodeJSON(r, &desc); err != nil {
		return err
	}

	book, err := s.books.Add(r.Context(), desc)
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusCreated, book)
	return nil
}

func (s *Server) handleUpdateMemo(w http.ResponseWriter, r *http.Request) error {
	id, err := bookIDParam(r)
	if err != nil {
		return err
	}

	var req memoRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := s.books.UpdateMemo(r.Context(), id, req.Memo); err != nil {
		if errors.Is(err, models.ErrBookNotFound) {
			return errNotFound("book not found", err)
		}
		return err
	}

	book, err := s.books.Get(id)
	if err != nil {
		return errNotFound("book not found", err)
	}
	respondWithJSON(w, http.StatusOK, book)
	return nil
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) error {
	id, err := bookIDParam(r)
	if err != nil {
		return err
	}
	if err := s.books.Delete(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) error {
	respondWithJSON(w, http.StatusOK, searchState{
		Filters: s.search.Filters(),
		Pending: s.search.Pending(),
		Results: s.search.Results(),
	})
	return nil
}

// handlePostSearch applies the posted filters and waits for the search to settle.
func (s *Server) handlePostSearch(w http.ResponseWriter, r *http.Request) error {
	var q models.SearchQuery
	if err := decodeJSON(r, &q); err != nil {
		return err
	}

	s.search.SetFilters(q.Title, q.Author, q.MaxResults)
	outcome, err := s.search.Search(r.Context())
	switch {
	case errors.Is(err, models.ErrEmptyFilter):
		return errBadRequest("title or author is required", err)
	case errors.Is(err, models.ErrSearchPending):
		return errConflict("a search is already in progress", err)
	case err != nil:
		return err
	}

	if outcome.Stale {
		return errConflict("search was superseded", outcome.Err)
	}
	if outcome.Err != nil {
		return errBadGateway("search failed: "+outcome.Err.Error(), outcome.Err)
	}

	respondWithJSON(w, http.StatusOK, searchState{
		Filters: outcome.Query,
		Pending: false,
		Results: outcome.Books,
	})
	return nil
}

func bookIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, paramID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errBadRequest("invalid book id", err)
	}
	return id, nil
}
