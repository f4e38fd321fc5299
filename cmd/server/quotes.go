package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/costeo3d/internal/metrics"
	"github.com/Simplici0/costeo3d/internal/quotes"
	"github.com/Simplici0/costeo3d/internal/quoting"
)

type quoteCreateRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
	quoting.Request
}

type quotesListResponse struct {
	Query  string            `json:"query"`
	Quotes []quotes.ListItem `json:"quotes"`
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.quotes.List(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesListResponse{Query: query, Quotes: items})
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := s.estimator.Save(r.Context(), metrics.SourceHTTP, req.Title, req.Notes, req.Request)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/quotes/"+strconv.FormatInt(q.ID, 10))
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	q, err := s.quotes.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	q, err := s.quotes.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(quotes.Text(q)))
}
