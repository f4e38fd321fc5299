package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/costeo3d/internal/quotes"
	"github.com/Simplici0/costeo3d/internal/quoting"
	"github.com/Simplici0/costeo3d/internal/settings"
)

const maxBodyBytes = 1 << 20

// problem is an RFC 7807 error body.
type problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Field     string `json:"field,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newProblem(r *http.Request, status int, detail string) problem {
	return problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, newProblem(r, status, detail))
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeError maps validation errors to 400, missing rows to 404 and anything else to 500.
// Internal errors are logged and never exposed.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *quoting.InputError
	var validationErr *settings.ValidationError
	switch {
	case errors.As(err, &inputErr):
		p := newProblem(r, http.StatusBadRequest, inputErr.Message)
		p.Field = inputErr.Field
		writeProblemBody(w, p)
	case errors.As(err, &validationErr):
		p := newProblem(r, http.StatusBadRequest, validationErr.Message)
		p.Field = validationErr.Field
		writeProblemBody(w, p)
	case errors.Is(err, settings.ErrNotFound), errors.Is(err, quotes.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "Recurso no encontrado")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "Error interno")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeProblem(w, r, http.StatusBadRequest, fmt.Sprintf("JSON inválido: %v", err))
		return false
	}
	return true
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, r, http.StatusBadRequest, fmt.Sprintf("%s inválido", name))
		return 0, false
	}
	return id, true
}
