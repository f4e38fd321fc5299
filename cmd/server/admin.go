package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/costeo3d/internal/settings"
)

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	shop, err := s.settings.GetShop(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (s *server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var shop settings.Shop
	if !decodeJSON(w, r, &shop) {
		return
	}

	if err := s.settings.UpdateShop(r.Context(), shop); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.settings.GetShop(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "shop settings updated")
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.settings.ListMachines(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

func (s *server) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	// New machines are active unless the body says otherwise.
	m := settings.Machine{Active: true}
	if !decodeJSON(w, r, &m) {
		return
	}

	if err := s.settings.CreateMachine(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "machine created", "machine_id", m.ID, "type", m.Type)
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) handleUpdateMachine(w http.ResponseWriter, r *http.Request) {
	var m settings.Machine
	if !decodeJSON(w, r, &m) {
		return
	}
	m.ID = chi.URLParam(r, "id")

	if err := s.settings.UpdateMachine(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleListConsumables(w http.ResponseWriter, r *http.Request) {
	consumables, err := s.settings.ListConsumables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consumables)
}

func (s *server) handleCreateConsumable(w http.ResponseWriter, r *http.Request) {
	c := settings.Consumable{Active: true}
	if !decodeJSON(w, r, &c) {
		return
	}

	id, err := s.settings.CreateConsumable(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = id
	writeJSON(w, http.StatusCreated, c)
}

func (s *server) handleUpdateConsumable(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var c settings.Consumable
	if !decodeJSON(w, r, &c) {
		return
	}
	c.ID = id

	if err := s.settings.UpdateConsumable(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
