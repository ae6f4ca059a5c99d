package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/loader"
	"github.com/Simplici0/printdesk/internal/repository"
)

// refresh reloads a collection into the store after a write. Failures only
// leave the cached copy stale, so they are logged.
func refresh[T any](s *server, ctx context.Context, op string, load func(context.Context) (T, error), apply func(T)) {
	if _, err := loader.Run(ctx, op, load, apply); err != nil && !errors.Is(err, loader.ErrStale) {
		s.logger.Warn("failed to refresh cached collection", zap.String("op", op), zap.Error(err))
	}
}

func (s *server) handleClientsList(w http.ResponseWriter, r *http.Request) {
	clients, err := loader.Run(r.Context(), "clients.list", s.repo.Clients.List, s.cache(r.Context()).SetClients)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *server) handleClientsCreate(w http.ResponseWriter, r *http.Request) {
	var in repository.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateClient(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	client, err := s.repo.Clients.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "clients.list", s.repo.Clients.List, s.cache(r.Context()).SetClients)
	writeJSON(w, http.StatusCreated, client)
}

func (s *server) handleClientsUpdate(w http.ResponseWriter, r *http.Request) {
	var in repository.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateClient(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	client, err := s.repo.Clients.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "clients.list", s.repo.Clients.List, s.cache(r.Context()).SetClients)
	writeJSON(w, http.StatusOK, client)
}

func (s *server) handleClientsRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Clients.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "clients.list", s.repo.Clients.List, s.cache(r.Context()).SetClients)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	materials, err := loader.Run(r.Context(), "materials.list", s.repo.Materials.List, s.cache(r.Context()).SetMaterials)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialsCreate(w http.ResponseWriter, r *http.Request) {
	var in repository.MaterialInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateMaterial(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	material, err := s.repo.Materials.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "materials.list", s.repo.Materials.List, s.cache(r.Context()).SetMaterials)
	writeJSON(w, http.StatusCreated, material)
}

func (s *server) handleMaterialsUpdate(w http.ResponseWriter, r *http.Request) {
	var in repository.MaterialInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateMaterial(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	material, err := s.repo.Materials.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "materials.list", s.repo.Materials.List, s.cache(r.Context()).SetMaterials)
	writeJSON(w, http.StatusOK, material)
}

func (s *server) handleMaterialsRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Materials.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "materials.list", s.repo.Materials.List, s.cache(r.Context()).SetMaterials)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleInksList(w http.ResponseWriter, r *http.Request) {
	inks, err := loader.Run(r.Context(), "inks.list", s.repo.Inks.List, s.cache(r.Context()).SetInks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inks)
}

func (s *server) handleInksCreate(w http.ResponseWriter, r *http.Request) {
	var in repository.InkInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateInk(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	ink, err := s.repo.Inks.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "inks.list", s.repo.Inks.List, s.cache(r.Context()).SetInks)
	writeJSON(w, http.StatusCreated, ink)
}

func (s *server) handleInksUpdate(w http.ResponseWriter, r *http.Request) {
	var in repository.InkInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateInk(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	ink, err := s.repo.Inks.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "inks.list", s.repo.Inks.List, s.cache(r.Context()).SetInks)
	writeJSON(w, http.StatusOK, ink)
}

func (s *server) handleInksRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Inks.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "inks.list", s.repo.Inks.List, s.cache(r.Context()).SetInks)
	w.WriteHeader(http.StatusNoContent)
}
