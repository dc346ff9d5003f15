package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unklstewy/skyconv/internal/db"
)

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		respondError(w, errSitesUnavailable)
		return
	}

	sites, err := s.sites.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if sites == nil {
		sites = []db.Site{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sites": sites,
		"count": len(sites),
	})
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		respondError(w, errSitesUnavailable)
		return
	}

	site, err := s.sites.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		respondError(w, errSitesUnavailable)
		return
	}

	// Sites default to the configured atmosphere
	site := db.Site{
		PressureMbar: s.cfg.Observer.Pressure,
		TemperatureC: s.cfg.Observer.Temperature,
	}
	if err := decodeJSON(w, r, &site); err != nil {
		respondError(w, err)
		return
	}

	if err := s.sites.Create(r.Context(), &site); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		respondError(w, errSitesUnavailable)
		return
	}

	if err := s.sites.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefaultSite(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		respondError(w, errSitesUnavailable)
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.sites.SetDefault(r.Context(), name); err != nil {
		respondError(w, err)
		return
	}

	site, err := s.sites.GetByName(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}
