package http

import (
	"net/http"

	"gptracker/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}

	overview, err := s.cachedOverview(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := s.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := struct {
		Overview core.Overview
		Dataset  core.Dataset
	}{Overview: overview, Dataset: d}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the local store answers queries.
	if _, err := s.svc.Dataset(r.Context()); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cachedOverview(r *http.Request) (core.Overview, error) {
	if o, ok := s.overviewCache.Get(overviewCacheKey); ok {
		return o, nil
	}

	o, err := s.svc.Overview(r.Context())
	if err != nil {
		return core.Overview{}, err
	}
	s.overviewCache.Set(overviewCacheKey, o)
	return o, nil
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.cachedOverview(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
