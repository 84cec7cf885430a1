package http

import (
	"net/http"
	"strconv"
	"strings"

	"gptracker/internal/core"
	"gptracker/internal/remote"
)

func (s *Server) handleSyncSave(w http.ResponseWriter, r *http.Request) {
	scope := remote.SaveScope{
		BankOnly: parseBoolParam(r, "bankOnly"),
		Force:    parseBoolParam(r, "force"),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("characters")); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				scope.Characters = append(scope.Characters, name)
			}
		}
	}

	status, err := s.svc.RequestSave(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	code := http.StatusOK
	if status.Queued {
		code = http.StatusAccepted
	}
	writeJSON(w, code, status)
}

func (s *Server) handleSyncLoad(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.LoadRemote(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="gptracker-backup.json"`)
	if err := s.svc.Export(r.Context(), w); err != nil {
		// Headers may already be out; nothing to do but log.
		writeError(w, r, err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Import(r.Context(), http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleImportBank(w http.ResponseWriter, r *http.Request) {
	character := strings.TrimSpace(r.URL.Query().Get("character"))
	count, err := s.svc.ImportBank(r.Context(), character, http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]any{
		"character": character,
		"imported":  count,
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.svc.Snapshots(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []core.SnapshotMeta{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	meta, err := s.svc.CreateSnapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snapshot id"})
		return
	}

	d, err := s.svc.RestoreSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, d)
}
