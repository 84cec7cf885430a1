package http

import (
	"net/http"

	"gptracker/internal/core"
)

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Characters)
}

func (s *Server) handleUpsertCharacter(w http.ResponseWriter, r *http.Request) {
	var c core.Character
	if err := decodeJSON(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid character payload"})
		return
	}
	if err := s.svc.UpsertCharacter(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCharacter(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshStats(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.RefreshCharacterStats(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListMethods(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.MoneyMethods)
}

func (s *Server) handleUpsertMethod(w http.ResponseWriter, r *http.Request) {
	var m core.MoneyMethod
	if err := decodeJSON(r, &m); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid method payload"})
		return
	}
	if err := s.svc.UpsertMethod(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMethod(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

// handleActivateMethod makes the named method the sole active one for the
// character it is assigned to.
func (s *Server) handleActivateMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ActivateMethod(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.PurchaseGoals)
}

func (s *Server) handleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	var g core.PurchaseGoal
	if err := decodeJSON(r, &g); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid goal payload"})
		return
	}
	if err := s.svc.UpsertGoal(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteGoal(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBank(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.BankItems(r.Context(), r.URL.Query().Get("character"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.BankItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpsertBankItem(w http.ResponseWriter, r *http.Request) {
	var b core.BankItem
	if err := decodeJSON(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid bank item payload"})
		return
	}
	if err := s.svc.UpsertBankItem(r.Context(), b); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBankItem(w http.ResponseWriter, r *http.Request) {
	err := s.svc.DeleteBankItem(r.Context(), r.PathValue("character"), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetHours(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HoursPerDay float64 `json:"hoursPerDay"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid settings payload"})
		return
	}
	if err := s.svc.SetHoursPerDay(r.Context(), body.HoursPerDay); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}
