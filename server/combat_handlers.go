package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"dmscreen/core/combat"
)

// GetEnemiesHandler lists enemy cards. `?seed=1` adds a demo enemy to an
// empty tracker, as does the SEED_DEMO config at startup.
func (h *APIHandler) GetEnemiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("seed") == "1" {
		h.combat.SeedDemo(r.Context())
	}
	respondJSON(w, http.StatusOK, h.combat.Enemies())
}

// CreateEnemyHandler validates and adds one card.
func (h *APIHandler) CreateEnemyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		HP    int    `json:"hp"`
		AC    *int   `json:"ac"`
		Speed *int   `json:"speed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.combat.CreateEnemy(r.Context(), req.Name, req.HP, req.AC, req.Speed)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// RemoveEnemyHandler deletes one card.
func (h *APIHandler) RemoveEnemyHandler(w http.ResponseWriter, r *http.Request) {
	h.combat.RemoveEnemy(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// ClearEnemiesHandler deletes every card.
func (h *APIHandler) ClearEnemiesHandler(w http.ResponseWriter, r *http.Request) {
	h.combat.ClearEnemies(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// UpdateHPHandler sets or adjusts an enemy's current HP, clamped to its max.
func (h *APIHandler) UpdateHPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *int `json:"value"`
		Delta *int `json:"delta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil && req.Delta == nil {
		respondError(w, http.StatusBadRequest, "value or delta required")
		return
	}

	id := mux.Vars(r)["id"]
	var current int
	var err error
	if req.Value != nil {
		current, err = h.combat.SetHP(r.Context(), id, *req.Value)
	} else {
		current, err = h.combat.AdjustHP(r.Context(), id, *req.Delta)
	}
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"current": current})
}

// GetInitiativeHandler lists the queue, highest initiative first unless
// `?order=asc`.
func (h *APIHandler) GetInitiativeHandler(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("order") != "asc"
	respondJSON(w, http.StatusOK, h.combat.Participants(desc))
}

// AddParticipantHandler appends one queue entry.
func (h *APIHandler) AddParticipantHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Initiative int    `json:"initiative"`
		Type       string `json:"type"`
		Color      string `json:"color"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	p := h.combat.AddParticipant(r.Context(), req.Name, req.Initiative, req.Type, req.Color)
	respondJSON(w, http.StatusCreated, p)
}

// UpdateParticipantHandler patches one queue entry.
func (h *APIHandler) UpdateParticipantHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       *string `json:"name"`
		Initiative *int    `json:"initiative"`
		Type       *string `json:"type"`
		Color      *string `json:"color"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.combat.UpdateParticipant(r.Context(), mux.Vars(r)["id"], combat.ParticipantUpdate{
		Name:       req.Name,
		Initiative: req.Initiative,
		Type:       req.Type,
		Color:      req.Color,
	})
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveParticipantHandler deletes one queue entry.
func (h *APIHandler) RemoveParticipantHandler(w http.ResponseWriter, r *http.Request) {
	h.combat.RemoveParticipant(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// ClearInitiativeHandler empties the queue.
func (h *APIHandler) ClearInitiativeHandler(w http.ResponseWriter, r *http.Request) {
	h.combat.ClearParticipants(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
