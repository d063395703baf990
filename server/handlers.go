package server

import (
	"encoding/json"
	"net/http"

	"dmscreen/core/combat"
	"dmscreen/core/gallery"
	"dmscreen/core/mixer"
	"dmscreen/core/viewer"
	"dmscreen/logger"
	"dmscreen/storage"
	"dmscreen/store"
)

// APIHandler carries the registries every endpoint works against.
type APIHandler struct {
	st      store.Store
	gallery *gallery.Gallery
	mixer   *mixer.Mixer
	combat  *combat.Tracker
	hub     *viewer.Hub
	blobs   *storage.BlobStore // nil when payloads stay inline
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	st store.Store,
	g *gallery.Gallery,
	m *mixer.Mixer,
	c *combat.Tracker,
	hub *viewer.Hub,
	blobs *storage.BlobStore,
) *APIHandler {
	return &APIHandler{
		st:      st,
		gallery: g,
		mixer:   m,
		combat:  c,
		hub:     hub,
		blobs:   blobs,
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
