package server

import (
	"net/http"

	"dmscreen/model"
)

// ExportHandler serializes the current mixer state verbatim, with the combat
// panel's state included on request.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	doc := model.ExportDocument{
		Tracks: h.mixer.Tracks(),
		Groups: h.mixer.Groups(),
	}
	if r.URL.Query().Get("initiative") == "1" {
		state := h.combat.State()
		doc.Initiative = &state
		doc.Enemies = h.combat.Enemies()
	}
	if doc.Tracks == nil {
		doc.Tracks = []model.Track{}
	}
	if doc.Groups == nil {
		doc.Groups = []model.VolumeGroup{}
	}
	respondJSON(w, http.StatusOK, doc)
}

// ImportHandler replaces state wholesale from an export document. Only the
// registries whose keys are present change; the rest keep their state.
func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var doc model.ExportDocument
	if !decodeBody(w, r, &doc) {
		return
	}

	ctx := r.Context()
	h.mixer.Replace(ctx, doc.Tracks, doc.Groups)
	h.combat.ImportState(ctx, doc.Initiative)
	h.combat.ReplaceEnemies(ctx, doc.Enemies)

	respondJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
