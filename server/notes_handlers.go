package server

import (
	"errors"
	"net/http"

	"dmscreen/store"
)

// GetNotesHandler returns the saved reference notes.
func (h *APIHandler) GetNotesHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.st.Get(r.Context(), store.KeyNotes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]string{"text": ""})
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load notes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": string(data)})
}

// PutNotesHandler saves the notes text as-is.
func (h *APIHandler) PutNotesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.st.Put(r.Context(), store.KeyNotes, []byte(req.Text)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save notes")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
