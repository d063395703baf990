package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dmscreen/core/gallery"
	"dmscreen/logger"
	"dmscreen/model"
)

// treeNodeJSON is the folder tree without item payloads, for the sidebar.
type treeNodeJSON struct {
	Name    string         `json:"name"`
	Folders []treeNodeJSON `json:"folders"`
	Items   int            `json:"items"`
}

func toTreeJSON(n *gallery.Node) treeNodeJSON {
	out := treeNodeJSON{Name: n.Name, Folders: []treeNodeJSON{}, Items: len(n.Items)}
	for _, name := range n.FolderNames() {
		out.Folders = append(out.Folders, toTreeJSON(n.Folders[name]))
	}
	return out
}

// ImportMediaHandler replaces the library with the posted batch. With a blob
// store configured, payloads move to the bucket and items keep a reference
// URL instead of the inline data URI.
func (h *APIHandler) ImportMediaHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []model.MediaItem `json:"items"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if h.blobs != nil {
		for i := range req.Items {
			if !strings.HasPrefix(req.Items[i].DataURI, "data:") {
				continue
			}
			key := "media/" + uuid.NewString()
			contentType := dataURIContentType(req.Items[i].DataURI)
			if err := h.blobs.Put(r.Context(), key, []byte(req.Items[i].DataURI), contentType); err != nil {
				logger.Error("media offload failed", logger.String("name", req.Items[i].Name), logger.ErrorField(err))
				continue // keep the payload inline rather than lose the item
			}
			req.Items[i].DataURI = "/api/media/blob/" + key
		}
	}

	if err := h.gallery.Import(r.Context(), req.Items); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to persist media")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": len(req.Items)})
}

// MediaBlobHandler streams one offloaded payload back.
func (h *APIHandler) MediaBlobHandler(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		respondError(w, http.StatusNotFound, "no blob store configured")
		return
	}
	key := mux.Vars(r)["key"]
	data, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusNotFound, "object not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write(data)
}

// ListMediaHandler returns the visible page of the active folder.
func (h *APIHandler) ListMediaHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	start := -1
	if s := r.URL.Query().Get("start"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start must be a number")
			return
		}
		start = v
	}

	view := h.gallery.Visible(query, start)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"shown":     view.Shown,
		"remaining": view.Remaining,
		"path":      h.gallery.Path(),
		"folders":   h.gallery.Folders(),
	})
}

// MediaTreeHandler returns the folder hierarchy.
func (h *APIHandler) MediaTreeHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toTreeJSON(h.gallery.Tree()))
}

// SelectPathHandler changes the active folder.
func (h *APIHandler) SelectPathHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path []string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.gallery.SelectPath(req.Path)
	respondJSON(w, http.StatusOK, map[string]interface{}{"path": h.gallery.Path()})
}

// AdvancePageHandler moves the pagination cursor (the "load more" action).
func (h *APIHandler) AdvancePageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start int `json:"start"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.gallery.Advance(req.Start)
	w.WriteHeader(http.StatusNoContent)
}

// ShowMediaHandler pushes one item to the audience displays.
func (h *APIHandler) ShowMediaHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Index int    `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	item, ok := h.gallery.Show(req.Query, req.Index)
	if !ok {
		respondError(w, http.StatusBadRequest, "index out of range")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// ClearMediaHandler empties the gallery and blanks the displays.
func (h *APIHandler) ClearMediaHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Clear(r.Context()); err != nil {
		logger.Warn("media clear persisted partially", logger.ErrorField(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// dataURIContentType pulls the media type out of "data:<type>;base64,...".
func dataURIContentType(uri string) string {
	rest := strings.TrimPrefix(uri, "data:")
	if i := strings.IndexAny(rest, ";,"); i >= 0 {
		if t := rest[:i]; t != "" {
			return t
		}
	}
	return "application/octet-stream"
}
