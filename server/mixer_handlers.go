package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dmscreen/core/mediaid"
	"dmscreen/core/mixer"
)

// GetGroupsHandler lists the volume groups.
func (h *APIHandler) GetGroupsHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.mixer.Groups())
}

// CreateGroupHandler adds one group.
func (h *APIHandler) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := h.mixer.CreateGroup(r.Context(), req.Name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// DeleteGroupHandler removes a group and its memberships.
func (h *APIHandler) DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.mixer.DeleteGroup(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetGroupVolumeHandler updates a group's multiplier; the new effective
// volume hits member players immediately, without a fade.
func (h *APIHandler) SetGroupVolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume int `json:"volume"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.mixer.SetGroupVolume(r.Context(), mux.Vars(r)["id"], req.Volume); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ControlGroupHandler applies a faded play/pause/stop to a whole group.
func (h *APIHandler) ControlGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.mixer.ControlGroup(mux.Vars(r)["id"], mixer.GroupAction(req.Action))
	if err != nil {
		if errors.Is(err, mixer.ErrUnknownGroup) {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTracksHandler lists the track registry.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.mixer.Tracks())
}

// AddTrackHandler resolves the pasted URL to a media id and appends a track.
func (h *APIHandler) AddTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	id, ok := mediaid.Extract(req.URL)
	if !ok {
		respondError(w, http.StatusBadRequest, "could not extract a media id from the URL")
		return
	}
	t, err := h.mixer.AddTrack(r.Context(), id, req.Name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// RemoveTrackHandler deletes the track at the given position.
func (h *APIHandler) RemoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	index, ok := trackIndex(w, r)
	if !ok {
		return
	}
	if err := h.mixer.RemoveTrack(r.Context(), index); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearTracksHandler deletes every track.
func (h *APIHandler) ClearTracksHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.mixer.ClearTracks(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTrackHandler patches volume, loop or group membership.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	index, ok := trackIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Volume *int      `json:"volume"`
		Loop   *bool     `json:"loop"`
		Groups *[]string `json:"groups"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Volume != nil {
		if err := h.mixer.SetTrackVolume(ctx, index, *req.Volume); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	if req.Loop != nil {
		if err := h.mixer.SetTrackLoop(ctx, index, *req.Loop); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	if req.Groups != nil {
		if err := h.mixer.SetTrackGroups(ctx, index, *req.Groups); err != nil {
			status := http.StatusNotFound
			if errors.Is(err, mixer.ErrUnknownGroup) {
				status = http.StatusBadRequest
			}
			respondError(w, status, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ControlTrackHandler applies a faded play/pause/stop to one track.
func (h *APIHandler) ControlTrackHandler(w http.ResponseWriter, r *http.Request) {
	index, ok := trackIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	switch mixer.GroupAction(req.Action) {
	case mixer.ActionPlay:
		err = h.mixer.PlayTrack(index)
	case mixer.ActionPause:
		err = h.mixer.PauseTrack(index)
	case mixer.ActionStop:
		err = h.mixer.StopTrack(index)
	default:
		respondError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveMixerHandler persists both registries, surfacing failures. Routine
// mutations save fire-and-forget; this backs the explicit save button.
func (h *APIHandler) SaveMixerHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.mixer.Save(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func trackIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "track index must be a number")
		return 0, false
	}
	return index, true
}
