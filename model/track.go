package model

// Track is one persisted ambient-audio source entry. It is the authoritative
// record for a track's configuration; the runtime player handle is rebuilt
// from it on every load.
type Track struct {
	MediaID  string   `json:"mediaId"`
	Name     string   `json:"name"`
	Volume   int      `json:"volume"` // base volume, 0-100
	Loop     bool     `json:"loop"`
	GroupIDs []string `json:"groups"`
}

// VolumeGroup is a named bucket of tracks sharing one volume multiplier.
type VolumeGroup struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Volume int    `json:"volume"` // 0-100
}
