package mixer

import (
	"math"

	"dmscreen/model"
)

// clampVolume bounds v to the 0-100 scale players accept.
func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Effective resolves the volume actually sent to a track's player: the
// track's base volume scaled by the arithmetic mean of its member groups'
// volumes. Averaging (rather than multiplying per group) keeps multi-group
// membership from collapsing volume toward zero while still letting any one
// group attenuate the track. A track whose memberships all point at deleted
// groups behaves as if it had none.
func Effective(track model.Track, groups []model.VolumeGroup) int {
	if len(track.GroupIDs) == 0 {
		return clampVolume(track.Volume)
	}

	byID := make(map[string]int, len(groups))
	for _, g := range groups {
		byID[g.ID] = g.Volume
	}

	sum, n := 0, 0
	for _, id := range track.GroupIDs {
		if v, ok := byID[id]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return clampVolume(track.Volume)
	}

	mean := math.Round(float64(sum) / float64(n))
	return clampVolume(int(math.Round(float64(track.Volume) * mean / 100)))
}
