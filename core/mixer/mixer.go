// Package mixer owns the ambient-audio registries: volume groups, persisted
// tracks and their runtime player handles, the effective-volume resolver and
// the fade scheduler that smooths every transport action.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dmscreen/logger"
	"dmscreen/model"
	"dmscreen/store"
)

// Validation errors surfaced to the invoking UI action.
var (
	ErrEmptyName       = errors.New("name must not be empty")
	ErrBadMediaID      = errors.New("could not extract a media id from the URL")
	ErrUnknownGroup    = errors.New("unknown group id")
	ErrTrackOutOfRange = errors.New("track index out of range")
)

// DefaultTrackVolume is the base volume assigned to newly added tracks.
const DefaultTrackVolume = 80

// Mixer coordinates groups, tracks and players. All registry access goes
// through it; there is no ambient global state.
type Mixer struct {
	mu      sync.Mutex
	st      store.Store
	fader   *Fader
	factory PlayerFactory
	fadeDur time.Duration

	groups  []model.VolumeGroup
	tracks  []model.Track
	players []Player
	ready   bool
}

// New creates a mixer persisting into st. Player handles are built through
// factory once the platform signals readiness.
func New(st store.Store, factory PlayerFactory, fadeDur time.Duration) *Mixer {
	return &Mixer{
		st:      st,
		fader:   NewFader(),
		factory: factory,
		fadeDur: fadeDur,
	}
}

// Fader exposes the fade scheduler, mainly for transport handlers and tests.
func (m *Mixer) Fader() *Fader { return m.fader }

// Load restores groups and tracks from the store. Groups load before tracks;
// players are not built until the platform is ready.
func (m *Mixer) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var groups []model.VolumeGroup
	if _, err := store.LoadJSON(ctx, m.st, store.KeyGroups, &groups); err != nil {
		return err
	}
	var tracks []model.Track
	if _, err := store.LoadJSON(ctx, m.st, store.KeyTracks, &tracks); err != nil {
		return err
	}
	m.groups = groups
	m.tracks = tracks
	m.rebuildPlayersLocked()
	return nil
}

// PlatformReady marks the external player platform usable and (re)builds all
// player handles from the track list.
func (m *Mixer) PlatformReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
	m.rebuildPlayersLocked()
	logger.Info("player platform ready", logger.Int("tracks", len(m.tracks)))
}

// rebuildPlayersLocked rebuilds the whole handle list from the track list.
// An O(n) rebuild on every mutation is fine at ambient-mixer scale.
func (m *Mixer) rebuildPlayersLocked() {
	m.players = make([]Player, len(m.tracks))
	if !m.ready || m.factory == nil {
		return
	}
	for i, t := range m.tracks {
		p, err := m.factory(i, t.MediaID)
		if err != nil {
			logger.Warn("player construction failed",
				logger.Int("index", i),
				logger.String("mediaId", t.MediaID),
				logger.ErrorField(err))
			continue
		}
		m.players[i] = p
	}
}

// Groups returns a copy of the group registry.
func (m *Mixer) Groups() []model.VolumeGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.VolumeGroup(nil), m.groups...)
}

// Tracks returns a copy of the track registry.
func (m *Mixer) Tracks() []model.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyTracks(m.tracks)
}

func copyTracks(in []model.Track) []model.Track {
	out := make([]model.Track, len(in))
	for i, t := range in {
		// Keep empty slices empty rather than nil so copies serialize the
		// same way as the originals.
		if t.GroupIDs != nil {
			t.GroupIDs = append(make([]string, 0, len(t.GroupIDs)), t.GroupIDs...)
		}
		out[i] = t
	}
	return out
}

// CreateGroup adds a named group at full volume. Empty or whitespace-only
// names are rejected without creating a record.
func (m *Mixer) CreateGroup(ctx context.Context, name string) (model.VolumeGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.VolumeGroup{}, ErrEmptyName
	}

	g := model.VolumeGroup{
		ID:     uuid.NewString(),
		Name:   name,
		Volume: 100,
	}

	m.mu.Lock()
	m.groups = append(m.groups, g)
	m.saveGroupsLocked(ctx)
	m.mu.Unlock()

	logger.Info("group created", logger.String("id", g.ID), logger.String("name", g.Name))
	return g, nil
}

// DeleteGroup removes the group and strips its id from every track's
// membership set under one lock, so no observer ever sees a track referencing
// a deleted group.
func (m *Mixer) DeleteGroup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.groupIndexLocked(id)
	if idx < 0 {
		return ErrUnknownGroup
	}
	m.groups = append(m.groups[:idx], m.groups[idx+1:]...)
	for i := range m.tracks {
		m.tracks[i].GroupIDs = removeString(m.tracks[i].GroupIDs, id)
	}
	m.saveGroupsLocked(ctx)
	m.saveTracksLocked(ctx)
	return nil
}

// SetGroupVolume updates the group's multiplier and immediately re-applies
// the resolved volume to every live member player. This is a direct set, not
// a fade; the fade-based transport lives in ControlGroup.
func (m *Mixer) SetGroupVolume(ctx context.Context, id string, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.groupIndexLocked(id)
	if idx < 0 {
		return ErrUnknownGroup
	}
	m.groups[idx].Volume = clampVolume(volume)
	m.saveGroupsLocked(ctx)

	for i, t := range m.tracks {
		if !containsString(t.GroupIDs, id) {
			continue
		}
		if p := m.playerAtLocked(i); p != nil {
			if err := p.SetVolume(Effective(t, m.groups)); err != nil {
				logger.Debug("volume set dropped", logger.Int("track", i), logger.ErrorField(err))
			}
		}
	}
	return nil
}

// AddTrack appends a track for the given media id with defaults (volume 80,
// no loop, no groups), persists and rebuilds the player list.
func (m *Mixer) AddTrack(ctx context.Context, mediaID, name string) (model.Track, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return model.Track{}, ErrBadMediaID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Track %d", len(m.tracks)+1)
	}
	t := model.Track{
		MediaID:  mediaID,
		Name:     strings.TrimSpace(name),
		Volume:   DefaultTrackVolume,
		GroupIDs: []string{},
	}
	m.tracks = append(m.tracks, t)
	m.saveTracksLocked(ctx)
	m.rebuildPlayersLocked()
	logger.Info("track added", logger.String("mediaId", t.MediaID), logger.String("name", t.Name))
	return t, nil
}

// RemoveTrack destroys the track's handle (errors swallowed), splices the
// record out, persists and rebuilds the remaining handles.
func (m *Mixer) RemoveTrack(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return ErrTrackOutOfRange
	}
	if p := m.playerAtLocked(index); p != nil {
		if err := p.Destroy(); err != nil {
			logger.Debug("player destroy failed", logger.Int("track", index), logger.ErrorField(err))
		}
		m.fader.Forget(p)
	}
	m.tracks = append(m.tracks[:index], m.tracks[index+1:]...)
	m.saveTracksLocked(ctx)
	m.rebuildPlayersLocked()
	return nil
}

// ClearTracks destroys every handle and empties the track registry.
func (m *Mixer) ClearTracks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		if p == nil {
			continue
		}
		if err := p.Destroy(); err != nil {
			logger.Debug("player destroy failed", logger.ErrorField(err))
		}
		m.fader.Forget(p)
	}
	m.tracks = nil
	m.saveTracksLocked(ctx)
	m.rebuildPlayersLocked()
	return nil
}

// SetTrackVolume updates a track's base volume and pushes the resolved value
// straight to its live handle (no fade).
func (m *Mixer) SetTrackVolume(ctx context.Context, index, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return ErrTrackOutOfRange
	}
	m.tracks[index].Volume = clampVolume(volume)
	m.saveTracksLocked(ctx)
	if p := m.playerAtLocked(index); p != nil {
		if err := p.SetVolume(Effective(m.tracks[index], m.groups)); err != nil {
			logger.Debug("volume set dropped", logger.Int("track", index), logger.ErrorField(err))
		}
	}
	return nil
}

// SetTrackLoop flips a track's loop flag.
func (m *Mixer) SetTrackLoop(ctx context.Context, index int, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return ErrTrackOutOfRange
	}
	m.tracks[index].Loop = loop
	m.saveTracksLocked(ctx)
	return nil
}

// SetTrackGroups replaces a track's group memberships. Every id must name an
// existing group.
func (m *Mixer) SetTrackGroups(ctx context.Context, index int, groupIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return ErrTrackOutOfRange
	}
	for _, id := range groupIDs {
		if m.groupIndexLocked(id) < 0 {
			return ErrUnknownGroup
		}
	}
	m.tracks[index].GroupIDs = append([]string(nil), groupIDs...)
	m.saveTracksLocked(ctx)
	return nil
}

// PlayTrack starts one track: volume to zero, play, fade up to the resolved
// volume.
func (m *Mixer) PlayTrack(index int) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.tracks) {
		m.mu.Unlock()
		return ErrTrackOutOfRange
	}
	p := m.playerAtLocked(index)
	target := Effective(m.tracks[index], m.groups)
	m.mu.Unlock()

	if p == nil {
		return nil
	}
	m.fadeIn(p, target)
	return nil
}

// PauseTrack fades one track down and pauses it.
func (m *Mixer) PauseTrack(index int) error {
	return m.fadeOutThen(index, func(p Player) error { return p.Pause() })
}

// StopTrack fades one track down and stops it.
func (m *Mixer) StopTrack(index int) error {
	return m.fadeOutThen(index, func(p Player) error { return p.Stop() })
}

func (m *Mixer) fadeOutThen(index int, action func(Player) error) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.tracks) {
		m.mu.Unlock()
		return ErrTrackOutOfRange
	}
	p := m.playerAtLocked(index)
	m.mu.Unlock()

	if p == nil {
		return nil
	}
	m.fadeOut(p, action)
	return nil
}

// ControlGroup applies a transport action, wrapped in a fade, to every member
// track that currently has a live handle; tracks without one are skipped, not
// queued. The fade target for play is resolved once at invocation: a group
// volume change mid-fade does not retarget.
func (m *Mixer) ControlGroup(id string, action GroupAction) error {
	m.mu.Lock()
	if m.groupIndexLocked(id) < 0 {
		m.mu.Unlock()
		return ErrUnknownGroup
	}
	type member struct {
		player Player
		target int
	}
	var members []member
	for i, t := range m.tracks {
		if !containsString(t.GroupIDs, id) {
			continue
		}
		p := m.playerAtLocked(i)
		if p == nil {
			continue
		}
		members = append(members, member{player: p, target: Effective(t, m.groups)})
	}
	m.mu.Unlock()

	for _, mb := range members {
		switch action {
		case ActionPlay:
			m.fadeIn(mb.player, mb.target)
		case ActionPause:
			m.fadeOut(mb.player, func(p Player) error { return p.Pause() })
		case ActionStop:
			m.fadeOut(mb.player, func(p Player) error { return p.Stop() })
		default:
			return fmt.Errorf("unknown group action %q", action)
		}
	}
	return nil
}

// fadeIn silences the player, issues play and ramps up to target.
func (m *Mixer) fadeIn(p Player, target int) {
	if err := p.SetVolume(0); err != nil {
		logger.Debug("volume set dropped", logger.ErrorField(err))
	}
	if err := p.Play(); err != nil {
		logger.Debug("play command dropped", logger.ErrorField(err))
	}
	m.fader.Fade(p, 0, target, m.fadeDur)
}

// fadeOut ramps the player down from its current volume (100 when unreadable)
// and then, if the fade was not superseded, issues the follow-up command.
func (m *Mixer) fadeOut(p Player, then func(Player) error) {
	from, err := p.Volume()
	if err != nil {
		from = 100
	}
	done := m.fader.Fade(p, from, 0, m.fadeDur)
	go func() {
		if completed := <-done; !completed {
			return
		}
		if err := then(p); err != nil {
			logger.Debug("transport command dropped", logger.ErrorField(err))
		}
	}()
}

// HandlePlayerState reacts to platform notifications. The only transition is
// ended -> playing, taken iff the loop flag is set at the moment the signal
// arrives.
func (m *Mixer) HandlePlayerState(index int, state string) {
	m.mu.Lock()
	if index < 0 || index >= len(m.tracks) {
		m.mu.Unlock()
		return
	}
	track := m.tracks[index]
	p := m.playerAtLocked(index)
	eff := Effective(track, m.groups)
	m.mu.Unlock()

	switch state {
	case StateEnded:
		if track.Loop && p != nil {
			if err := p.Play(); err != nil {
				logger.Debug("loop replay dropped", logger.Int("track", index), logger.ErrorField(err))
			}
		}
	case StateReady:
		if p != nil {
			if err := p.SetVolume(eff); err != nil {
				logger.Debug("volume set dropped", logger.Int("track", index), logger.ErrorField(err))
			}
		}
	case StateError:
		logger.Warn("player reported error", logger.Int("track", index))
	}
}

// Replace swaps in imported registries wholesale. A nil slice leaves that
// registry untouched, matching the import format where absent keys mean
// "keep what you have".
func (m *Mixer) Replace(ctx context.Context, tracks []model.Track, groups []model.VolumeGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if groups != nil {
		m.groups = groups
		m.saveGroupsLocked(ctx)
	}
	if tracks != nil {
		for i := range tracks {
			if tracks[i].GroupIDs == nil {
				tracks[i].GroupIDs = []string{}
			}
		}
		m.tracks = tracks
		m.saveTracksLocked(ctx)
	}

	// The rebuild replaces every handle, so tear the old ones down first;
	// otherwise handles beyond a shorter imported list keep playing with
	// nothing left addressing them.
	for _, p := range m.players {
		if p == nil {
			continue
		}
		if err := p.Destroy(); err != nil {
			logger.Debug("player destroy failed", logger.ErrorField(err))
		}
		m.fader.Forget(p)
	}
	m.rebuildPlayersLocked()
}

// Save persists both registries, surfacing the first failure. This backs the
// explicit "save" action; routine mutations persist fire-and-forget.
func (m *Mixer) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := store.SaveJSON(ctx, m.st, store.KeyGroups, m.groupsOrEmptyLocked()); err != nil {
		return err
	}
	return store.SaveJSON(ctx, m.st, store.KeyTracks, m.tracksOrEmptyLocked())
}

func (m *Mixer) playerAtLocked(index int) Player {
	if index < 0 || index >= len(m.players) {
		return nil
	}
	return m.players[index]
}

func (m *Mixer) groupIndexLocked(id string) int {
	for i, g := range m.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (m *Mixer) groupsOrEmptyLocked() []model.VolumeGroup {
	if m.groups == nil {
		return []model.VolumeGroup{}
	}
	return m.groups
}

func (m *Mixer) tracksOrEmptyLocked() []model.Track {
	if m.tracks == nil {
		return []model.Track{}
	}
	return m.tracks
}

func (m *Mixer) saveGroupsLocked(ctx context.Context) {
	if err := store.SaveJSON(ctx, m.st, store.KeyGroups, m.groupsOrEmptyLocked()); err != nil {
		logger.Error("failed to persist groups", logger.ErrorField(err))
	}
}

func (m *Mixer) saveTracksLocked(ctx context.Context) {
	if err := store.SaveJSON(ctx, m.st, store.KeyTracks, m.tracksOrEmptyLocked()); err != nil {
		logger.Error("failed to persist tracks", logger.ErrorField(err))
	}
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
