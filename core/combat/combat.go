// Package combat holds the enemy HP cards and the initiative queue.
package combat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dmscreen/logger"
	"dmscreen/model"
	"dmscreen/store"
)

var (
	ErrEmptyName = errors.New("name must not be empty")
	ErrBadHP     = errors.New("hp must be a positive number")
	ErrNotFound  = errors.New("no such entry")
)

// Default participant colors per type.
const (
	colorPlayer = "#3aa0ff"
	colorAlly   = "#3cb371"
	colorEnemy  = "#ff4d4d"
)

// Tracker owns both combat registries and persists them independently.
type Tracker struct {
	mu      sync.Mutex
	st      store.Store
	enemies []model.Enemy
	state   model.InitiativeState
}

// New creates an empty tracker persisting into st.
func New(st store.Store) *Tracker {
	return &Tracker{st: st}
}

// Load restores both registries; corrupt documents reset to empty defaults.
func (t *Tracker) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var enemies []model.Enemy
	if _, err := store.LoadJSON(ctx, t.st, store.KeyEnemies, &enemies); err != nil {
		return err
	}
	var state model.InitiativeState
	if _, err := store.LoadJSON(ctx, t.st, store.KeyInitiative, &state); err != nil {
		return err
	}
	t.enemies = enemies
	t.state = state
	return nil
}

// Enemies returns a copy of the enemy list.
func (t *Tracker) Enemies() []model.Enemy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Enemy(nil), t.enemies...)
}

// CreateEnemy validates name and hp, then adds a card at full health. AC and
// speed are optional stat-block extras.
func (t *Tracker) CreateEnemy(ctx context.Context, name string, hp int, ac, speed *int) (model.Enemy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Enemy{}, ErrEmptyName
	}
	if hp <= 0 {
		return model.Enemy{}, ErrBadHP
	}

	e := model.Enemy{
		ID:      uuid.NewString(),
		Name:    name,
		HP:      hp,
		AC:      ac,
		Speed:   speed,
		Current: hp,
	}

	t.mu.Lock()
	t.enemies = append(t.enemies, e)
	t.saveEnemiesLocked(ctx)
	t.mu.Unlock()

	logger.Info("enemy created", logger.String("name", e.Name), logger.Int("hp", e.HP))
	return e, nil
}

// RemoveEnemy deletes one card; unknown ids are a no-op.
func (t *Tracker) RemoveEnemy(ctx context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.enemies[:0]
	for _, e := range t.enemies {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	t.enemies = kept
	t.saveEnemiesLocked(ctx)
}

// ClearEnemies empties the card list.
func (t *Tracker) ClearEnemies(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enemies = nil
	t.saveEnemiesLocked(ctx)
}

// SetHP sets an enemy's current HP, clamped to [0, max].
func (t *Tracker) SetHP(ctx context.Context, id string, value int) (int, error) {
	return t.updateHP(ctx, id, func(e *model.Enemy) int { return value })
}

// AdjustHP applies a delta to an enemy's current HP, clamped to [0, max].
func (t *Tracker) AdjustHP(ctx context.Context, id string, delta int) (int, error) {
	return t.updateHP(ctx, id, func(e *model.Enemy) int { return e.Current + delta })
}

func (t *Tracker) updateHP(ctx context.Context, id string, next func(*model.Enemy) int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.enemies {
		if t.enemies[i].ID != id {
			continue
		}
		v := next(&t.enemies[i])
		if v < 0 {
			v = 0
		}
		if v > t.enemies[i].HP {
			v = t.enemies[i].HP
		}
		t.enemies[i].Current = v
		t.saveEnemiesLocked(ctx)
		return v, nil
	}
	return 0, ErrNotFound
}

// SeedDemo adds one example enemy when the tracker is empty. Backs the debug
// seeding flag.
func (t *Tracker) SeedDemo(ctx context.Context) {
	t.mu.Lock()
	empty := len(t.enemies) == 0
	t.mu.Unlock()
	if !empty {
		return
	}
	if _, err := t.CreateEnemy(ctx, "Goblin (demo)", 7, nil, nil); err != nil {
		logger.Warn("demo enemy seed failed", logger.ErrorField(err))
	}
}

// Participants returns the queue sorted by initiative, descending by default.
// Ties keep insertion order.
func (t *Tracker) Participants(desc bool) []model.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := append([]model.Participant(nil), t.state.Participants...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if desc {
			return sorted[a].Initiative > sorted[b].Initiative
		}
		return sorted[a].Initiative < sorted[b].Initiative
	})
	return sorted
}

// AddParticipant appends one queue entry, filling in defaults for missing
// name, type and color.
func (t *Tracker) AddParticipant(ctx context.Context, name string, initiative int, ptype, color string) model.Participant {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unnamed"
	}
	if ptype == "" {
		ptype = model.ParticipantEnemy
	}
	if color == "" {
		color = defaultColorFor(ptype)
	}

	p := model.Participant{
		ID:         uuid.NewString(),
		Name:       name,
		Initiative: initiative,
		Type:       ptype,
		Color:      color,
	}

	t.mu.Lock()
	t.state.Participants = append(t.state.Participants, p)
	t.saveInitiativeLocked(ctx)
	t.mu.Unlock()
	return p
}

// ParticipantUpdate carries the fields an update may change; nil means keep.
type ParticipantUpdate struct {
	Name       *string
	Initiative *int
	Type       *string
	Color      *string
}

// UpdateParticipant patches one entry in place.
func (t *Tracker) UpdateParticipant(ctx context.Context, id string, upd ParticipantUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.state.Participants {
		p := &t.state.Participants[i]
		if p.ID != id {
			continue
		}
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Initiative != nil {
			p.Initiative = *upd.Initiative
		}
		if upd.Type != nil {
			p.Type = *upd.Type
		}
		if upd.Color != nil {
			p.Color = *upd.Color
		}
		t.saveInitiativeLocked(ctx)
		return nil
	}
	return ErrNotFound
}

// RemoveParticipant deletes one queue entry; unknown ids are a no-op.
func (t *Tracker) RemoveParticipant(ctx context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.state.Participants[:0]
	for _, p := range t.state.Participants {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	t.state.Participants = kept
	t.saveInitiativeLocked(ctx)
}

// ClearParticipants empties the queue.
func (t *Tracker) ClearParticipants(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Participants = nil
	t.saveInitiativeLocked(ctx)
}

// State snapshots the initiative document for export.
func (t *Tracker) State() model.InitiativeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return model.InitiativeState{
		Participants: append([]model.Participant(nil), t.state.Participants...),
	}
}

// ImportState replaces the queue wholesale when the document carries a
// participant list.
func (t *Tracker) ImportState(ctx context.Context, state *model.InitiativeState) {
	if state == nil || state.Participants == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Participants = append([]model.Participant(nil), state.Participants...)
	t.saveInitiativeLocked(ctx)
}

// ReplaceEnemies swaps in an imported enemy list; nil keeps the current one.
func (t *Tracker) ReplaceEnemies(ctx context.Context, enemies []model.Enemy) {
	if enemies == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enemies = enemies
	t.saveEnemiesLocked(ctx)
}

func defaultColorFor(ptype string) string {
	switch ptype {
	case model.ParticipantPlayer:
		return colorPlayer
	case model.ParticipantAlly:
		return colorAlly
	default:
		return colorEnemy
	}
}

func (t *Tracker) saveEnemiesLocked(ctx context.Context) {
	enemies := t.enemies
	if enemies == nil {
		enemies = []model.Enemy{}
	}
	if err := store.SaveJSON(ctx, t.st, store.KeyEnemies, enemies); err != nil {
		logger.Error("failed to persist enemies", logger.ErrorField(err))
	}
}

func (t *Tracker) saveInitiativeLocked(ctx context.Context) {
	state := t.state
	if state.Participants == nil {
		state.Participants = []model.Participant{}
	}
	if err := store.SaveJSON(ctx, t.st, store.KeyInitiative, state); err != nil {
		logger.Error("failed to persist initiative queue", logger.ErrorField(err))
	}
}
