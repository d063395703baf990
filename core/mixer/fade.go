package mixer

import (
	"math"
	"sync"
	"time"
)

// Fader schedules stepwise volume ramps. Each player carries a generation
// token: starting a new fade on a player supersedes any in-flight one, which
// stops issuing commands at its next step. The superseded fade still closes
// its completion channel, so sequenced actions (fade down, then pause) never
// wedge; the command they would issue is simply skipped by the caller checking
// the returned flag.
type Fader struct {
	mu  sync.Mutex
	gen map[Player]uint64
}

// NewFader returns a ready Fader.
func NewFader() *Fader {
	return &Fader{gen: make(map[Player]uint64)}
}

// Fade ramps player volume from one level to another over duration. Steps are
// linear: steps = max(6, round(ms/50)), one SetVolume every round(ms/steps)
// milliseconds, each intermediate value rounded and clamped to [0,100]. The
// final step force-sets exactly `to` so rounding drift never mis-lands.
// SetVolume errors are swallowed and the schedule continues, which makes
// fades resilient to a handle that is transiently unavailable.
//
// The returned channel closes when the fade finishes or is superseded;
// completed reports true only for a fade that ran to its final step.
func (f *Fader) Fade(player Player, from, to int, duration time.Duration) <-chan bool {
	f.mu.Lock()
	f.gen[player]++
	gen := f.gen[player]
	f.mu.Unlock()

	done := make(chan bool, 1)

	ms := float64(duration.Milliseconds())
	steps := int(math.Round(ms / 50))
	if steps < 6 {
		steps = 6
	}
	delta := float64(to-from) / float64(steps)
	interval := time.Duration(math.Round(ms/float64(steps))) * time.Millisecond

	go func() {
		defer close(done)
		cur := float64(from)
		for i := 1; i <= steps; i++ {
			time.Sleep(interval)
			if !f.isCurrent(player, gen) {
				done <- false
				return
			}
			if i == steps {
				_ = player.SetVolume(clampVolume(to))
				done <- true
				return
			}
			cur += delta
			_ = player.SetVolume(clampVolume(int(math.Round(cur))))
		}
	}()
	return done
}

// Forget drops the generation bookkeeping for a destroyed player.
func (f *Fader) Forget(player Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.gen, player)
}

func (f *Fader) isCurrent(player Player, gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen[player] == gen
}
