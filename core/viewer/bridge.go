package viewer

import (
	"errors"
	"sync"

	"dmscreen/core/mixer"
)

// ErrNoBridge means no player bridge page is currently connected. Player
// commands failing with it are dropped, not queued; the bridge reloads all
// players when it reconnects.
var ErrNoBridge = errors.New("player bridge not connected")

var errDestroyed = errors.New("player destroyed")

// Player command actions understood by the bridge page.
const (
	actionLoad      = "load"
	actionPlay      = "play"
	actionPause     = "pause"
	actionStop      = "stop"
	actionSetVolume = "setVolume"
	actionDestroy   = "destroy"
)

// RemotePlayer is the server-side handle for one embedded player hosted by
// the bridge page. Volume reads are best-effort: the handle remembers the
// last value it sent or the bridge reported, and errors before either exists.
type RemotePlayer struct {
	hub     *Hub
	index   int
	mediaID string

	mu        sync.Mutex
	volume    int
	hasVolume bool
	destroyed bool
}

// Bridge builds RemotePlayers and keeps them addressable by track position so
// volume reports from the page land on the right handle.
type Bridge struct {
	mu      sync.Mutex
	hub     *Hub
	current map[int]*RemotePlayer
}

// NewBridge wires a bridge onto hub; volume reports update handle caches.
func NewBridge(hub *Hub) *Bridge {
	b := &Bridge{
		hub:     hub,
		current: make(map[int]*RemotePlayer),
	}
	hub.OnPlayerVolume(b.reportVolume)
	return b
}

// Factory returns the player factory the mixer rebuilds handles through.
// Each call issues a load command for the track's media and supersedes the
// previous handle at that position.
func (b *Bridge) Factory() mixer.PlayerFactory {
	return func(index int, mediaID string) (mixer.Player, error) {
		p := &RemotePlayer{hub: b.hub, index: index, mediaID: mediaID}

		b.mu.Lock()
		b.current[index] = p
		b.mu.Unlock()

		// Best-effort: a disconnected bridge reloads everything on reconnect.
		_ = b.hub.SendPlayerCommand(&WSMessage{
			Type:    MsgTypePlayerCommand,
			Action:  actionLoad,
			Index:   index,
			MediaID: mediaID,
		})
		return p, nil
	}
}

func (b *Bridge) reportVolume(index, volume int) {
	b.mu.Lock()
	p := b.current[index]
	b.mu.Unlock()
	if p == nil {
		return
	}
	p.mu.Lock()
	p.volume = volume
	p.hasVolume = true
	p.mu.Unlock()
}

func (p *RemotePlayer) command(action string, volume int) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return errDestroyed
	}
	p.mu.Unlock()

	return p.hub.SendPlayerCommand(&WSMessage{
		Type:    MsgTypePlayerCommand,
		Action:  action,
		Index:   p.index,
		MediaID: p.mediaID,
		Volume:  volume,
	})
}

func (p *RemotePlayer) Play() error {
	return p.command(actionPlay, 0)
}

func (p *RemotePlayer) Pause() error {
	return p.command(actionPause, 0)
}

func (p *RemotePlayer) Stop() error {
	return p.command(actionStop, 0)
}

func (p *RemotePlayer) SetVolume(v int) error {
	if err := p.command(actionSetVolume, v); err != nil {
		return err
	}
	p.mu.Lock()
	p.volume = v
	p.hasVolume = true
	p.mu.Unlock()
	return nil
}

func (p *RemotePlayer) Volume() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, errDestroyed
	}
	if !p.hasVolume {
		return 0, errors.New("volume unknown")
	}
	return p.volume, nil
}

func (p *RemotePlayer) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	p.mu.Unlock()

	return p.hub.SendPlayerCommand(&WSMessage{
		Type:   MsgTypePlayerCommand,
		Action: actionDestroy,
		Index:  p.index,
	})
}
