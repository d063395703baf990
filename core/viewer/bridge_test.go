package viewer

import (
	"encoding/json"
	"errors"
	"testing"

	"dmscreen/model"
)

// attachBridgeClient registers a fake bridge-page connection directly, so
// command delivery is observable without a websocket.
func attachBridgeClient(h *Hub) *Client {
	c := &Client{Hub: h, Send: make(chan []byte, 16), Role: RolePlayer}
	h.addClient(c)
	return c
}

func receiveMessage(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message on wire: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued")
		return WSMessage{}
	}
}

func TestFactoryIssuesLoadCommand(t *testing.T) {
	h := NewHub()
	c := attachBridgeClient(h)
	b := NewBridge(h)

	p, err := b.Factory()(2, "media-abc")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("factory returned nil player")
	}

	msg := receiveMessage(t, c)
	if msg.Type != MsgTypePlayerCommand || msg.Action != actionLoad {
		t.Errorf("message = %+v, want load command", msg)
	}
	if msg.Index != 2 || msg.MediaID != "media-abc" {
		t.Errorf("load command addressed %d/%q", msg.Index, msg.MediaID)
	}
}

func TestCommandsFailWithoutBridge(t *testing.T) {
	h := NewHub()
	b := NewBridge(h)

	p, err := b.Factory()(0, "media-abc")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Play(); !errors.Is(err, ErrNoBridge) {
		t.Errorf("Play without bridge = %v, want ErrNoBridge", err)
	}
	if err := p.SetVolume(40); !errors.Is(err, ErrNoBridge) {
		t.Errorf("SetVolume without bridge = %v, want ErrNoBridge", err)
	}
	// The failed set must not populate the cache.
	if _, err := p.Volume(); err == nil {
		t.Error("Volume readable after failed set")
	}
}

func TestSetVolumeCachesLastSent(t *testing.T) {
	h := NewHub()
	c := attachBridgeClient(h)
	b := NewBridge(h)

	p, _ := b.Factory()(0, "media-abc")
	receiveMessage(t, c) // drain the load command

	if err := p.SetVolume(55); err != nil {
		t.Fatal(err)
	}
	msg := receiveMessage(t, c)
	if msg.Action != actionSetVolume || msg.Volume != 55 {
		t.Errorf("message = %+v, want setVolume 55", msg)
	}
	if v, err := p.Volume(); err != nil || v != 55 {
		t.Errorf("cached volume = %d, %v; want 55", v, err)
	}
}

func TestVolumeReportUpdatesCache(t *testing.T) {
	h := NewHub()
	b := NewBridge(h)

	p, _ := b.Factory()(3, "media-abc")

	b.reportVolume(3, 62)
	if v, err := p.Volume(); err != nil || v != 62 {
		t.Errorf("reported volume = %d, %v; want 62", v, err)
	}

	// Reports for unknown positions are dropped.
	b.reportVolume(9, 10)
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := NewHub()
	c := attachBridgeClient(h)
	b := NewBridge(h)

	p, _ := b.Factory()(0, "media-abc")
	receiveMessage(t, c)

	if err := p.Destroy(); err != nil {
		t.Fatal(err)
	}
	msg := receiveMessage(t, c)
	if msg.Action != actionDestroy {
		t.Errorf("message = %+v, want destroy command", msg)
	}

	if err := p.Destroy(); err != nil {
		t.Errorf("second Destroy = %v, want nil", err)
	}
	if err := p.Play(); err == nil {
		t.Error("command on destroyed player succeeded")
	}
	if _, err := p.Volume(); err == nil {
		t.Error("Volume on destroyed player succeeded")
	}
}

func TestViewerReadyResendsLastShown(t *testing.T) {
	h := NewHub()

	item := model.MediaItem{Name: "map.png", RelativePath: "maps/map.png"}
	h.ShowImage(4, item)

	late := &Client{Hub: h, Send: make(chan []byte, 1), Role: RoleViewer}
	h.handleMessage(late, &WSMessage{Type: MsgTypeViewerReady})

	msg := receiveMessage(t, late)
	if msg.Type != MsgTypeShowImage || msg.Index != 4 {
		t.Errorf("resent message = %+v", msg)
	}
	if msg.Data == nil || msg.Data.Name != "map.png" {
		t.Errorf("resent payload = %+v", msg.Data)
	}
}

func TestClearDropsLastShown(t *testing.T) {
	h := NewHub()

	h.ShowImage(0, model.MediaItem{Name: "map.png"})
	h.Clear()

	late := &Client{Hub: h, Send: make(chan []byte, 1), Role: RoleViewer}
	h.handleMessage(late, &WSMessage{Type: MsgTypeViewerReady})

	select {
	case data := <-late.Send:
		t.Errorf("cleared hub resent %s", data)
	default:
	}
}

func TestBridgeReadyFiresCallback(t *testing.T) {
	h := NewHub()
	fired := false
	h.OnPlatformReady(func() { fired = true })

	c := &Client{Hub: h, Send: make(chan []byte, 1), Role: RolePlayer}
	h.handleMessage(c, &WSMessage{Type: MsgTypeBridgeReady})
	if !fired {
		t.Error("bridgeReady did not fire the platform callback")
	}
}

func TestPlayerStateAndVolumeRouting(t *testing.T) {
	h := NewHub()

	var gotIndex int
	var gotState string
	h.OnPlayerState(func(index int, state string) { gotIndex, gotState = index, state })

	var volIndex, vol int
	h.OnPlayerVolume(func(index, volume int) { volIndex, vol = index, volume })

	c := &Client{Hub: h, Send: make(chan []byte, 1), Role: RolePlayer}
	h.handleMessage(c, &WSMessage{Type: MsgTypePlayerState, Index: 2, State: "ended"})
	h.handleMessage(c, &WSMessage{Type: MsgTypePlayerVolume, Index: 1, Volume: 45})

	if gotIndex != 2 || gotState != "ended" {
		t.Errorf("state routed as %d/%q", gotIndex, gotState)
	}
	if volIndex != 1 || vol != 45 {
		t.Errorf("volume routed as %d/%d", volIndex, vol)
	}
}

func TestShowImageBroadcastsToViewersOnly(t *testing.T) {
	h := NewHub()
	viewer := &Client{Hub: h, Send: make(chan []byte, 1), Role: RoleViewer}
	player := &Client{Hub: h, Send: make(chan []byte, 1), Role: RolePlayer}
	h.addClient(viewer)
	h.addClient(player)

	h.ShowImage(0, model.MediaItem{Name: "map.png"})

	msg := receiveMessage(t, viewer)
	if msg.Type != MsgTypeShowImage {
		t.Errorf("viewer received %+v", msg)
	}
	select {
	case data := <-player.Send:
		t.Errorf("player bridge received display traffic: %s", data)
	default:
	}
}

func TestHasBridge(t *testing.T) {
	h := NewHub()
	if h.HasBridge() {
		t.Error("empty hub reports a bridge")
	}
	attachBridgeClient(h)
	if !h.HasBridge() {
		t.Error("hub with a player client reports no bridge")
	}
}
