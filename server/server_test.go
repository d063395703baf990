package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dmscreen/core/combat"
	"dmscreen/core/gallery"
	"dmscreen/core/mixer"
	"dmscreen/core/viewer"
	"dmscreen/model"
	"dmscreen/store"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := newMemStore()
	hub := viewer.NewHub()
	bridge := viewer.NewBridge(hub)
	mix := mixer.New(st, bridge.Factory(), 60*time.Millisecond)
	gal := gallery.New(st, hub, 80)
	tracker := combat.New(st)

	h := NewAPIHandler(st, gal, mix, tracker, hub, nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestExportImportRoundtrip(t *testing.T) {
	srv := newTestServer(t)

	doc := model.ExportDocument{
		Tracks: []model.Track{
			{MediaID: "m1", Name: "Tavern", Volume: 70, Loop: true, GroupIDs: []string{"g1"}},
			{MediaID: "m2", Name: "Rain", Volume: 40, GroupIDs: []string{}},
		},
		Groups: []model.VolumeGroup{{ID: "g1", Name: "Ambience", Volume: 90}},
		Initiative: &model.InitiativeState{Participants: []model.Participant{
			{ID: "p1", Name: "Rogue", Initiative: 18, Type: model.ParticipantPlayer, Color: "#3aa0ff"},
		}},
		Enemies: []model.Enemy{{ID: "e1", Name: "Goblin", HP: 7, Current: 4}},
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/import", doc, nil); code != http.StatusOK {
		t.Fatalf("import status = %d", code)
	}

	var got model.ExportDocument
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/export?initiative=1", nil, &got); code != http.StatusOK {
		t.Fatalf("export status = %d", code)
	}

	if len(got.Tracks) != 2 || got.Tracks[0].Name != "Tavern" || !got.Tracks[0].Loop {
		t.Errorf("tracks = %+v", got.Tracks)
	}
	if len(got.Groups) != 1 || got.Groups[0].Volume != 90 {
		t.Errorf("groups = %+v", got.Groups)
	}
	if got.Initiative == nil || len(got.Initiative.Participants) != 1 || got.Initiative.Participants[0].Name != "Rogue" {
		t.Errorf("initiative = %+v", got.Initiative)
	}
	if len(got.Enemies) != 1 || got.Enemies[0].Current != 4 {
		t.Errorf("enemies = %+v", got.Enemies)
	}
}

func TestExportWithoutInitiativeFlag(t *testing.T) {
	srv := newTestServer(t)

	var got model.ExportDocument
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/export", nil, &got); code != http.StatusOK {
		t.Fatalf("export status = %d", code)
	}
	if got.Tracks == nil || got.Groups == nil {
		t.Error("empty registries exported as null, want empty arrays")
	}
	if got.Initiative != nil || got.Enemies != nil {
		t.Error("combat state exported without the flag")
	}
}

func TestImportKeepsAbsentSections(t *testing.T) {
	srv := newTestServer(t)

	// Seed a participant through the API.
	code := doJSON(t, http.MethodPost, srv.URL+"/api/initiative",
		map[string]interface{}{"name": "Rogue", "initiative": 18, "type": "pj"}, nil)
	if code != http.StatusCreated {
		t.Fatalf("add participant status = %d", code)
	}

	// A document with only tracks and groups leaves combat state alone.
	body := map[string]interface{}{
		"tracks": []model.Track{},
		"groups": []model.VolumeGroup{},
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/import", body, nil); code != http.StatusOK {
		t.Fatalf("import status = %d", code)
	}

	var participants []model.Participant
	doJSON(t, http.MethodGet, srv.URL+"/api/initiative", nil, &participants)
	if len(participants) != 1 || participants[0].Name != "Rogue" {
		t.Errorf("participants after partial import = %+v", participants)
	}
}

func TestAddTrackExtractsMediaID(t *testing.T) {
	srv := newTestServer(t)

	var track model.Track
	code := doJSON(t, http.MethodPost, srv.URL+"/api/tracks",
		map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ", "name": "Tavern"}, &track)
	if code != http.StatusCreated {
		t.Fatalf("add track status = %d", code)
	}
	if track.MediaID != "dQw4w9WgXcQ" || track.Volume != mixer.DefaultTrackVolume {
		t.Errorf("track = %+v", track)
	}

	code = doJSON(t, http.MethodPost, srv.URL+"/api/tracks",
		map[string]string{"url": "not a media link"}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("garbage url status = %d, want 400", code)
	}
}

func TestNotesRoundtrip(t *testing.T) {
	srv := newTestServer(t)

	var empty map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/api/notes", nil, &empty)
	if empty["text"] != "" {
		t.Errorf("fresh notes = %q", empty["text"])
	}

	code := doJSON(t, http.MethodPut, srv.URL+"/api/notes", map[string]string{"text": "session prep"}, nil)
	if code != http.StatusNoContent {
		t.Fatalf("put notes status = %d", code)
	}

	var got map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/api/notes", nil, &got)
	if got["text"] != "session prep" {
		t.Errorf("notes = %q", got["text"])
	}
}

func TestMediaImportAndPagination(t *testing.T) {
	srv := newTestServer(t)

	items := make([]model.MediaItem, 85)
	for i := range items {
		items[i] = model.MediaItem{
			Name:         "map.png",
			RelativePath: "maps/" + string(rune('a'+i/26)) + string(rune('a'+i%26)) + ".png",
		}
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/media/import",
		map[string]interface{}{"items": items}, nil)
	if code != http.StatusOK {
		t.Fatalf("import status = %d", code)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/media/path",
		map[string]interface{}{"path": []string{"maps"}}, nil); code != http.StatusOK {
		t.Fatalf("select path status = %d", code)
	}

	var page struct {
		Shown     []model.MediaItem `json:"shown"`
		Remaining int               `json:"remaining"`
		Folders   []string          `json:"folders"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/media", nil, &page)
	if len(page.Shown) != 80 || page.Remaining != 5 {
		t.Fatalf("first page = %d shown, %d remaining", len(page.Shown), page.Remaining)
	}

	doJSON(t, http.MethodGet, srv.URL+"/api/media?start=80", nil, &page)
	if len(page.Shown) != 5 || page.Remaining != 0 {
		t.Errorf("second page = %d shown, %d remaining", len(page.Shown), page.Remaining)
	}
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var g model.VolumeGroup
	code := doJSON(t, http.MethodPost, srv.URL+"/api/groups", map[string]string{"name": "Ambience"}, &g)
	if code != http.StatusCreated || g.ID == "" || g.Volume != 100 {
		t.Fatalf("create group = %d, %+v", code, g)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/groups", map[string]string{"name": "  "}, nil); code != http.StatusBadRequest {
		t.Errorf("blank group name status = %d, want 400", code)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/groups/"+g.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete group status = %d", resp.StatusCode)
	}

	var groups []model.VolumeGroup
	doJSON(t, http.MethodGet, srv.URL+"/api/groups", nil, &groups)
	if len(groups) != 0 {
		t.Errorf("groups after delete = %+v", groups)
	}
}

func TestEnemySeedQuery(t *testing.T) {
	srv := newTestServer(t)

	var enemies []model.Enemy
	doJSON(t, http.MethodGet, srv.URL+"/api/enemies?seed=1", nil, &enemies)
	if len(enemies) != 1 || enemies[0].Name != "Goblin (demo)" || enemies[0].HP != 7 {
		t.Errorf("seeded enemies = %+v", enemies)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/tracks", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
