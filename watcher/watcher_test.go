package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dmscreen/core/gallery"
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

type nullDisplay struct{}

func (nullDisplay) ShowImage(int, model.MediaItem) {}
func (nullDisplay) Clear()                         {}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// A minimal valid-enough PNG payload; the watcher only checks the extension.
var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestInitialScanImportsImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "maps", "cave.png"), pngData)
	writeFile(t, filepath.Join(dir, "loose.jpg"), pngData)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not an image"))

	g := gallery.New(newMemStore(), nullDisplay{}, 80)
	w, err := New(dir, g)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(g.Items()) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	items := g.Items()
	if len(items) != 2 {
		t.Fatalf("imported %d items, want 2 (txt file excluded)", len(items))
	}
	for _, it := range items {
		if !strings.HasPrefix(it.DataURI, "data:image/") {
			t.Errorf("item %q data uri = %q", it.Name, it.DataURI[:20])
		}
		if strings.Contains(it.RelativePath, "\\") {
			t.Errorf("path not slash-normalized: %q", it.RelativePath)
		}
	}
}

func TestNewCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drop", "here")

	g := gallery.New(newMemStore(), nullDisplay{}, 80)
	w, err := New(dir, g)
	if err != nil {
		t.Fatal(err)
	}
	w.fsw.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("watch directory not created: %v", err)
	}
}
