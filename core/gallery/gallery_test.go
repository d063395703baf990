package gallery

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

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

type fakeDisplay struct {
	mu     sync.Mutex
	shown  []model.MediaItem
	clears int
}

func (d *fakeDisplay) ShowImage(index int, item model.MediaItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, item)
}

func (d *fakeDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
}

func newTestGallery(pageSize int) (*Gallery, *fakeDisplay) {
	d := &fakeDisplay{}
	return New(newMemStore(), d, pageSize), d
}

func TestListVisiblePaginates(t *testing.T) {
	items := make([]model.MediaItem, 85)
	for i := range items {
		items[i] = item(fmt.Sprintf("map%03d.png", i))
	}
	node := &Node{Name: RootName, Items: items}

	view := ListVisible(node, "", 0, 80)
	if len(view.Shown) != 80 || view.Remaining != 5 {
		t.Fatalf("first page = %d shown, %d remaining; want 80, 5", len(view.Shown), view.Remaining)
	}

	view = ListVisible(node, "", 80, 80)
	if len(view.Shown) != 5 || view.Remaining != 0 {
		t.Fatalf("second page = %d shown, %d remaining; want 5, 0", len(view.Shown), view.Remaining)
	}

	view = ListVisible(node, "", 500, 80)
	if len(view.Shown) != 0 || view.Remaining != 0 {
		t.Fatalf("past-the-end page = %d shown, %d remaining", len(view.Shown), view.Remaining)
	}
}

func TestListVisibleFiltersBeforePaginating(t *testing.T) {
	node := &Node{Name: RootName}
	for i := 0; i < 30; i++ {
		node.Items = append(node.Items, item(fmt.Sprintf("cave%02d.png", i)))
	}
	for i := 0; i < 3; i++ {
		node.Items = append(node.Items, item(fmt.Sprintf("forest%02d.png", i)))
	}

	view := ListVisible(node, "forest", 0, 10)
	if len(view.Shown) != 3 || view.Remaining != 0 {
		t.Fatalf("filtered view = %d shown, %d remaining; want 3, 0", len(view.Shown), view.Remaining)
	}
	for _, it := range view.Shown {
		if it.Name[:6] != "forest" {
			t.Errorf("unexpected item %q in filtered view", it.Name)
		}
	}

	if view := ListVisible(node, "FOREST", 0, 10); len(view.Shown) != 3 {
		t.Errorf("filter is case-sensitive: got %d items", len(view.Shown))
	}
	if view := ListVisible(node, "nothing-matches", 0, 10); len(view.Shown) != 0 || view.Remaining != 0 {
		t.Errorf("no-match view = %+v, want empty", view)
	}
}

func TestImportDerivesFallbackFolders(t *testing.T) {
	g, _ := newTestGallery(80)
	ctx := context.Background()

	err := g.Import(ctx, []model.MediaItem{
		{Name: "forest_1.png"},
		{Name: "forest_2.png"},
		{Name: "loose.png"},
	})
	if err != nil {
		t.Fatal(err)
	}

	items := g.Items()
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.RelativePath
	}
	want := []string{"forest/forest_1.png", "forest/forest_2.png", "unsorted/loose.png"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestImportSingleItemKeepsFlatPath(t *testing.T) {
	g, _ := newTestGallery(80)

	if err := g.Import(context.Background(), []model.MediaItem{{Name: "solo.png"}}); err != nil {
		t.Fatal(err)
	}
	items := g.Items()
	if len(items) != 1 || items[0].RelativePath != "solo.png" {
		t.Fatalf("items = %v, want single flat solo.png", items)
	}
}

func TestImportSortsNumerically(t *testing.T) {
	g, _ := newTestGallery(80)

	err := g.Import(context.Background(), []model.MediaItem{
		item("maps/img10.png"),
		item("maps/IMG2.png"),
		item("maps/img1.png"),
	})
	if err != nil {
		t.Fatal(err)
	}

	items := g.Items()
	want := []string{"maps/img1.png", "maps/IMG2.png", "maps/img10.png"}
	for i, it := range items {
		if it.RelativePath != want[i] {
			t.Fatalf("sorted order = %v, want %v at %d", it.RelativePath, want[i], i)
		}
	}
}

func TestImportResetsSelectionAndCursor(t *testing.T) {
	g, _ := newTestGallery(2)
	ctx := context.Background()

	if err := g.Import(ctx, []model.MediaItem{
		item("maps/a.png"), item("maps/b.png"), item("maps/c.png"),
	}); err != nil {
		t.Fatal(err)
	}
	g.SelectPath([]string{"maps"})
	g.Advance(2)

	if err := g.Import(ctx, []model.MediaItem{
		item("maps/a.png"), item("maps/b.png"), item("maps/c.png"),
	}); err != nil {
		t.Fatal(err)
	}
	if got := g.Path(); len(got) != 0 {
		t.Errorf("path after re-import = %v, want root", got)
	}
	view := g.Visible("", -1)
	if len(view.Shown) != 0 {
		// Items live under maps/, not at root.
		t.Errorf("root view after re-import = %+v", view)
	}
	g.SelectPath([]string{"maps"})
	if view := g.Visible("", -1); len(view.Shown) != 2 || view.Remaining != 1 {
		t.Errorf("cursor not reset: %d shown, %d remaining", len(view.Shown), view.Remaining)
	}
}

func TestSelectPathStopsAtDeepestAncestor(t *testing.T) {
	g, _ := newTestGallery(80)

	if err := g.Import(context.Background(), []model.MediaItem{
		item("maps/dungeon/level1.png"),
	}); err != nil {
		t.Fatal(err)
	}

	g.SelectPath([]string{"maps", "dungeon", "missing"})
	if got := g.Path(); !reflect.DeepEqual(got, []string{"maps", "dungeon"}) {
		t.Errorf("path = %v, want [maps dungeon]", got)
	}

	g.SelectPath([]string{"nowhere"})
	if got := g.Path(); len(got) != 0 {
		t.Errorf("path = %v, want root", got)
	}
}

func TestShowSendsFilteredIndexToDisplay(t *testing.T) {
	g, d := newTestGallery(80)
	ctx := context.Background()

	if err := g.Import(ctx, []model.MediaItem{
		item("cave1.png"), item("cave2.png"), item("forest1.png"),
	}); err != nil {
		t.Fatal(err)
	}
	// Multi-file batch moved everything under fallback folders.
	g.SelectPath([]string{"unsorted"})

	it, ok := g.Show("forest", 0)
	if !ok || it.Name != "forest1.png" {
		t.Fatalf("Show = %v, %v; want forest1.png", it, ok)
	}
	if last, ok := g.LastShown(); !ok || last.Name != "forest1.png" {
		t.Errorf("LastShown = %v, %v", last, ok)
	}
	d.mu.Lock()
	sent := len(d.shown)
	d.mu.Unlock()
	if sent != 1 {
		t.Errorf("display received %d items, want 1", sent)
	}

	if _, ok := g.Show("forest", 5); ok {
		t.Error("out-of-range Show reported ok")
	}
}

func TestClearEmptiesAndBlanksDisplay(t *testing.T) {
	g, d := newTestGallery(80)
	ctx := context.Background()

	if err := g.Import(ctx, []model.MediaItem{item("maps/a.png"), item("maps/b.png")}); err != nil {
		t.Fatal(err)
	}
	g.SelectPath([]string{"maps"})
	g.Show("", 0)

	if err := g.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if items := g.Items(); len(items) != 0 {
		t.Errorf("items after clear = %v", items)
	}
	if _, ok := g.LastShown(); ok {
		t.Error("LastShown survived clear")
	}
	d.mu.Lock()
	clears := d.clears
	d.mu.Unlock()
	if clears != 1 {
		t.Errorf("display cleared %d times, want 1", clears)
	}
}

func TestLoadRestoresPersistedItems(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	g1 := New(st, &fakeDisplay{}, 80)
	if err := g1.Import(ctx, []model.MediaItem{item("maps/a.png"), item("maps/b.png")}); err != nil {
		t.Fatal(err)
	}

	g2 := New(st, &fakeDisplay{}, 80)
	if err := g2.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := g2.Items(); len(got) != 2 {
		t.Fatalf("restored %d items, want 2", len(got))
	}
	if got := g2.Tree().FolderNames(); !reflect.DeepEqual(got, []string{"maps"}) {
		t.Errorf("restored folders = %v", got)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"img2", "img10", true},
		{"img10", "img2", false},
		{"IMG2", "img10", true},
		{"a", "b", true},
		{"a1b2", "a1b10", true},
		{"same", "same", false},
		{"short", "shorter", true},
	}
	for _, tt := range tests {
		if got := naturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("naturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
