// Package gallery holds the folder-organized media library and the paginated,
// filterable view the DM screen renders from it.
package gallery

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"dmscreen/logger"
	"dmscreen/model"
	"dmscreen/store"
)

// fallbackFolder groups loose files that carry no directory prefix when a
// multi-file batch is imported.
const fallbackFolder = "unsorted"

// Display receives what the audience should currently see.
type Display interface {
	ShowImage(index int, item model.MediaItem)
	Clear()
}

// View is one page of the filtered item sequence.
type View struct {
	Shown     []model.MediaItem `json:"shown"`
	Remaining int               `json:"remaining"`
}

// ListVisible filters node's items by a case-insensitive substring match over
// "name relativePath", then slices [pageStart, pageStart+pageSize). Remaining
// counts the filtered items beyond the slice. Filtering happens before
// pagination; an empty result is a valid "no matches" state.
func ListVisible(node *Node, query string, pageStart, pageSize int) View {
	filtered := filterItems(node, query)

	if pageStart < 0 {
		pageStart = 0
	}
	if pageStart > len(filtered) {
		pageStart = len(filtered)
	}
	end := pageStart + pageSize
	if pageSize <= 0 || end > len(filtered) {
		end = len(filtered)
	}

	return View{
		Shown:     filtered[pageStart:end],
		Remaining: len(filtered) - end,
	}
}

func filterItems(node *Node, query string) []model.MediaItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return node.Items
	}
	var filtered []model.MediaItem
	for _, it := range node.Items {
		hay := strings.ToLower(it.Name + " " + it.RelativePath)
		if strings.Contains(hay, q) {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

// Gallery owns the media items, the tree derived from them and the current
// selection/pagination cursor.
type Gallery struct {
	mu       sync.Mutex
	st       store.Store
	display  Display
	pageSize int

	items     []model.MediaItem
	tree      *Node
	path      []string
	pageStart int
	lastShown *model.MediaItem
}

// New creates an empty gallery persisting into st and mirroring to display.
func New(st store.Store, display Display, pageSize int) *Gallery {
	return &Gallery{
		st:       st,
		display:  display,
		pageSize: pageSize,
		tree:     BuildTree(nil),
	}
}

// Load restores the persisted item list, if any, and rebuilds the tree.
func (g *Gallery) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var items []model.MediaItem
	if _, err := store.LoadJSON(ctx, g.st, store.KeyImages, &items); err != nil {
		return err
	}
	g.items = items
	g.rebuildLocked()
	return nil
}

// Import replaces the library with a new batch. Items without a directory
// prefix get one derived from their name when the batch holds more than one
// file, the batch is sorted by path (numeric-aware), the tree is rebuilt and
// the selection returns to the root with the cursor at zero.
func (g *Gallery) Import(ctx context.Context, items []model.MediaItem) error {
	for i := range items {
		if items[i].RelativePath == "" {
			items[i].RelativePath = items[i].Name
		}
		if !strings.Contains(items[i].RelativePath, "/") && len(items) > 1 {
			folder := fallbackFolder
			if j := strings.Index(items[i].Name, "_"); j > 0 {
				folder = items[i].Name[:j]
			}
			items[i].RelativePath = folder + "/" + items[i].Name
		}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return naturalLess(items[a].RelativePath, items[b].RelativePath)
	})

	g.mu.Lock()
	defer g.mu.Unlock()

	g.items = items
	g.rebuildLocked()

	if err := store.SaveJSON(ctx, g.st, store.KeyImages, g.items); err != nil {
		// State stays imported even if the write failed; the next save retries.
		logger.Error("failed to persist media items", logger.ErrorField(err))
		return err
	}
	logger.Info("media imported", logger.Int("items", len(items)))
	return nil
}

// Clear empties the library and blanks the audience display.
func (g *Gallery) Clear(ctx context.Context) error {
	g.mu.Lock()
	g.items = nil
	g.lastShown = nil
	g.rebuildLocked()
	g.mu.Unlock()

	g.display.Clear()
	return g.st.Delete(ctx, store.KeyImages)
}

func (g *Gallery) rebuildLocked() {
	g.tree = BuildTree(g.items)
	g.path = nil
	g.pageStart = 0
}

// SelectPath makes the node addressed by path the active one, stopping at the
// deepest existing ancestor when a segment is missing. The pagination cursor
// resets on every path change.
func (g *Gallery) SelectPath(path []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.tree
	var resolved []string
	for _, seg := range path {
		child, ok := node.Folders[seg]
		if !ok {
			break
		}
		node = child
		resolved = append(resolved, seg)
	}
	g.path = resolved
	g.pageStart = 0
}

// Path returns the currently selected folder path.
func (g *Gallery) Path() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.path...)
}

// Advance moves the pagination cursor to start (the "load more" action).
func (g *Gallery) Advance(start int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if start < 0 {
		start = 0
	}
	g.pageStart = start
}

// Visible returns the current page of the active folder under query. When
// start is negative the gallery's own cursor is used.
func (g *Gallery) Visible(query string, start int) View {
	g.mu.Lock()
	defer g.mu.Unlock()
	if start < 0 {
		start = g.pageStart
	}
	return ListVisible(g.nodeLocked(), query, start, g.pageSize)
}

// Folders lists the child folder names of the active node.
func (g *Gallery) Folders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodeLocked().FolderNames()
}

// Tree returns the current root node.
func (g *Gallery) Tree() *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree
}

func (g *Gallery) nodeLocked() *Node {
	node := g.tree
	for _, seg := range g.path {
		child, ok := node.Folders[seg]
		if !ok {
			break
		}
		node = child
	}
	return node
}

// Show sends the item at index within the currently filtered view to the
// audience display and remembers it for viewer reconnects.
func (g *Gallery) Show(query string, index int) (model.MediaItem, bool) {
	g.mu.Lock()
	filtered := filterItems(g.nodeLocked(), query)
	if index < 0 || index >= len(filtered) {
		g.mu.Unlock()
		return model.MediaItem{}, false
	}
	item := filtered[index]
	g.lastShown = &item
	g.mu.Unlock()

	g.display.ShowImage(index, item)
	return item, true
}

// LastShown returns the most recently displayed item, if any.
func (g *Gallery) LastShown() (model.MediaItem, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastShown == nil {
		return model.MediaItem{}, false
	}
	return *g.lastShown, true
}

// Items returns a copy of the flat item list, in import order.
func (g *Gallery) Items() []model.MediaItem {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.MediaItem(nil), g.items...)
}

// naturalLess compares paths case-insensitively, treating digit runs as
// numbers so "img2" sorts before "img10".
func naturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		ra, wa := splitToken(a)
		rb, wb := splitToken(b)
		if ra != rb {
			na, ea := strconv.Atoi(ra)
			nb, eb := strconv.Atoi(rb)
			if ea == nil && eb == nil {
				return na < nb
			}
			return ra < rb
		}
		a, b = a[wa:], b[wb:]
	}
	return len(a) < len(b)
}

// splitToken returns the leading digit run or non-digit run of s and its width.
func splitToken(s string) (string, int) {
	isDigit := unicode.IsDigit(rune(s[0]))
	for i, r := range s {
		if unicode.IsDigit(r) != isDigit {
			return s[:i], i
		}
	}
	return s, len(s)
}
