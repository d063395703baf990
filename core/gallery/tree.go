package gallery

import (
	"sort"
	"strings"

	"dmscreen/model"
)

// RootName is the sentinel name of the tree root, which holds items whose
// path carries no directory prefix.
const RootName = "root"

// Node is one folder in the media tree. Folders are keyed by name, so the
// tree shape does not depend on the order items were imported in.
type Node struct {
	Name    string
	Folders map[string]*Node
	Items   []model.MediaItem
}

func newNode(name string) *Node {
	return &Node{
		Name:    name,
		Folders: make(map[string]*Node),
	}
}

// BuildTree converts a flat item list into a folder tree. Every item lands in
// exactly one node: the one addressed by the path segments before its final
// segment. The tree is rebuilt from scratch on every import, never patched.
func BuildTree(items []model.MediaItem) *Node {
	root := newNode(RootName)
	for _, item := range items {
		parts := strings.Split(item.RelativePath, "/")
		node := root
		for i, part := range parts {
			if i == len(parts)-1 {
				node.Items = append(node.Items, item)
				continue
			}
			child, ok := node.Folders[part]
			if !ok {
				child = newNode(part)
				node.Folders[part] = child
			}
			node = child
		}
	}
	return root
}

// FolderNames returns the node's child folder names, sorted.
func (n *Node) FolderNames() []string {
	names := make([]string, 0, len(n.Folders))
	for name := range n.Folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
