// Package filetree implements Quillmark's C4 in-memory hierarchical file
// system: the representation a Quill's bundled resources (fonts, images,
// packages, sub-templates) are loaded into. Grounded on
// original_source/quillmark-core/src/quill.rs's FileTreeNode and on the
// teacher's spf13/afero-backed providers/fs.go DotFSProvider.
package filetree

import (
	"fmt"
	"sort"
	"strings"
)

// Node is a tagged variant: {File{Contents}, Directory{Children}}.
type Node struct {
	IsDir    bool
	Contents []byte
	Children map[string]*Node
}

func NewDir() *Node {
	return &Node{IsDir: true, Children: map[string]*Node{}}
}

func NewFile(contents []byte) *Node {
	return &Node{IsDir: false, Contents: contents}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Insert places contents at path, creating intermediate directories.
// Traversing through an existing File node is an error.
func (n *Node) Insert(path string, contents []byte) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("empty path")
	}
	cur := n
	for _, part := range parts[:len(parts)-1] {
		child, ok := cur.Children[part]
		if !ok {
			child = NewDir()
			cur.Children[part] = child
		}
		if !child.IsDir {
			return fmt.Errorf("cannot traverse into file %q as a directory", part)
		}
		cur = child
	}
	last := parts[len(parts)-1]
	cur.Children[last] = NewFile(contents)
	return nil
}

// GetNode returns the node at path, or nil if absent.
func (n *Node) GetNode(path string) *Node {
	parts := splitPath(path)
	cur := n
	for _, part := range parts {
		if cur == nil || !cur.IsDir {
			return nil
		}
		cur = cur.Children[part]
	}
	return cur
}

// GetFile returns file contents at path, or (nil, false) if absent or a directory.
func (n *Node) GetFile(path string) ([]byte, bool) {
	node := n.GetNode(path)
	if node == nil || node.IsDir {
		return nil, false
	}
	return node.Contents, true
}

func (n *Node) FileExists(path string) bool {
	node := n.GetNode(path)
	return node != nil && !node.IsDir
}

func (n *Node) DirExists(path string) bool {
	node := n.GetNode(path)
	return node != nil && node.IsDir
}

// ListFiles returns every file path under the tree, sorted, '/'-joined
// relative to the tree root.
func (n *Node) ListFiles() []string {
	var out []string
	n.walk("", &out, false)
	sort.Strings(out)
	return out
}

// ListSubdirectories returns every directory path under the tree, sorted.
func (n *Node) ListSubdirectories() []string {
	var out []string
	n.walk("", &out, true)
	sort.Strings(out)
	return out
}

func (n *Node) walk(prefix string, out *[]string, dirs bool) {
	if !n.IsDir {
		return
	}
	for name, child := range n.Children {
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		if child.IsDir {
			if dirs {
				*out = append(*out, p)
			}
			child.walk(p, out, dirs)
		} else if !dirs {
			*out = append(*out, p)
		}
	}
}

// FindFiles returns file paths matching a simple glob with a single "*"
// wildcard (not a regex), per spec.md 4.4.
func (n *Node) FindFiles(pattern string) []string {
	var out []string
	for _, p := range n.ListFiles() {
		if globMatch(pattern, p) {
			out = append(out, p)
		}
	}
	return out
}

func globMatch(pattern, s string) bool {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return pattern == s
	}
	prefix, suffix := pattern[:idx], pattern[idx+1:]
	return strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix) && len(s) >= len(prefix)+len(suffix)
}

// Clone deep-copies the tree.
func (n *Node) Clone() *Node {
	if !n.IsDir {
		cp := make([]byte, len(n.Contents))
		copy(cp, n.Contents)
		return NewFile(cp)
	}
	out := NewDir()
	for name, child := range n.Children {
		out.Children[name] = child.Clone()
	}
	return out
}

// FromJSONValue builds a tree from a decoded JSON object per the JSON
// Quill envelope format in spec.md section 6: each value is either
// {"contents": "<utf-8>"|[byte,...]} for a file, or {"files": {...}} /
// a plain nested object for a directory.
func FromJSONValue(v any) (*Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object for file tree node")
	}
	if contents, hasContents := obj["contents"]; hasContents {
		switch c := contents.(type) {
		case string:
			return NewFile([]byte(c)), nil
		case []any:
			bytes := make([]byte, len(c))
			for i, b := range c {
				if f, ok := b.(float64); ok {
					bytes[i] = byte(f)
				}
			}
			return NewFile(bytes), nil
		default:
			return nil, fmt.Errorf("unsupported contents type %T", contents)
		}
	}
	children := obj
	if inner, ok := obj["files"].(map[string]any); ok {
		children = inner
	}
	dir := NewDir()
	for name, childVal := range children {
		child, err := FromJSONValue(childVal)
		if err != nil {
			return nil, err
		}
		dir.Children[name] = child
	}
	return dir, nil
}
