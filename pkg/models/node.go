package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is an entry in the conversation hierarchy. It is either a *Folder or a *Conversation.
type Node interface {
	isNode()
}

// Conversation is a leaf. Its content lives in artifact directories derived from its path.
type Conversation struct{}

func (*Conversation) isNode() {}

// Folder is an internal node holding uniquely named children in insertion order.
type Folder struct {
	names    []string
	children map[string]Node
}

func (*Folder) isNode() {}

// NewFolder returns an empty folder.
func NewFolder() *Folder {
	return &Folder{children: make(map[string]Node)}
}

// Len returns the number of direct children.
func (f *Folder) Len() int {
	return len(f.names)
}

// Names returns the child names in insertion order.
func (f *Folder) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Child returns the named child.
func (f *Folder) Child(name string) (Node, bool) {
	n, ok := f.children[name]
	return n, ok
}

// Has reports whether a child with the given name exists.
func (f *Folder) Has(name string) bool {
	_, ok := f.children[name]
	return ok
}

// Insert appends a child. It fails if the name is taken.
func (f *Folder) Insert(name string, n Node) error {
	if f.children == nil {
		f.children = make(map[string]Node)
	}
	if _, exists := f.children[name]; exists {
		return fmt.Errorf("child %q already exists", name)
	}
	f.names = append(f.names, name)
	f.children[name] = n
	return nil
}

// Remove detaches the named child and returns it.
func (f *Folder) Remove(name string) (Node, bool) {
	n, ok := f.children[name]
	if !ok {
		return nil, false
	}
	delete(f.children, name)
	for i, existing := range f.names {
		if existing == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
	return n, true
}

// Rename changes a child's name in place, keeping its position and subtree.
func (f *Folder) Rename(oldName, newName string) error {
	n, ok := f.children[oldName]
	if !ok {
		return fmt.Errorf("child %q not found", oldName)
	}
	if _, exists := f.children[newName]; exists {
		return fmt.Errorf("child %q already exists", newName)
	}
	delete(f.children, oldName)
	f.children[newName] = n
	for i, existing := range f.names {
		if existing == oldName {
			f.names[i] = newName
			break
		}
	}
	return nil
}

// Clone returns a deep copy of the folder and its subtree.
func (f *Folder) Clone() *Folder {
	out := NewFolder()
	for _, name := range f.names {
		switch child := f.children[name].(type) {
		case *Folder:
			_ = out.Insert(name, child.Clone())
		case *Conversation:
			_ = out.Insert(name, &Conversation{})
		}
	}
	return out
}

// MarshalJSON writes the folder as an object whose values are objects (folders)
// or null (conversations), keeping child order.
func (f *Folder) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		switch child := f.children[name].(type) {
		case *Folder:
			b, err := child.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		case *Conversation:
			buf.WriteString("null")
		default:
			return nil, fmt.Errorf("unknown node type %T for %q", child, name)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form produced by MarshalJSON.
func (f *Folder) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	parsed, err := decodeFolder(dec)
	if err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after hierarchy object")
	}
	*f = *parsed
	return nil
}

func decodeFolder(dec *json.Decoder) (*Folder, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	folder := NewFolder()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %q: %w", name, err)
		}

		var child Node
		switch trimmed := bytes.TrimSpace(raw); {
		case bytes.Equal(trimmed, []byte("null")):
			child = &Conversation{}
		case len(trimmed) > 0 && trimmed[0] == '{':
			sub, err := decodeFolder(json.NewDecoder(bytes.NewReader(trimmed)))
			if err != nil {
				return nil, fmt.Errorf("decode %q: %w", name, err)
			}
			child = sub
		default:
			return nil, fmt.Errorf("entry %q must be an object or null", name)
		}

		if err := folder.Insert(name, child); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return folder, nil
}

// WalkFunc is called for every node below a folder, parents before children.
type WalkFunc func(path Path, n Node) error

// Walk visits every descendant of root in insertion order.
func Walk(root *Folder, fn WalkFunc) error {
	return walk(root, nil, fn)
}

func walk(f *Folder, prefix Path, fn WalkFunc) error {
	for _, name := range f.names {
		child := f.children[name]
		p := prefix.Join(name)
		if err := fn(p, child); err != nil {
			return err
		}
		if sub, ok := child.(*Folder); ok {
			if err := walk(sub, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Conversations returns the paths of all conversation leaves under root, relative to prefix.
func Conversations(root Node, prefix Path) []Path {
	switch n := root.(type) {
	case *Conversation:
		return []Path{prefix.Clone()}
	case *Folder:
		var out []Path
		_ = walk(n, prefix, func(p Path, child Node) error {
			if _, ok := child.(*Conversation); ok {
				out = append(out, p)
			}
			return nil
		})
		return out
	}
	return nil
}
