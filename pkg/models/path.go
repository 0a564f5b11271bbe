package models

import "strings"

// PathSeparator separates names in the string form of a Path.
const PathSeparator = "/"

// Path is a sequence of names from the hierarchy root. The empty Path is the root.
type Path []string

// ParsePath splits a slash-separated string into a Path. Empty segments are dropped,
// so "", "/" and "Work/" parse to the root and ["Work"] respectively.
func ParsePath(s string) Path {
	var p Path
	for _, part := range strings.Split(s, PathSeparator) {
		part = NormalizeName(part)
		if part != "" {
			p = append(p, part)
		}
	}
	return p
}

// String returns the slash-joined form.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// IsRoot reports whether p addresses the hierarchy root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Base returns the last name, or "" for the root.
func (p Path) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path without its last name.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1].Clone()
}

// Join returns a new path with name appended.
func (p Path) Join(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Clone returns a copy that does not share storage with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Equal reports whether both paths name the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// Rebase replaces the leading oldPrefix of p with newPrefix. p must have oldPrefix.
func (p Path) Rebase(oldPrefix, newPrefix Path) Path {
	out := make(Path, 0, len(newPrefix)+len(p)-len(oldPrefix))
	out = append(out, newPrefix...)
	return append(out, p[len(oldPrefix):]...)
}
