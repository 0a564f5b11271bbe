package models

import (
	"strconv"
	"strings"
	"time"
)

const (
	// SegmentIDLayout is the layout of new segment identifiers. It is fixed width, so
	// identifiers sort lexicographically in time order.
	SegmentIDLayout = "20060102-150405.000000"

	// LegacySegmentIDLayout is the second-resolution layout of older segment files.
	LegacySegmentIDLayout = "2006-01-02 15:04:05"

	// SegmentFileExt is the extension of segment files.
	SegmentFileExt = ".txt"
)

// Segment is one timestamped unit of transcript text.
type Segment struct {
	// ID names the segment file on disk and orders segments within a conversation.
	ID   string    `json:"id" yaml:"id"`
	Time time.Time `json:"time" yaml:"time"`
	Text string    `json:"text" yaml:"text"`
}

// NewSegmentID formats t as a segment identifier. A positive seq adds a tie-break suffix
// that sorts after the bare identifier.
func NewSegmentID(t time.Time, seq int) string {
	id := t.Format(SegmentIDLayout)
	if seq > 0 {
		id += "-" + strconv.Itoa(seq)
	}
	return id
}

// ParseSegmentID returns the time encoded in id and its tie-break sequence. It accepts
// both the current and the legacy layout.
func ParseSegmentID(id string) (time.Time, int, bool) {
	if t, err := time.ParseInLocation(LegacySegmentIDLayout, id, time.Local); err == nil {
		return t, 0, true
	}

	base, seq := id, 0
	if len(id) > len(SegmentIDLayout) {
		base = id[:len(SegmentIDLayout)]
		suffix := id[len(SegmentIDLayout):]
		if !strings.HasPrefix(suffix, "-") {
			return time.Time{}, 0, false
		}
		n, err := strconv.Atoi(suffix[1:])
		if err != nil || n <= 0 {
			return time.Time{}, 0, false
		}
		seq = n
	}
	t, err := time.ParseInLocation(SegmentIDLayout, base, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, seq, true
}

// SegmentIDFromFile returns the identifier of a segment file name, or false if the name
// does not follow the naming convention.
func SegmentIDFromFile(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, SegmentFileExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, SegmentFileExt)
	if _, _, ok := ParseSegmentID(id); !ok {
		return "", false
	}
	return id, true
}

// NodeKind describes a node for listings.
type NodeKind string

const (
	KindFolder       NodeKind = "folder"
	KindConversation NodeKind = "conversation"
)

// KindOf returns the kind of n.
func KindOf(n Node) NodeKind {
	if _, ok := n.(*Folder); ok {
		return KindFolder
	}
	return KindConversation
}

// Entry is a flattened view of a node used by listings.
type Entry struct {
	Path       Path      `json:"path" yaml:"path"`
	Name       string    `json:"name" yaml:"name"`
	Kind       NodeKind  `json:"kind" yaml:"kind"`
	ModifiedAt time.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	Segments   int       `json:"segments,omitempty" yaml:"segments,omitempty"`
	Children   []*Entry  `json:"children,omitempty" yaml:"children,omitempty"`
}
