package hierarchy

import "errors"

var (
	// ErrInvalidPath indicates the path does not resolve to a node.
	ErrInvalidPath = errors.New("path does not exist")

	// ErrNotFolder indicates the parent path resolves to a conversation.
	ErrNotFolder = errors.New("not a folder")

	// ErrNotConversation indicates the path resolves to a folder.
	ErrNotConversation = errors.New("not a conversation")

	// ErrNameConflict indicates a sibling with the requested name already exists.
	ErrNameConflict = errors.New("name already exists")

	// ErrInvalidName indicates the name fails validation.
	ErrInvalidName = errors.New("invalid name")

	// ErrArtifactConflict indicates two conversations would share artifact directories.
	ErrArtifactConflict = errors.New("artifact directories would collide")

	// ErrRootImmutable indicates an attempt to rename or delete the root.
	ErrRootImmutable = errors.New("the root cannot be renamed or deleted")
)

// OpError records a failed hierarchy operation and the path involved.
type OpError struct {
	Op   string // Operation that failed, e.g. "rename"
	Path string // Slash-joined hierarchy path
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}
