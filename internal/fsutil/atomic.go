// Package fsutil holds the small filesystem helpers shared by the stores.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PendingFile is a fully written temporary file waiting to replace its target.
type PendingFile struct {
	target string
	tmp    string
	done   bool
}

// Stage writes data to a temporary file next to target. Nothing is visible at target
// until Commit.
func Stage(target string, data []byte, perm os.FileMode) (*PendingFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	return &PendingFile{target: target, tmp: tmp}, nil
}

// Commit atomically replaces the target with the staged content.
func (p *PendingFile) Commit() error {
	if p.done {
		return errors.New("pending file already finished")
	}
	if err := os.Rename(p.tmp, p.target); err != nil {
		return fmt.Errorf("replace %s: %w", p.target, err)
	}
	p.done = true
	return nil
}

// CommitNew moves the staged content to the target only if nothing exists there yet.
// It returns an error satisfying errors.Is(err, os.ErrExist) when the target is taken.
func (p *PendingFile) CommitNew() error {
	if p.done {
		return errors.New("pending file already finished")
	}
	err := os.Link(p.tmp, p.target)
	switch {
	case err == nil:
		_ = os.Remove(p.tmp)
		p.done = true
		return nil
	case errors.Is(err, os.ErrExist):
		return err
	}
	// Filesystems without hard links fall back to check-then-rename.
	if _, statErr := os.Lstat(p.target); statErr == nil {
		return &os.LinkError{Op: "link", Old: p.tmp, New: p.target, Err: os.ErrExist}
	}
	return p.Commit()
}

// Discard removes the staged file. It is a no-op after Commit.
func (p *PendingFile) Discard() {
	if p.done {
		return
	}
	_ = os.Remove(p.tmp)
	p.done = true
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	pending, err := Stage(path, data, perm)
	if err != nil {
		return err
	}
	if err := pending.Commit(); err != nil {
		pending.Discard()
		return err
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
