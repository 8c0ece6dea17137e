package utils

import (
	"fmt"
	"os"

	"github.com/mdobak/go-xerrors"
)

// FSOp tags which filesystem primitive a *FSError wraps, the same
// Kind-tagging pattern the facade and storage layers use at their own
// public boundaries.
type FSOp string

const (
	OpMkdir  FSOp = "mkdir"
	OpRmdir  FSOp = "rmdir"
	OpRemove FSOp = "remove"
	OpRename FSOp = "rename"
)

// FSError is a tagged filesystem failure. Err is wrapped with
// go-xerrors before being stored, so a caller that unwraps far enough
// still finds a captured stack trace.
type FSError struct {
	Op   FSOp
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }

func newFSError(op FSOp, path string, err error) *FSError {
	return &FSError{Op: op, Path: path, Err: xerrors.New(err)}
}

// MakeDir creates path and any missing parents.
func MakeDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return newFSError(OpMkdir, path, err)
	}
	return nil
}

// DeleteDir removes path and everything under it.
func DeleteDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return newFSError(OpRmdir, path, err)
	}
	return nil
}

// DeleteFile removes a single file.
func DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return newFSError(OpRemove, path, err)
	}
	return nil
}

// MoveFile renames src to dst, the fast path used to shift an upload
// into or out of quarantine on the same filesystem.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return newFSError(OpRename, src+" -> "+dst, err)
	}
	return nil
}

// MoveDir renames a directory the same way.
func MoveDir(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return newFSError(OpRename, src+" -> "+dst, err)
	}
	return nil
}
