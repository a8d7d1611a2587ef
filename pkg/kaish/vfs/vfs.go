// Package vfs implements the virtual filesystem contract, backends, and
// mount-point router described in spec §4.6 (components C7, C8). All
// builtin and external-command filesystem access is routed through this
// package; nothing in kaish touches the host filesystem directly except
// through a LocalFs mount.
package vfs

import (
	"context"
	"errors"
	"time"
)

// EntryKind tags a DirEntry's filesystem object type.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
	KindSymlink
)

// DirEntry describes one filesystem object (spec §4.6).
type DirEntry struct {
	Name           string
	Kind           EntryKind
	Size           int64
	Modified       *time.Time
	Permissions    *uint32
	SymlinkTarget  string
}

// Errors mirroring the IoError taxonomy's filesystem-specific cases
// (spec §7). Backends return these via errors.Is-compatible sentinel
// wrapping so the router and builtins can branch on them.
var (
	ErrNotFound        = errors.New("vfs: not found")
	ErrPermissionDenied = errors.New("vfs: permission denied")
	ErrNotADirectory   = errors.New("vfs: not a directory")
	ErrIsADirectory    = errors.New("vfs: is a directory")
	ErrNotEmpty        = errors.New("vfs: directory not empty")
	ErrReadOnly        = errors.New("vfs: filesystem is read-only")
	ErrUnsupported     = errors.New("vfs: unsupported operation")
	ErrAlreadyExists   = errors.New("vfs: already exists")
)

// Filesystem is the backend contract every VFS mount implements
// (spec §4.6).
type Filesystem interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	List(ctx context.Context, path string) ([]DirEntry, error)
	Stat(ctx context.Context, path string) (DirEntry, error)
	Lstat(ctx context.Context, path string) (DirEntry, error)
	ReadLink(ctx context.Context, path string) (string, error)
	Symlink(ctx context.Context, target, linkPath string) error
	Mkdir(ctx context.Context, path string) error
	Remove(ctx context.Context, path string, recursive bool) error
	Rename(ctx context.Context, oldPath, newPath string) error

	// ReadOnly reports whether the backend rejects mutating operations.
	ReadOnly() bool

	// RealPath returns the native host path for backends that pass
	// through to the OS filesystem, used by external-command spawn to
	// map ctx.cwd into a real working directory. Backends with no native
	// analog (MemoryFs, BuiltinFs, JobFs) return ("", false).
	RealPath(path string) (string, bool)
}
