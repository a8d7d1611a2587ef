package vfs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// mount is one registered backend at a normalized path prefix.
type mount struct {
	prefix  string
	backend Filesystem
}

// Router dispatches every operation to the mount whose normalized prefix
// is the longest match for the input path (spec §4.6, component C8).
// Mounts are added under brief exclusive access (spec §5); lookups take
// the shared read lock.
type Router struct {
	mu     sync.RWMutex
	mounts []mount
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Mount registers backend at prefix. Returns an error if the normalized
// prefix is already mounted (spec §3: "Mounts ... have unique normalized
// paths").
func (r *Router) Mount(prefix string, backend Filesystem) error {
	np := Normalize(prefix)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mounts {
		if m.prefix == np {
			return fmt.Errorf("vfs: mount %q already registered", np)
		}
	}
	r.mounts = append(r.mounts, mount{prefix: np, backend: backend})
	sort.Slice(r.mounts, func(i, j int) bool {
		return len(r.mounts[i].prefix) > len(r.mounts[j].prefix)
	})
	return nil
}

// Unmount removes the mount at prefix, if any.
func (r *Router) Unmount(prefix string) {
	np := Normalize(prefix)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.mounts {
		if m.prefix == np {
			r.mounts = append(r.mounts[:i], r.mounts[i+1:]...)
			return
		}
	}
}

// Mounts lists the currently registered mount prefixes, longest-first.
func (r *Router) Mounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.mounts))
	for i, m := range r.mounts {
		out[i] = m.prefix
	}
	return out
}

// resolve finds the longest-matching mount for path and returns the
// backend plus the path with that prefix stripped.
func (r *Router) resolve(path string) (Filesystem, string, error) {
	np := Normalize(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.mounts {
		if hasPrefix(np, m.prefix) {
			return m.backend, StripPrefix(np, m.prefix), nil
		}
	}
	return nil, "", fmt.Errorf("vfs: no mount covers %q", np)
}

// backendFor is like resolve but also returns the matched prefix, used by
// Rename to detect cross-mount moves.
func (r *Router) backendFor(path string) (Filesystem, string, string, error) {
	np := Normalize(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.mounts {
		if hasPrefix(np, m.prefix) {
			return m.backend, m.prefix, StripPrefix(np, m.prefix), nil
		}
	}
	return nil, "", "", fmt.Errorf("vfs: no mount covers %q", np)
}

func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return b.Read(ctx, rel)
}

func (r *Router) Write(ctx context.Context, path string, data []byte) error {
	b, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if b.ReadOnly() {
		return ErrReadOnly
	}
	return b.Write(ctx, rel, data)
}

func (r *Router) List(ctx context.Context, path string) ([]DirEntry, error) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return b.List(ctx, rel)
}

func (r *Router) Stat(ctx context.Context, path string) (DirEntry, error) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return DirEntry{}, err
	}
	return b.Stat(ctx, rel)
}

func (r *Router) Lstat(ctx context.Context, path string) (DirEntry, error) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return DirEntry{}, err
	}
	return b.Lstat(ctx, rel)
}

func (r *Router) ReadLink(ctx context.Context, path string) (string, error) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return "", err
	}
	return b.ReadLink(ctx, rel)
}

func (r *Router) Symlink(ctx context.Context, target, linkPath string) error {
	b, rel, err := r.resolve(linkPath)
	if err != nil {
		return err
	}
	if b.ReadOnly() {
		return ErrReadOnly
	}
	return b.Symlink(ctx, target, rel)
}

func (r *Router) Mkdir(ctx context.Context, path string) error {
	b, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if b.ReadOnly() {
		return ErrReadOnly
	}
	return b.Mkdir(ctx, rel)
}

func (r *Router) Remove(ctx context.Context, path string, recursive bool) error {
	b, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if b.ReadOnly() {
		return ErrReadOnly
	}
	return b.Remove(ctx, rel, recursive)
}

// Rename dispatches to a single backend's Rename when both paths resolve
// to the same mount; cross-mount renames are Unsupported (spec §4.6).
func (r *Router) Rename(ctx context.Context, oldPath, newPath string) error {
	oldBackend, oldPrefix, oldRel, err := r.backendFor(oldPath)
	if err != nil {
		return err
	}
	newBackend, newPrefix, newRel, err := r.backendFor(newPath)
	if err != nil {
		return err
	}
	if oldPrefix != newPrefix || oldBackend != newBackend {
		return ErrUnsupported
	}
	if oldBackend.ReadOnly() {
		return ErrReadOnly
	}
	return oldBackend.Rename(ctx, oldRel, newRel)
}

// RealPath maps a VFS path to a native path if its mount passes through
// to the OS (spec §4.7, used by external-command spawn).
func (r *Router) RealPath(path string) (string, bool) {
	b, rel, err := r.resolve(path)
	if err != nil {
		return "", false
	}
	return b.RealPath(rel)
}
