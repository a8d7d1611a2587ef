package vfs

import (
	"context"
	"sort"
)

// ToolLister is the minimal view BuiltinFs needs of a tool registry: the
// set of currently registered names. pkg/kaish/tools.Registry satisfies
// this.
type ToolLister interface {
	Names() []string
}

// BuiltinFs is a read-only view exposing one zero-byte entry per
// registered tool name under its mount point, conventionally /v/bin
// (spec §6 VFS paths table).
type BuiltinFs struct {
	tools ToolLister
}

// NewBuiltinFs wraps tools for read-only enumeration.
func NewBuiltinFs(tools ToolLister) *BuiltinFs {
	return &BuiltinFs{tools: tools}
}

func (b *BuiltinFs) ReadOnly() bool             { return true }
func (b *BuiltinFs) RealPath(string) (string, bool) { return "", false }

func (b *BuiltinFs) names() []string {
	names := append([]string(nil), b.tools.Names()...)
	sort.Strings(names)
	return names
}

func (b *BuiltinFs) Read(_ context.Context, path string) ([]byte, error) {
	path = Normalize(path)
	if path == "/" {
		return nil, ErrIsADirectory
	}
	name := path[1:]
	for _, n := range b.names() {
		if n == name {
			return []byte{}, nil
		}
	}
	return nil, ErrNotFound
}

func (b *BuiltinFs) Write(context.Context, string, []byte) error { return ErrReadOnly }

func (b *BuiltinFs) List(_ context.Context, path string) ([]DirEntry, error) {
	path = Normalize(path)
	if path != "/" {
		return nil, ErrNotFound
	}
	names := b.names()
	entries := make([]DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, DirEntry{Name: n, Kind: KindFile})
	}
	return entries, nil
}

func (b *BuiltinFs) Stat(_ context.Context, path string) (DirEntry, error) {
	path = Normalize(path)
	if path == "/" {
		return DirEntry{Name: "/", Kind: KindDirectory}, nil
	}
	name := path[1:]
	for _, n := range b.names() {
		if n == name {
			return DirEntry{Name: n, Kind: KindFile}, nil
		}
	}
	return DirEntry{}, ErrNotFound
}

func (b *BuiltinFs) Lstat(ctx context.Context, path string) (DirEntry, error) {
	return b.Stat(ctx, path)
}

func (b *BuiltinFs) ReadLink(context.Context, string) (string, error) {
	return "", ErrUnsupported
}

func (b *BuiltinFs) Symlink(context.Context, string, string) error { return ErrReadOnly }
func (b *BuiltinFs) Mkdir(context.Context, string) error           { return ErrReadOnly }
func (b *BuiltinFs) Remove(context.Context, string, bool) error    { return ErrReadOnly }
func (b *BuiltinFs) Rename(context.Context, string, string) error  { return ErrReadOnly }
