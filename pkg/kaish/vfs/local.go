package vfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kaishlang/kaish/internal/fileutil"
)

// LocalFs mounts a directory of the host filesystem, sandboxing every
// resolved path under its canonical root (spec §4.6 invariant: "every
// operation resolves against root; absolute and ..-containing inputs are
// normalized and then verified to live under canonical(root), else
// PermissionDenied").
type LocalFs struct {
	root     string
	readOnly bool
}

// NewLocalFs resolves root to its canonical (symlink-free, absolute) form
// and returns a backend rejecting anything that would resolve outside it.
func NewLocalFs(root string, readOnly bool) (*LocalFs, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !fileutil.Exists(abs) {
			canon = abs
		} else {
			return nil, err
		}
	}
	return &LocalFs{root: canon, readOnly: readOnly}, nil
}

func (l *LocalFs) ReadOnly() bool { return l.readOnly }

// resolve maps a VFS-relative path onto a sandboxed native path, rejecting
// anything that would escape the root even after symlink resolution.
func (l *LocalFs) resolve(path string) (string, error) {
	clean := Normalize(path)
	native := filepath.Join(l.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(l.root, native)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPermissionDenied
	}
	if resolved, err := filepath.EvalSymlinks(native); err == nil {
		relResolved, err := filepath.Rel(l.root, resolved)
		if err != nil || relResolved == ".." || strings.HasPrefix(relResolved, ".."+string(filepath.Separator)) {
			return "", ErrPermissionDenied
		}
	}
	return native, nil
}

func (l *LocalFs) RealPath(path string) (string, bool) {
	native, err := l.resolve(path)
	if err != nil {
		return "", false
	}
	return native, true
}

func mapOsErr(err error) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return ErrNotFound
	case os.IsPermission(err):
		return ErrPermissionDenied
	case os.IsExist(err):
		return ErrAlreadyExists
	default:
		return err
	}
}

func (l *LocalFs) Read(_ context.Context, path string) ([]byte, error) {
	native, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	info, statErr := os.Stat(native)
	if statErr == nil && info.IsDir() {
		return nil, ErrIsADirectory
	}
	data, err := os.ReadFile(native)
	if err != nil {
		return nil, mapOsErr(err)
	}
	return data, nil
}

func (l *LocalFs) Write(_ context.Context, path string, data []byte) error {
	if l.readOnly {
		return ErrReadOnly
	}
	native, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := fileutil.EnsureDir(filepath.Dir(native)); err != nil {
		return mapOsErr(err)
	}
	if err := os.WriteFile(native, data, 0o644); err != nil {
		return mapOsErr(err)
	}
	return nil
}

func (l *LocalFs) List(_ context.Context, path string) ([]DirEntry, error) {
	native, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(native)
	if err != nil {
		return nil, mapOsErr(err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, fsEntryToDirEntry(e.Name(), info))
	}
	return out, nil
}

func fsEntryToDirEntry(name string, info fs.FileInfo) DirEntry {
	e := DirEntry{Name: name, Size: info.Size()}
	mod := info.ModTime()
	e.Modified = &mod
	perm := uint32(info.Mode().Perm())
	e.Permissions = &perm
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		e.Kind = KindSymlink
	case info.IsDir():
		e.Kind = KindDirectory
	default:
		e.Kind = KindFile
	}
	return e
}

func (l *LocalFs) Stat(_ context.Context, path string) (DirEntry, error) {
	native, err := l.resolve(path)
	if err != nil {
		return DirEntry{}, err
	}
	info, err := os.Stat(native)
	if err != nil {
		return DirEntry{}, mapOsErr(err)
	}
	return fsEntryToDirEntry(filepath.Base(native), info), nil
}

func (l *LocalFs) Lstat(_ context.Context, path string) (DirEntry, error) {
	native, err := l.resolve(path)
	if err != nil {
		return DirEntry{}, err
	}
	info, err := os.Lstat(native)
	if err != nil {
		return DirEntry{}, mapOsErr(err)
	}
	return fsEntryToDirEntry(filepath.Base(native), info), nil
}

func (l *LocalFs) ReadLink(_ context.Context, path string) (string, error) {
	native, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	target, err := os.Readlink(native)
	if err != nil {
		return "", mapOsErr(err)
	}
	return target, nil
}

func (l *LocalFs) Symlink(_ context.Context, target, linkPath string) error {
	if l.readOnly {
		return ErrReadOnly
	}
	native, err := l.resolve(linkPath)
	if err != nil {
		return err
	}
	if err := os.Symlink(target, native); err != nil {
		return mapOsErr(err)
	}
	return nil
}

func (l *LocalFs) Mkdir(_ context.Context, path string) error {
	if l.readOnly {
		return ErrReadOnly
	}
	native, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := fileutil.EnsureDir(native); err != nil {
		return mapOsErr(err)
	}
	return nil
}

func (l *LocalFs) Remove(_ context.Context, path string, recursive bool) error {
	if l.readOnly {
		return ErrReadOnly
	}
	native, err := l.resolve(path)
	if err != nil {
		return err
	}
	if recursive {
		if err := fileutil.RemoveAll(native); err != nil {
			return mapOsErr(err)
		}
		return nil
	}
	if err := os.Remove(native); err != nil {
		if pe, ok := err.(*os.PathError); ok && pe.Err != nil && strings.Contains(pe.Err.Error(), "directory not empty") {
			return ErrNotEmpty
		}
		return mapOsErr(err)
	}
	return nil
}

func (l *LocalFs) Rename(_ context.Context, oldPath, newPath string) error {
	if l.readOnly {
		return ErrReadOnly
	}
	oldNative, err := l.resolve(oldPath)
	if err != nil {
		return err
	}
	newNative, err := l.resolve(newPath)
	if err != nil {
		return err
	}
	if err := os.Rename(oldNative, newNative); err != nil {
		return mapOsErr(err)
	}
	return nil
}
