package vfs

import (
	"context"
	"sort"
	"strconv"
)

// JobSnapshot is the point-in-time view JobFs needs of one background job.
type JobSnapshot struct {
	Command string
	Status  string
	Stdout  []byte
	Stderr  []byte
}

// JobView is the minimal view JobFs needs of the job manager:
// enumerate known ids and snapshot one. pkg/kaish/job.Manager satisfies
// this.
type JobView interface {
	JobIDs() []int64
	Snapshot(id int64) (JobSnapshot, bool)
}

// JobFs synthesizes a read-only directory tree at /v/jobs/{id}/{stdout,
// stderr, status, command} from live job state (spec §4.6: "JobFs view").
type JobFs struct {
	jobs JobView
}

// NewJobFs wraps jobs for read-only synthesis.
func NewJobFs(jobs JobView) *JobFs {
	return &JobFs{jobs: jobs}
}

func (j *JobFs) ReadOnly() bool                 { return true }
func (j *JobFs) RealPath(string) (string, bool) { return "", false }

var jobPseudoFiles = []string{"stdout", "stderr", "status", "command"}

func splitJobPath(path string) (id int64, file string, ok bool) {
	path = Normalize(path)
	if path == "/" {
		return 0, "", false
	}
	rest := path[1:]
	slash := -1
	for i, c := range rest {
		if c == '/' {
			slash = i
			break
		}
	}
	idStr := rest
	if slash >= 0 {
		idStr = rest[:slash]
	}
	n, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, "", false
	}
	if slash < 0 {
		return n, "", true
	}
	return n, rest[slash+1:], true
}

func (j *JobFs) Read(_ context.Context, path string) ([]byte, error) {
	id, file, ok := splitJobPath(path)
	if !ok || file == "" {
		return nil, ErrIsADirectory
	}
	snap, found := j.jobs.Snapshot(id)
	if !found {
		return nil, ErrNotFound
	}
	switch file {
	case "stdout":
		return snap.Stdout, nil
	case "stderr":
		return snap.Stderr, nil
	case "status":
		return []byte(snap.Status), nil
	case "command":
		return []byte(snap.Command), nil
	default:
		return nil, ErrNotFound
	}
}

func (j *JobFs) Write(context.Context, string, []byte) error { return ErrReadOnly }

func (j *JobFs) List(_ context.Context, path string) ([]DirEntry, error) {
	path = Normalize(path)
	if path == "/" {
		ids := append([]int64(nil), j.jobs.JobIDs()...)
		sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
		entries := make([]DirEntry, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, DirEntry{Name: strconv.FormatInt(id, 10), Kind: KindDirectory})
		}
		return entries, nil
	}
	id, file, ok := splitJobPath(path)
	if !ok || file != "" {
		return nil, ErrNotFound
	}
	if _, found := j.jobs.Snapshot(id); !found {
		return nil, ErrNotFound
	}
	entries := make([]DirEntry, 0, len(jobPseudoFiles))
	for _, name := range jobPseudoFiles {
		entries = append(entries, DirEntry{Name: name, Kind: KindFile})
	}
	return entries, nil
}

func (j *JobFs) Stat(ctx context.Context, path string) (DirEntry, error) {
	path = Normalize(path)
	if path == "/" {
		return DirEntry{Name: "/", Kind: KindDirectory}, nil
	}
	id, file, ok := splitJobPath(path)
	if !ok {
		return DirEntry{}, ErrNotFound
	}
	snap, found := j.jobs.Snapshot(id)
	if !found {
		return DirEntry{}, ErrNotFound
	}
	if file == "" {
		return DirEntry{Name: strconv.FormatInt(id, 10), Kind: KindDirectory}, nil
	}
	var size int64
	switch file {
	case "stdout":
		size = int64(len(snap.Stdout))
	case "stderr":
		size = int64(len(snap.Stderr))
	case "status":
		size = int64(len(snap.Status))
	case "command":
		size = int64(len(snap.Command))
	default:
		return DirEntry{}, ErrNotFound
	}
	return DirEntry{Name: file, Kind: KindFile, Size: size}, nil
}

func (j *JobFs) Lstat(ctx context.Context, path string) (DirEntry, error) {
	return j.Stat(ctx, path)
}

func (j *JobFs) ReadLink(context.Context, string) (string, error) {
	return "", ErrUnsupported
}

func (j *JobFs) Symlink(context.Context, string, string) error { return ErrReadOnly }
func (j *JobFs) Mkdir(context.Context, string) error           { return ErrReadOnly }
func (j *JobFs) Remove(context.Context, string, bool) error     { return ErrReadOnly }
func (j *JobFs) Rename(context.Context, string, string) error   { return ErrReadOnly }
