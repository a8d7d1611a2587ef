// Package job implements JobManager, the background-pipeline tracker
// described in spec §4.10 (component C13): one entry per backgrounded
// pipeline, each owning bounded stdout/stderr streams and a one-shot
// completion channel.
package job

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/stream"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

// Status strings match spec §4.10 exactly: "running", "done:CODE",
// "failed:CODE", "stopped:SIGNAL" (interactive only).
const (
	statusRunning = "running"
)

// Job is one tracked background pipeline.
type Job struct {
	ID      int64
	Command string

	mu       sync.RWMutex
	status   string
	stopped  bool
	result   *scope.ExecResult
	done     chan struct{}
	doneOnce sync.Once

	Stdout *stream.BoundedStream
	Stderr *stream.BoundedStream

	// Pgid is the owning process group id for signal delivery, set by the
	// pipeline runner for jobs containing at least one external command
	// (spec §4.11). Zero for pure-builtin background jobs.
	Pgid int
}

func (j *Job) statusString() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// complete records the final result and unblocks any waiters. Safe to
// call at most meaningfully once; later calls are no-ops.
func (j *Job) complete(result scope.ExecResult) {
	j.mu.Lock()
	j.result = &result
	if result.OK() {
		j.status = fmt.Sprintf("done:%d", result.Code)
	} else {
		j.status = fmt.Sprintf("failed:%d", result.Code)
	}
	j.mu.Unlock()
	j.doneOnce.Do(func() { close(j.done) })
}

// markStopped transitions a foreground job that was Ctrl-Z'd into a
// tracked stopped background job (spec §4.11).
func (j *Job) markStopped(signal int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
	j.status = fmt.Sprintf("stopped:%d", signal)
}

// Manager tracks every known job by id, insertion-order stable for
// listing (grounded on the same registry shape used elsewhere in the
// kernel).
type Manager struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Job
	order  []int64
}

// NewManager creates an empty job manager.
func NewManager() *Manager {
	return &Manager{byID: make(map[int64]*Job)}
}

// RegisterWithStreams allocates a JobId, wires bounded stdout/stderr
// streams, and returns the tracked Job (spec §4.10: "register_with_
// streams"). streamCap bounds both streams; <= 0 means unbounded.
func (m *Manager) RegisterWithStreams(command string, streamCap int) *Job {
	id := atomic.AddInt64(&m.nextID, 1)
	j := &Job{
		ID:      id,
		Command: command,
		status:  statusRunning,
		done:    make(chan struct{}),
		Stdout:  stream.New(streamCap),
		Stderr:  stream.New(streamCap),
	}
	m.mu.Lock()
	m.byID[id] = j
	m.order = append(m.order, id)
	m.mu.Unlock()
	return j
}

// Complete finishes job id with result, a no-op if id is unknown.
func (m *Manager) Complete(id int64, result scope.ExecResult) {
	if j, ok := m.get(id); ok {
		j.complete(result)
		j.Stdout.Close()
		j.Stderr.Close()
	}
}

// MarkStopped records a Ctrl-Z transition for a previously foreground job
// now tracked as background (spec §4.11).
func (m *Manager) MarkStopped(id int64, signal int) {
	if j, ok := m.get(id); ok {
		j.markStopped(signal)
	}
}

func (m *Manager) get(id int64) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.byID[id]
	return j, ok
}

// Wait blocks until job id completes and returns its final result
// (spec §4.10: "wait(id)").
func (m *Manager) Wait(id int64) (scope.ExecResult, error) {
	j, ok := m.get(id)
	if !ok {
		return scope.ExecResult{}, fmt.Errorf("job: no such job %d", id)
	}
	<-j.done
	j.mu.RLock()
	defer j.mu.RUnlock()
	return *j.result, nil
}

// Exists reports whether id names a tracked job (spec §4.10: "exists").
func (m *Manager) Exists(id int64) bool {
	_, ok := m.get(id)
	return ok
}

// ListIDs returns every known job id in registration order
// (spec §4.10: "list_ids").
func (m *Manager) ListIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, len(m.order))
	copy(out, m.order)
	return out
}

// GetStatusString reports the current status string for id
// (spec §4.10: "get_status_string").
func (m *Manager) GetStatusString(id int64) (string, bool) {
	j, ok := m.get(id)
	if !ok {
		return "", false
	}
	return j.statusString(), true
}

// GetCommand returns the command text recorded for id when it was
// registered (spec §4.10: "get_command"). Pipelines that
// pipeline.Runner starts with `&` are recorded as their stage command
// names joined by " | ", without arguments.
func (m *Manager) GetCommand(id int64) (string, bool) {
	j, ok := m.get(id)
	if !ok {
		return "", false
	}
	return j.Command, true
}

// ReadStdout returns the current stdout stream snapshot for id
// (spec §4.10: "read_stdout").
func (m *Manager) ReadStdout(id int64) ([]byte, bool) {
	j, ok := m.get(id)
	if !ok {
		return nil, false
	}
	return j.Stdout.Read(), true
}

// ReadStderr returns the current stderr stream snapshot for id
// (spec §4.10: "read_stderr").
func (m *Manager) ReadStderr(id int64) ([]byte, bool) {
	j, ok := m.get(id)
	if !ok {
		return nil, false
	}
	return j.Stderr.Read(), true
}

// Pgid returns the process group id recorded for id, for fg/bg/kill
// signal delivery (spec §4.11).
func (m *Manager) Pgid(id int64) (int, bool) {
	j, ok := m.get(id)
	if !ok || j.Pgid == 0 {
		return 0, false
	}
	return j.Pgid, true
}

// SetPgid records the owning process group once the pipeline runner spawns
// an external command for this job.
func (m *Manager) SetPgid(id int64, pgid int) {
	if j, ok := m.get(id); ok {
		j.mu.Lock()
		j.Pgid = pgid
		j.mu.Unlock()
	}
}

// JobIDs and Snapshot satisfy vfs.JobView so a Manager can back a JobFs
// mount directly.
func (m *Manager) JobIDs() []int64 { return m.ListIDs() }

// Snapshot returns the read-only view JobFs synthesizes under
// /v/jobs/{id}/ (spec §4.6).
func (m *Manager) Snapshot(id int64) (vfs.JobSnapshot, bool) {
	j, ok := m.get(id)
	if !ok {
		return vfs.JobSnapshot{}, false
	}
	return vfs.JobSnapshot{
		Command: j.Command,
		Status:  j.statusString(),
		Stdout:  j.Stdout.Read(),
		Stderr:  j.Stderr.Read(),
	}, true
}
