// Package outputlimit implements the output-size safety net described in
// spec §4.9 (component C11): oversized command output is spilled to disk
// and replaced with a head+tail truncation plus a pointer to the full
// bytes, so downstream agents never silently receive partial output
// mislabeled as complete.
package outputlimit

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Config mirrors the Rust struct named in spec §4.9.
type Config struct {
	MaxBytes  int // <= 0 means disabled
	HeadBytes int
	TailBytes int
}

// DefaultConfig matches the conservative defaults implied by the seed
// scenario in spec §8 (head/tail comfortably smaller than typical
// terminal output).
func DefaultConfig() Config {
	return Config{MaxBytes: 200 * 1024, HeadBytes: 4096, TailBytes: 4096}
}

// spillCounter is the process-wide sequence number spec §9 calls out as
// the only process-global mutable state ("Global mutable state. Only the
// per-process spill-counter is process-wide").
var spillCounter int64

// SpillError reports a failure to persist an oversized result to disk.
// Per spec §4.9 this must fail the command outright rather than silently
// truncate ("Fail-fast on spill I/O error").
type SpillError struct {
	Path string
	Err  error
}

func (e *SpillError) Error() string {
	return fmt.Sprintf("failed to write spill file %s: %s", e.Path, e.Err)
}

func (e *SpillError) Unwrap() error { return e.Err }

// Limiter applies Config against assembled output, spilling to spillDir.
type Limiter struct {
	Config   Config
	SpillDir string
}

// New creates a Limiter writing spill files under spillDir.
func New(cfg Config, spillDir string) *Limiter {
	return &Limiter{Config: cfg, SpillDir: spillDir}
}

// SpillCount reports how many spill files this process has written so
// far, backing the `kaish-output-limit status` builtin.
func SpillCount() int64 {
	return atomic.LoadInt64(&spillCounter)
}

// nextSpillPath builds <spill_dir>/spill-<secs>.<nanos>-<pid>-<seq>.txt
// (spec §6).
func (l *Limiter) nextSpillPath(now time.Time) string {
	seq := atomic.AddInt64(&spillCounter, 1)
	name := fmt.Sprintf("spill-%d.%d-%d-%d.txt", now.Unix(), now.Nanosecond(), os.Getpid(), seq)
	return filepath.Join(l.SpillDir, name)
}

// ApplyPostHoc implements the "post-hoc" path of spec §4.9: if out exceeds
// MaxBytes, the full bytes are written to a spill file and out is replaced
// with a head+tail truncation plus a pointer message. now is injected so
// callers can keep spill file naming deterministic in tests.
func (l *Limiter) ApplyPostHoc(out string, now time.Time) (string, error) {
	if l.Config.MaxBytes <= 0 || len(out) <= l.Config.MaxBytes {
		return out, nil
	}
	path := l.nextSpillPath(now)
	if err := os.MkdirAll(l.SpillDir, 0o755); err != nil {
		return "", &SpillError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", &SpillError{Path: path, Err: err}
	}
	return l.truncatedMessage(out, len(out), path), nil
}

// truncatedMessage builds the "{head}\n...\n{tail}\n[output truncated: N
// bytes total — full output at {path}]" string, honouring UTF-8 char
// boundaries on both ends (spec §4.9).
func (l *Limiter) truncatedMessage(out string, totalBytes int, path string) string {
	head := headBoundary(out, l.Config.HeadBytes)
	tail := tailBoundary(out, l.Config.TailBytes)
	return fmt.Sprintf("%s\n...\n%s\n[output truncated: %s bytes total — full output at %s]",
		head, tail, humanize.Comma(int64(totalBytes)), path)
}

// headBoundary returns the first n bytes of s, trimmed back to the
// nearest rune boundary so it never splits a multi-byte UTF-8 sequence.
func headBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// tailBoundary returns the last n bytes of s, advanced forward to the
// nearest rune boundary.
func tailBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// ParseSize parses the `<digits>[K|M]` size grammar (K = 1024 bytes,
// M = 1024*1024 bytes, either case). The kaish-output-limit builtin only
// implements `status` and does not call it.
func ParseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := 1
	suffix := s[len(s)-1]
	digits := s
	switch suffix {
	case 'K', 'k':
		mult = 1024
		digits = s[:len(s)-1]
	case 'M', 'm':
		mult = 1024 * 1024
		digits = s[:len(s)-1]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * mult, nil
}
