package outputlimit

import (
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// phaseWindow is how long Phase 1 of the streaming path accumulates in
// memory before deciding whether to spill (spec §4.9: "accumulate up to
// 1 s in memory").
const phaseWindow = time.Second

// StreamWriter implements the two-phase streaming spill path for external
// commands with a child stdout/stderr pipe (spec §4.9 "Streaming"):
// buffer in memory for up to 1s, then either return the buffered bytes
// untouched (if small and EOF already reached) or fall over to writing
// directly to a spill file for the remainder of the stream.
type StreamWriter struct {
	limiter   *Limiter
	buf       []byte
	spilling  bool
	spillFile *os.File
	spillPath string
	start     time.Time
	total     int64
	writeErr  error
}

// NewStreamWriter begins phase 1 for a single command's output stream.
func NewStreamWriter(l *Limiter) *StreamWriter {
	return &StreamWriter{limiter: l, start: time.Now()}
}

// Write feeds one chunk of child output through the two-phase policy.
func (w *StreamWriter) Write(chunk []byte) {
	if w.writeErr != nil {
		return
	}
	w.total += int64(len(chunk))

	if !w.spilling {
		w.buf = append(w.buf, chunk...)
		overBudget := w.limiter.Config.MaxBytes > 0 && len(w.buf) > w.limiter.Config.MaxBytes
		overTime := time.Since(w.start) > phaseWindow
		if overBudget || overTime {
			w.beginSpill()
		}
		return
	}

	if w.spillFile != nil {
		if _, err := w.spillFile.Write(chunk); err != nil {
			w.writeErr = err
		}
	}
}

func (w *StreamWriter) beginSpill() {
	w.spilling = true
	if err := os.MkdirAll(w.limiter.SpillDir, 0o755); err != nil {
		w.writeErr = err
		return
	}
	path := w.limiter.nextSpillPath(time.Now())
	f, err := os.Create(path)
	if err != nil {
		w.writeErr = err
		return
	}
	if _, err := f.Write(w.buf); err != nil {
		w.writeErr = err
		_ = f.Close()
		return
	}
	w.spillFile = f
	w.spillPath = path
}

// Finish closes any open spill file and produces the final output string
// per spec §4.9: untouched buffered bytes if never spilled, otherwise the
// truncated head+tail+pointer message with the tail re-read from disk.
func (w *StreamWriter) Finish() (string, error) {
	if w.writeErr != nil {
		return "", &SpillError{Path: w.spillPath, Err: w.writeErr}
	}
	if !w.spilling {
		return string(w.buf), nil
	}
	if w.spillFile != nil {
		if err := w.spillFile.Close(); err != nil {
			return "", &SpillError{Path: w.spillPath, Err: err}
		}
	}
	tail, err := readTail(w.spillPath, w.limiter.Config.TailBytes)
	if err != nil {
		return "", &SpillError{Path: w.spillPath, Err: err}
	}
	head := headBoundary(string(w.buf), w.limiter.Config.HeadBytes)
	return formatTruncated(head, tail, w.total, w.spillPath), nil
}

// formatTruncated assembles the pointer message from pre-split head/tail
// strings, used when the tail must be re-read from a spill file rather
// than sliced from an in-memory buffer.
func formatTruncated(head, tail string, total int64, path string) string {
	return head + "\n...\n" + tail + "\n[output truncated: " + humanize.Comma(total) + " bytes total — full output at " + path + "]"
}

func readTail(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	readLen := int64(n)
	if readLen > size {
		readLen = size
	}
	buf := make([]byte, readLen)
	if _, err := f.Seek(size-readLen, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return "", err
	}
	return tailBoundary(string(buf), n), nil
}
