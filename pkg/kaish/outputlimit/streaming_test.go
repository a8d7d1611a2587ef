package outputlimit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWriter_SmallOutputNeverSpills(t *testing.T) {
	l := New(Config{MaxBytes: 100, HeadBytes: 10, TailBytes: 10}, t.TempDir())
	w := NewStreamWriter(l)
	w.Write([]byte("hello "))
	w.Write([]byte("world"))

	out, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestStreamWriter_OverBudgetSpillsAndTruncates(t *testing.T) {
	l := New(Config{MaxBytes: 10, HeadBytes: 3, TailBytes: 3}, t.TempDir())
	w := NewStreamWriter(l)
	w.Write([]byte(strings.Repeat("a", 20)))
	w.Write([]byte(strings.Repeat("b", 20)))

	out, err := w.Finish()
	require.NoError(t, err)
	assert.Contains(t, out, "[output truncated:")
	assert.True(t, strings.HasPrefix(out, "aaa"))
}
