package outputlimit

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_ApplyPostHocUnderBudgetPassesThrough(t *testing.T) {
	l := New(Config{MaxBytes: 100, HeadBytes: 10, TailBytes: 10}, t.TempDir())
	out, err := l.ApplyPostHoc("short", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "short", out)
}

func TestLimiter_ApplyPostHocOverBudgetSpills(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{MaxBytes: 20, HeadBytes: 5, TailBytes: 5}, dir)
	long := strings.Repeat("x", 100)

	out, err := l.ApplyPostHoc(long, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out, "[output truncated:")
	assert.Contains(t, out, "100 bytes total")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	spilled, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Equal(t, long, string(spilled))
}

func TestLimiter_ApplyPostHocIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{MaxBytes: 20, HeadBytes: 5, TailBytes: 5}, dir)
	long := strings.Repeat("y", 50)

	now := time.Unix(1000, 0)
	out1, err := l.ApplyPostHoc(long, now)
	require.NoError(t, err)
	out2, err := l.ApplyPostHoc(long, now)
	require.NoError(t, err)

	// Spill filenames include a monotonically increasing counter so the
	// two paths differ, but the head/tail/size portion must match.
	prefix1 := strings.SplitN(out1, " — full output at ", 2)[0]
	prefix2 := strings.SplitN(out2, " — full output at ", 2)[0]
	assert.Equal(t, prefix1, prefix2)
}

func TestParseSize(t *testing.T) {
	cases := map[string]int{
		"100":  100,
		"4K":   4096,
		"1M":   1024 * 1024,
		"2k":   2048,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestParseSize_Invalid(t *testing.T) {
	_, err := ParseSize("abc")
	assert.Error(t, err)
}

func TestHeadTailBoundary_RespectsUTF8(t *testing.T) {
	s := "a€b" // € is 3 bytes, spans index 1-3
	head := headBoundary(s, 2)
	// must not split the multi-byte rune; back off to a safe boundary
	assert.True(t, len(head) <= 2)

	tail := tailBoundary(s, 2)
	assert.LessOrEqual(t, len(tail), 4)
}
