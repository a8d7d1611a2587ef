package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedStream_WriteExactlyMaxNoEviction(t *testing.T) {
	s := New(5)
	s.Write([]byte("abcde"))
	require.Equal(t, "abcde", string(s.Read()))
	stats := s.Stats()
	assert.EqualValues(t, 0, stats.BytesEvicted)
	assert.Equal(t, 5, stats.Current)
}

func TestBoundedStream_WriteBeyondMaxEvictsFromFront(t *testing.T) {
	s := New(5)
	s.Write([]byte("abc"))
	s.Write([]byte("de"))
	s.Write([]byte("fg"))
	assert.Equal(t, "cdefg", string(s.Read()))
}

func TestBoundedStream_SingleWriteLargerThanMaxKeepsTail(t *testing.T) {
	s := New(4)
	s.Write([]byte("abcdefgh"))
	assert.Equal(t, "efgh", string(s.Read()))
}

func TestBoundedStream_ClosedDropsWrites(t *testing.T) {
	s := New(10)
	s.Write([]byte("a"))
	s.Close()
	s.Write([]byte("b"))
	assert.Equal(t, "a", string(s.Read()))
	assert.True(t, s.Stats().Closed)
}

func TestBoundedStream_InvariantLenMatchesWrittenMinusEvicted(t *testing.T) {
	s := New(3)
	for _, chunk := range []string{"a", "bb", "ccc", "d"} {
		s.Write([]byte(chunk))
	}
	stats := s.Stats()
	assert.LessOrEqual(t, stats.Current, stats.Max)
	assert.EqualValues(t, stats.TotalWritten-stats.BytesEvicted, stats.Current)
}
