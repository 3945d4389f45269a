package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCount_EmptyIsZero(t *testing.T) {
	require.Equal(t, 0, Count(""))
}

func TestCount_Deterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	a := Count(text)
	b := Count(text)
	require.Equal(t, a, b)
	require.Greater(t, a, 0)
}

func TestCount_MonotoneOnAverage(t *testing.T) {
	short := Count("hello")
	long := Count("hello, this is a substantially longer piece of text than the first one")
	require.Greater(t, long, short)
}

func TestWarm_NoError(t *testing.T) {
	require.NoError(t, Warm())
}
