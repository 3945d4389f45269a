package probes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConversation(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversation.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestConvHash_DeterministicForSameContent(t *testing.T) {
	path := writeTempConversation(t, "some conversation content that is short")
	h1, err := ConvHash(path, 0.70)
	require.NoError(t, err)
	h2, err := ConvHash(path, 0.70)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 16)
}

func TestConvHash_DiffersBySplitRatio(t *testing.T) {
	path := writeTempConversation(t, "identical content")
	h1, err := ConvHash(path, 0.70)
	require.NoError(t, err)
	h2, err := ConvHash(path, 0.80)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestConvHash_HandlesLargeFiles(t *testing.T) {
	big := make([]byte, 50_000)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	path := writeTempConversation(t, string(big))
	h, err := ConvHash(path, 0.70)
	require.NoError(t, err)
	require.Len(t, h, 16)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	set := Set{
		Probes: []Probe{
			{ID: "p1", Dimension: ErrorSolution, Difficulty: Easy, Question: "why did it fail?", GoldAnswer: "nil pointer", EvidenceTurns: []int{3, 7}},
		},
		ConvHash:   "abcdef0123456789",
		SplitRatio: 0.70,
		Version:    Version,
	}

	require.NoError(t, Save(dir, set))

	loaded, ok, err := Load(dir, set.ConvHash, set.SplitRatio, set.Version)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, set.Probes, loaded.Probes)
	require.Equal(t, set.ConvHash, loaded.ConvHash)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Load(dir, "deadbeefdeadbeef", 0.70, Version)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoad_CorruptFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	convHash := "0123456789abcdef"
	path := CachePath(dir, convHash, Version)
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	_, ok, err := Load(dir, convHash, 0.70, Version)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestCachePath_MatchesFlatNamingPattern(t *testing.T) {
	path := CachePath("/tmp/cache", "abc123", "2")
	require.Equal(t, "/tmp/cache/probes_abc123_v2.json", path)
}
