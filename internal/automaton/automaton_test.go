package automaton

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func build(s string) *Automaton {
	a := New()
	for _, c := range s {
		a.Extend(c)
	}
	a.PropagateCounts()
	return a
}

func TestAutomaton_RepeatedSubstringHasCountAtLeastTwo(t *testing.T) {
	a := build("abcabcabc")
	require.GreaterOrEqual(t, a.CountAt([]rune("abc")), 2)
	require.GreaterOrEqual(t, a.CountAt([]rune("bca")), 2)
}

func TestAutomaton_UniqueSubstringHasCountOne(t *testing.T) {
	a := build("abcdef")
	require.Equal(t, 1, a.CountAt([]rune("abc")))
}

func TestAutomaton_SingleCharAlphabetCountEqualsLength(t *testing.T) {
	n := 37
	s := make([]byte, n)
	for i := range s {
		s[i] = 'a'
	}
	a := build(string(s))
	require.Equal(t, n, a.CountAt([]rune("a")))
}

func TestAutomaton_MatchRepeatedLength(t *testing.T) {
	a := build("foofoobar")
	lens := a.MatchRepeatedLength([]rune("foofoobar"))
	require.Len(t, lens, 9)
	// position 5 ends "foofoo" repeated prefix "foo"; by position 5 (0-indexed,
	// char 'o' of second "foo") the longest repeated run ending there is "foo".
	require.GreaterOrEqual(t, lens[5], 3)
}

func TestAutomaton_RandomSingleCharAlphabet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 1 + rng.Intn(200)
	s := make([]byte, n)
	for i := range s {
		s[i] = 'a'
	}
	a := build(string(s))
	require.Equal(t, n, a.CountAt([]rune("a")))
}
