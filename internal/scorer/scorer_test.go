package scorer

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codalotl/turnsieve/internal/turn"
)

func textOf(t *turn.Turn) string {
	var out string
	for _, r := range t.Records {
		out += r.(string)
	}
	return out
}

func countWords(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func buildConversation(systemTexts []string) ([]*turn.Turn, []*turn.Turn, map[int]int) {
	var b turn.Builder
	for _, s := range systemTexts {
		b.AppendUser("go on")
		b.AppendSystem(s)
	}
	seq := b.Build()
	full := seq.Turns()

	tokenCounts := make(map[int]int, len(full))
	for _, t := range full {
		tokenCounts[t.Index] = countWords(textOf(t))
	}
	long := LongSystemTurns(full, tokenCounts, 0)
	return full, long, tokenCounts
}

func TestRegistry_UnknownMethod(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegistry_LookupRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("dedup", Dedup{TextOf: textOf})
	s, err := r.Lookup("dedup")
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestDedup_ScoreBounds(t *testing.T) {
	full, long, tokenCounts := buildConversation([]string{
		strRepeat("foo bar baz quux ", 60),
		"totally unique content about a gopher compiling a program",
	})
	d := Dedup{TextOf: textOf}
	results, err := d.Score(context.Background(), full, long, tokenCounts, DefaultOptions())
	require.NoError(t, err)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Score, 0.0)
		require.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestDedup_DropsRepeatedContent(t *testing.T) {
	repeat := strRepeat("foo/bar/baz/quux.py ", 200)
	var uniqueWords []string
	for i := 0; i < 300; i++ {
		uniqueWords = append(uniqueWords, "gopher"+strconv.Itoa(i*7919))
	}
	unique := strings.Join(uniqueWords, " ")

	full, long, tokenCounts := buildConversation([]string{repeat, repeat, repeat, repeat, unique})
	d := Dedup{TextOf: textOf}
	results, err := d.Score(context.Background(), full, long, tokenCounts, DefaultOptions())
	require.NoError(t, err)

	var uniqueScore float64
	var repeatScores []float64
	for _, r := range results {
		if r.Turn.Index == long[len(long)-1].Index {
			uniqueScore = r.Score
		} else {
			repeatScores = append(repeatScores, r.Score)
		}
	}
	require.Greater(t, uniqueScore, 0.9)
	for _, rs := range repeatScores {
		require.Less(t, rs, uniqueScore)
	}
}

func TestEITF_NormalizesToMaxOne(t *testing.T) {
	full, long, tokenCounts := buildConversation([]string{
		"error in /home/user/project/src/auth.py raised ValueError",
		"nothing interesting happening here at all today",
	})
	e := EITF{TextOf: textOf}
	results, err := e.Score(context.Background(), full, long, tokenCounts, DefaultOptions())
	require.NoError(t, err)

	max := 0.0
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	require.InDelta(t, 1.0, max, 1e-9)
}

func TestEITF_RewardsRareEntity(t *testing.T) {
	full, long, tokenCounts := buildConversation([]string{
		"the crash trace points at /home/user/project/src/auth.py exactly once",
		"print( print( print( print( print( print( print( print( print( print(",
	})
	e := EITF{TextOf: textOf}
	results, err := e.Score(context.Background(), full, long, tokenCounts, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byIndex := map[int]float64{}
	for _, r := range results {
		byIndex[r.Turn.Index] = r.Score
	}
	require.Greater(t, byIndex[long[0].Index], byIndex[long[1].Index])
}

func TestSetCover_PrefersHigherCoverageTurn(t *testing.T) {
	full, long, tokenCounts := buildConversation([]string{
		"file /a/b.py",
		"file /a/b.py",
		"file /a/b.py",
		"file /c/d.py and file /e/f.py too",
	})
	sc := SetCover{TextOf: textOf}
	results, err := sc.Score(context.Background(), full, long, tokenCounts, DefaultOptions())
	require.NoError(t, err)

	var twoEntityScore float64
	for _, r := range results {
		if r.Turn.Index == long[len(long)-1].Index {
			twoEntityScore = r.Score
		}
	}
	for _, r := range results {
		if r.Turn.Index != long[len(long)-1].Index {
			require.GreaterOrEqual(t, twoEntityScore, r.Score)
		}
	}
}

func TestBuildQuery_LastThreeUsersTailTruncated(t *testing.T) {
	var b turn.Builder
	b.AppendUser("one")
	b.AppendSystem("a")
	b.AppendUser("two")
	b.AppendSystem("b")
	b.AppendUser("three")
	b.AppendSystem("c")
	b.AppendUser("four")
	seq := b.Build()

	q := BuildQuery(seq.User(), textOf, 4000)
	require.NotContains(t, q, "one")
	require.Contains(t, q, "two")
	require.Contains(t, q, "four")
}

func strRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
