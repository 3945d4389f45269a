package scorer

import (
	"context"

	"github.com/codalotl/turnsieve/internal/automaton"
	"github.com/codalotl/turnsieve/internal/turn"
)

// Dedup scores system turns by unique-content ratio, using a suffix
// automaton built once over the whole conversation.
type Dedup struct {
	TextOf turn.TextOf
}

var _ Scorer = Dedup{}

const separator = '\x00'

// Score implements Scorer.
func (d Dedup) Score(_ context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, opts Options) ([]Scored, error) {
	a := automaton.New()
	spans := make(map[int][2]int, len(full))
	pos := 0

	for _, t := range full {
		text := []rune(d.TextOf(t))
		start := pos
		for _, c := range text {
			a.Extend(c)
			pos++
		}
		a.Extend(separator)
		pos++
		spans[t.Index] = [2]int{start, start + len(text)}
	}
	a.PropagateCounts()

	minRepeat := opts.MinRepeatLen
	if minRepeat <= 0 {
		minRepeat = 64
	}

	results := make([]Scored, 0, len(longSystemTurns))
	for _, t := range longSystemTurns {
		text := []rune(d.TextOf(t))
		results = append(results, Scored{
			Turn:   t,
			Score:  uniqueRatio(a, text, minRepeat),
			Tokens: tokenCounts[t.Index],
		})
	}
	return results, nil
}

// uniqueRatio computes the fraction of text not covered by a repeated
// (count >= 2) substring of length >= minRepeatLen, via a one-pass interval
// sweep over MatchRepeatedLength's output.
func uniqueRatio(a *automaton.Automaton, text []rune, minRepeatLen int) float64 {
	if len(text) == 0 {
		return 1.0
	}

	matchLens := a.MatchRepeatedLength(text)
	duplicated := 0
	coveredUntil := -1

	for i, ml := range matchLens {
		if ml < minRepeatLen {
			continue
		}
		start := i - ml + 1
		if start > coveredUntil {
			duplicated += ml
		} else if i > coveredUntil {
			duplicated += i - coveredUntil
		}
		if i > coveredUntil {
			coveredUntil = i
		}
	}

	unique := len(text) - duplicated
	return float64(unique) / float64(len(text))
}
