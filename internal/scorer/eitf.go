package scorer

import (
	"context"
	"math"

	"github.com/codalotl/turnsieve/internal/entity"
	"github.com/codalotl/turnsieve/internal/turn"
)

// EITF scores system turns by entity-frequency x inverse-turn-frequency,
// length-normalized. It adapts TF-IDF to the entity vocabulary
// shared with SetCover.
type EITF struct {
	TextOf turn.TextOf
}

var _ Scorer = EITF{}

// entityStats computes, for every turn in full, its extracted entity pairs
// and per-pair document frequency (number of distinct turns containing it).
// Shared verbatim by EITF and SetCover, since both need the same ITF table.
func entityStats(full []*turn.Turn, textOf turn.TextOf) (turnEntities map[int][]entity.Pair, df map[entity.Pair]int) {
	turnEntities = make(map[int][]entity.Pair, len(full))
	df = make(map[entity.Pair]int)

	for _, t := range full {
		pairs := entity.Extract(textOf(t)).All()
		turnEntities[t.Index] = pairs
		for _, p := range pairs {
			df[p]++
		}
	}
	return turnEntities, df
}

func itfTable(n int, df map[entity.Pair]int) map[entity.Pair]float64 {
	itf := make(map[entity.Pair]float64, len(df))
	for p, count := range df {
		itf[p] = math.Log(float64(n) / float64(count))
	}
	return itf
}

// Score implements Scorer.
func (e EITF) Score(_ context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, _ Options) ([]Scored, error) {
	n := len(full)
	turnEntities, df := entityStats(full, e.TextOf)
	itf := itfTable(n, df)

	results := make([]Scored, 0, len(longSystemTurns))
	for _, t := range longSystemTurns {
		tokens := tokenCounts[t.Index]
		raw := 0.0
		for _, p := range turnEntities[t.Index] {
			raw += entity.Weight[p.Type] * itf[p]
		}
		raw /= math.Sqrt(math.Max(float64(tokens), 1))
		results = append(results, Scored{Turn: t, Score: raw, Tokens: tokens})
	}

	maxScore := 0.0
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1.0
	}
	for i := range results {
		results[i].Score /= maxScore
	}
	return results, nil
}
