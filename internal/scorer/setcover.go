package scorer

import (
	"context"
	"math"

	"github.com/codalotl/turnsieve/internal/entity"
	"github.com/codalotl/turnsieve/internal/turn"
)

// SetCover scores system turns via greedy marginal-entity-coverage
// maximization, with boundary-proximity and recency weighting.
// Unlike EITF, it directly optimizes coverage breadth: five turns that all
// mention the same file path only ever contribute that file path once.
type SetCover struct {
	TextOf turn.TextOf
}

var _ Scorer = SetCover{}

// Score implements Scorer.
func (s SetCover) Score(_ context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, _ Options) ([]Scored, error) {
	n := len(full)
	turnEntities, df := entityStats(full, s.TextOf)
	itf := itfTable(n, df)

	boundaryStart := int(float64(n) * 0.70)
	maxPos := make(map[entity.Pair]int, len(df))
	for _, t := range full {
		for _, p := range turnEntities[t.Index] {
			if t.Index > maxPos[p] {
				maxPos[p] = t.Index
			}
		}
	}

	weight := make(map[entity.Pair]float64, len(df))
	for p := range df {
		typeW := entity.Weight[p.Type]
		proximity := 1.0
		if mp := maxPos[p]; mp >= boundaryStart {
			denom := math.Max(float64(n-boundaryStart), 1)
			frac := float64(mp-boundaryStart) / denom
			proximity = 1.0 + 3.0*frac
		}
		weight[p] = typeW * itf[p] * proximity
	}

	longSet := make(map[int]struct{}, len(longSystemTurns))
	for _, t := range longSystemTurns {
		longSet[t.Index] = struct{}{}
	}

	covered := make(map[entity.Pair]struct{})
	for _, t := range full {
		if _, isLong := longSet[t.Index]; isLong {
			continue
		}
		for _, p := range turnEntities[t.Index] {
			covered[p] = struct{}{}
		}
	}

	type candidate struct {
		index    int
		entities []entity.Pair
	}
	candidates := make(map[int]candidate, len(longSystemTurns))
	for _, t := range longSystemTurns {
		candidates[t.Index] = candidate{index: t.Index, entities: turnEntities[t.Index]}
	}

	var selectionOrder []int
	for len(candidates) > 0 {
		bestIdx := -1
		bestScore := -1.0

		for idx, c := range candidates {
			var newEntities []entity.Pair
			for _, p := range c.entities {
				if _, ok := covered[p]; !ok {
					newEntities = append(newEntities, p)
				}
			}
			if len(newEntities) == 0 {
				continue
			}

			marginal := 0.0
			for _, p := range newEntities {
				marginal += weight[p]
			}
			tokens := math.Max(float64(tokenCounts[idx]), 1)
			efficiency := marginal / math.Sqrt(tokens)

			recency := 0.0
			if n > 0 {
				recency = float64(idx) / float64(n)
			}
			score := efficiency + 0.3*recency

			if score > bestScore || (score == bestScore && (bestIdx < 0 || idx < bestIdx)) {
				bestScore = score
				bestIdx = idx
			}
		}

		if bestIdx < 0 {
			break
		}

		selectionOrder = append(selectionOrder, bestIdx)
		for _, p := range candidates[bestIdx].entities {
			covered[p] = struct{}{}
		}
		delete(candidates, bestIdx)
	}

	rank := make(map[int]int, len(selectionOrder))
	for i, idx := range selectionOrder {
		rank[idx] = i
	}
	nSelected := len(selectionOrder)

	results := make([]Scored, 0, len(longSystemTurns))
	for _, t := range longSystemTurns {
		tokens := tokenCounts[t.Index]

		var score float64
		if r, ok := rank[t.Index]; ok {
			var base float64
			if nSelected > 1 {
				base = 1.0 - 0.9*(float64(r)/float64(nSelected-1))
			} else {
				base = 1.0
			}
			recency := 0.0
			if n > 0 {
				recency = float64(t.Index) / float64(n)
			}
			score = math.Max(base-0.15*recency, 0.01)
		}

		results = append(results, Scored{Turn: t, Score: score, Tokens: tokens})
	}
	return results, nil
}
