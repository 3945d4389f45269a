// Package selector assembles a budget-constrained SelectionResult from a
// full turn sequence and a list of scored (long system) turns: an
// always-keep tier plus a recency-adjusted greedy fill.
package selector

import (
	"sort"

	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/turn"
)

// Result is the outcome of a selection run.
type Result struct {
	KeptTurns    []*turn.Turn
	DroppedTurns []scorer.Scored
	KeptScored   []scorer.Scored

	UserTokens          int
	ShortSystemTokens   int
	ScoredKeptTokens    int
	ScoredDroppedTokens int
	TotalInputTokens    int
	Budget              int
}

// Select runs the three-tier budget selection algorithm:
//  1. always keep every user turn, every system turn with tokens <=
//     shortThreshold, and the most recent system turn regardless of length;
//  2. compute a 0.15*recency-adjusted score for every remaining scored turn;
//  3. greedily fill the remaining budget in adjusted-score order, ties
//     broken by larger index (more recent).
//
// If budget is already satisfied, or there are no scored turns, Select
// still runs the same algorithm and naturally keeps everything.
func Select(full []*turn.Turn, scored []scorer.Scored, tokenCounts map[int]int, budget, shortThreshold int) Result {
	result := Result{Budget: budget}
	total := len(full)

	scoredByIndex := make(map[int]scorer.Scored, len(scored))
	for _, s := range scored {
		scoredByIndex[s.Turn.Index] = s
	}

	var userTurns, shortSystem []*turn.Turn
	for _, t := range full {
		tc := tokenCounts[t.Index]
		result.TotalInputTokens += tc

		switch {
		case t.Kind == turn.User:
			userTurns = append(userTurns, t)
			result.UserTokens += tc
		case tc <= shortThreshold:
			shortSystem = append(shortSystem, t)
			result.ShortSystemTokens += tc
		}
	}

	usedTokens := result.UserTokens + result.ShortSystemTokens
	kept := make(map[int]struct{}, total)
	for _, t := range userTurns {
		kept[t.Index] = struct{}{}
	}
	for _, t := range shortSystem {
		kept[t.Index] = struct{}{}
	}

	var lastSystem *turn.Turn
	for i := len(full) - 1; i >= 0; i-- {
		if full[i].Kind == turn.System {
			lastSystem = full[i]
			break
		}
	}
	if lastSystem != nil {
		if _, already := kept[lastSystem.Index]; !already {
			kept[lastSystem.Index] = struct{}{}
			usedTokens += tokenCounts[lastSystem.Index]
			if s, ok := scoredByIndex[lastSystem.Index]; ok {
				result.KeptScored = append(result.KeptScored, s)
				result.ScoredKeptTokens += s.Tokens
			}
		}
	}

	type adjusted struct {
		score float64
		s     scorer.Scored
	}
	var candidates []adjusted
	for _, s := range scored {
		if _, already := kept[s.Turn.Index]; already {
			continue
		}
		recency := 0.0
		if total > 0 {
			recency = float64(s.Turn.Index) / float64(total)
		}
		candidates = append(candidates, adjusted{score: s.Score + 0.15*recency, s: s})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].s.Turn.Index > candidates[j].s.Turn.Index
	})

	remaining := budget - usedTokens
	for _, c := range candidates {
		if c.s.Tokens <= remaining {
			kept[c.s.Turn.Index] = struct{}{}
			result.KeptScored = append(result.KeptScored, c.s)
			result.ScoredKeptTokens += c.s.Tokens
			remaining -= c.s.Tokens
		} else {
			result.DroppedTurns = append(result.DroppedTurns, c.s)
			result.ScoredDroppedTokens += c.s.Tokens
		}
	}

	for _, t := range full {
		if _, ok := kept[t.Index]; ok {
			result.KeptTurns = append(result.KeptTurns, t)
		}
	}
	sort.Slice(result.KeptTurns, func(i, j int) bool {
		return result.KeptTurns[i].Index < result.KeptTurns[j].Index
	})

	return result
}
