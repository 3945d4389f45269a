// Package coverage implements the entity-coverage evaluator: it
// splits a conversation, compacts the prefix with a chosen scoring method,
// and measures what fraction of entities referenced in the suffix survived
// in the kept prefix.
package coverage

import (
	"context"
	"strings"

	"github.com/codalotl/turnsieve/internal/entity"
	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/turn"
)

// ErrDegenerateSplit is returned when a split leaves an empty prefix or
// suffix.
var ErrDegenerateSplit = health.NewErr("split produced empty prefix or suffix")

// ErrNoSuffixEntities is returned when the suffix contains no extractable
// entities.
var ErrNoSuffixEntities = health.NewErr("no entities extracted from suffix")

// TypeCoverage is the per-type coverage breakdown.
type TypeCoverage struct {
	Covered  int
	Total    int
	Coverage float64
	Weight   float64
}

// Result is the outcome of one entity-coverage evaluation run.
type Result struct {
	Method string
	Budget int

	Coverage         float64
	WeightedCoverage float64
	TypeCoverage     map[entity.Type]TypeCoverage

	TotalTokens int
	KeptTokens  int
	Compression float64

	SuffixEntityCount int
	PrefixEntityCount int
	CoveredCount      int
}

// F1 is the harmonic mean of weighted coverage and compression efficiency
// (1 - compression).
func (r Result) F1() float64 {
	efficiency := 1.0 - r.Compression
	if r.WeightedCoverage+efficiency == 0 {
		return 0
	}
	return 2 * r.WeightedCoverage * efficiency / (r.WeightedCoverage + efficiency)
}

// Split chooses split index s = first user-turn
// index >= floor(ratio*N); prefix = turns[0:s), re-indexed; suffix =
// turns[s:N), left alone. Returns ErrDegenerateSplit if either side would be
// empty.
func Split(full []*turn.Turn, ratio float64) (prefix *turn.Sequence, suffix []*turn.Turn, err error) {
	n := len(full)
	s := int(float64(n) * ratio)
	for s < n && full[s].Kind != turn.User {
		s++
	}
	if s == 0 || s >= n {
		return nil, nil, health.Wrap("degenerate split", ErrDegenerateSplit, "split_index", s, "n", n, "ratio", ratio)
	}
	return turn.Reindexed(full[:s]), full[s:], nil
}

// SuffixEntities extracts entities over the concatenated text of the
// suffix's system turns only.
func SuffixEntities(suffix []*turn.Turn, textOf turn.TextOf) *entity.Set {
	var texts []string
	for _, t := range suffix {
		if t.Kind == turn.System {
			texts = append(texts, textOf(t))
		}
	}
	return entity.Extract(strings.Join(texts, "\n"))
}

// Evaluate runs the full entity-coverage pipeline: split,
// extract suffix entities, score+select the prefix with s, and compute
// coverage of the suffix's entities by the kept prefix turns.
func Evaluate(ctx context.Context, full []*turn.Turn, method string, s scorer.Scorer, textOf turn.TextOf, count func(string) int, opts scorer.Options, splitRatio float64) (Result, error) {
	prefixSeq, suffix, err := Split(full, splitRatio)
	if err != nil {
		return Result{}, err
	}
	prefix := prefixSeq.Turns()

	suffixEntities := SuffixEntities(suffix, textOf)
	if suffixEntities.Count() == 0 {
		return Result{}, health.Wrap("no entities extracted from suffix", ErrNoSuffixEntities, "method", method)
	}

	tokenCounts := scorer.TokenCounts(prefix, textOf, count)
	totalPrefixTokens := 0
	for _, tc := range tokenCounts {
		totalPrefixTokens += tc
	}

	longSystem := scorer.LongSystemTurns(prefix, tokenCounts, opts.ShortThreshold)

	scored, err := s.Score(ctx, prefix, longSystem, tokenCounts, opts)
	if err != nil {
		return Result{}, health.Wrap("scoring failed", err, "method", method)
	}

	selResult := selector.Select(prefix, scored, tokenCounts, opts.Budget, opts.ShortThreshold)

	var keptTexts []string
	for _, t := range selResult.KeptTurns {
		keptTexts = append(keptTexts, textOf(t))
	}
	keptEntities := entity.Extract(strings.Join(keptTexts, "\n"))

	unweighted, weighted, typeBreakdown := computeCoverage(suffixEntities, keptEntities)

	compression := 0.0
	if totalPrefixTokens > 0 {
		compression = float64(selResult.ScoredKeptTokens+selResult.UserTokens+selResult.ShortSystemTokens) / float64(totalPrefixTokens)
	}

	return Result{
		Method:            method,
		Budget:            opts.Budget,
		Coverage:          unweighted,
		WeightedCoverage:  weighted,
		TypeCoverage:      typeBreakdown,
		TotalTokens:       totalPrefixTokens,
		KeptTokens:        selResult.ScoredKeptTokens + selResult.UserTokens + selResult.ShortSystemTokens,
		Compression:       compression,
		SuffixEntityCount: suffixEntities.Count(),
		PrefixEntityCount: keptEntities.Count(),
		CoveredCount:      coveredCount(suffixEntities, keptEntities),
	}, nil
}

func computeCoverage(suffix, kept *entity.Set) (unweighted, weighted float64, breakdown map[entity.Type]TypeCoverage) {
	suffixAll := suffix.All()
	if len(suffixAll) == 0 {
		return 1.0, 1.0, map[entity.Type]TypeCoverage{}
	}

	keptSet := make(map[entity.Pair]struct{}, kept.Count())
	for _, p := range kept.All() {
		keptSet[p] = struct{}{}
	}

	covered := 0
	for _, p := range suffixAll {
		if _, ok := keptSet[p]; ok {
			covered++
		}
	}
	unweighted = float64(covered) / float64(len(suffixAll))

	breakdown = make(map[entity.Type]TypeCoverage)
	var totalWeight, coveredWeight float64

	for _, ty := range entityTypes() {
		suffixOfType := suffix.Values(ty)
		if len(suffixOfType) == 0 {
			continue
		}
		coveredOfType := 0
		for _, v := range suffixOfType {
			if _, ok := keptSet[entity.Pair{Type: ty, Value: v}]; ok {
				coveredOfType++
			}
		}
		w := entity.Weight[ty]
		totalWeight += w * float64(len(suffixOfType))
		coveredWeight += w * float64(coveredOfType)

		breakdown[ty] = TypeCoverage{
			Covered:  coveredOfType,
			Total:    len(suffixOfType),
			Coverage: float64(coveredOfType) / float64(len(suffixOfType)),
			Weight:   w,
		}
	}

	weighted = 1.0
	if totalWeight > 0 {
		weighted = coveredWeight / totalWeight
	}
	return unweighted, weighted, breakdown
}

func coveredCount(suffix, kept *entity.Set) int {
	keptSet := make(map[entity.Pair]struct{}, kept.Count())
	for _, p := range kept.All() {
		keptSet[p] = struct{}{}
	}
	n := 0
	for _, p := range suffix.All() {
		if _, ok := keptSet[p]; ok {
			n++
		}
	}
	return n
}

func entityTypes() []entity.Type {
	return []entity.Type{
		entity.FilePath, entity.URL, entity.Port, entity.HTTPStatus,
		entity.Exception, entity.Function, entity.ClassName, entity.Package,
		entity.Command, entity.EnvVar, entity.Error,
	}
}
