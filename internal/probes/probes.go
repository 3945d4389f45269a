// Package probes implements the optional evidence-coverage evaluator:
// given a cached ProbeSet whose probes cite evidence turn indices, measure
// what fraction of each probe's evidence survived compaction. Probe
// *generation* (LLM-as-judge, question authoring) is an out-of-scope
// external collaborator; this package only consumes probes that already
// exist.
package probes

import (
	"math"
	"sort"
)

// Dimension is one of the closed set of probe dimensions, each with a fixed
// composite weight.
type Dimension string

const (
	ErrorSolution Dimension = "error_solution"
	Instruction   Dimension = "instruction"
	Progress      Dimension = "progress"
	Environment   Dimension = "environment"
	Noise         Dimension = "noise"
)

// DimensionWeight is the fixed-weight composite used to combine
// per-dimension mean coverages.
var DimensionWeight = map[Dimension]float64{
	ErrorSolution: 0.30,
	Instruction:   0.25,
	Progress:      0.25,
	Environment:   0.15,
	Noise:         0.05,
}

// dimensionOrder fixes iteration order so results are deterministic.
var dimensionOrder = []Dimension{ErrorSolution, Instruction, Progress, Environment, Noise}

// Difficulty is one of the closed set of probe difficulty tags.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// DifficultyWeight assigns NDCG gain weights by difficulty.
var DifficultyWeight = map[Difficulty]float64{
	Easy:   1.0,
	Medium: 2.0,
	Hard:   3.0,
}

// Probe is one evaluation question, tagged by dimension and difficulty,
// with a gold answer and the prefix turn indices that evidence it.
type Probe struct {
	ID            string
	Dimension     Dimension
	Question      string
	GoldAnswer    string
	EvidenceTurns []int
	Difficulty    Difficulty
}

// Set is a collection of probes generated for one (conversation, split
// ratio) pair, plus the metadata needed to re-locate its cache entry.
type Set struct {
	Probes     []Probe
	ConvHash   string
	SplitRatio float64
	Version    string
}

// ProbeCoverage is the per-probe coverage result.
type ProbeCoverage struct {
	ProbeID         string
	Dimension       Dimension
	Difficulty      Difficulty
	EvidenceTurns   []int
	KeptEvidence    []int
	DroppedEvidence []int
	Coverage        float64
}

// DimensionCoverage aggregates coverage for one dimension.
type DimensionCoverage struct {
	Dimension    Dimension
	Weight       float64
	MeanCoverage float64
	ProbeCount   int
	Coverages    []float64
}

// Result is the outcome of an evidence-coverage evaluation run.
type Result struct {
	Method       string
	Budget       int
	Dimensions   []DimensionCoverage
	Composite    float64
	NDCG         float64
	ProbeDetails []ProbeCoverage
	KeptTokens   int
	TotalTokens  int
}

// DimensionMap indexes Dimensions by name for lookup.
func (r Result) DimensionMap() map[Dimension]DimensionCoverage {
	m := make(map[Dimension]DimensionCoverage, len(r.Dimensions))
	for _, d := range r.Dimensions {
		m[d.Dimension] = d
	}
	return m
}

// Evaluate computes evidence-turn coverage for a compaction result. kept
// is the set of turn indices that survived compaction.
func Evaluate(set Set, kept map[int]struct{}, method string, budget int) Result {
	byDim := make(map[Dimension][]ProbeCoverage)
	var details []ProbeCoverage

	for _, p := range set.Probes {
		if len(p.EvidenceTurns) == 0 {
			continue
		}
		var keptIdx, droppedIdx []int
		for _, idx := range p.EvidenceTurns {
			if _, ok := kept[idx]; ok {
				keptIdx = append(keptIdx, idx)
			} else {
				droppedIdx = append(droppedIdx, idx)
			}
		}
		cov := ProbeCoverage{
			ProbeID:         p.ID,
			Dimension:       p.Dimension,
			Difficulty:      p.Difficulty,
			EvidenceTurns:   p.EvidenceTurns,
			KeptEvidence:    keptIdx,
			DroppedEvidence: droppedIdx,
			Coverage:        float64(len(keptIdx)) / float64(len(p.EvidenceTurns)),
		}
		details = append(details, cov)
		byDim[p.Dimension] = append(byDim[p.Dimension], cov)
	}

	var dims []DimensionCoverage
	type weighted = struct {
		coverage float64
		weight   float64
	}
	var allScored []weighted

	for _, dim := range dimensionOrder {
		inDim := byDim[dim]
		if len(inDim) == 0 {
			dims = append(dims, DimensionCoverage{Dimension: dim, Weight: DimensionWeight[dim]})
			continue
		}
		sum := 0.0
		coverages := make([]float64, len(inDim))
		for i, pc := range inDim {
			coverages[i] = pc.Coverage
			sum += pc.Coverage
		}
		mean := sum / float64(len(inDim))
		dims = append(dims, DimensionCoverage{
			Dimension:    dim,
			Weight:       DimensionWeight[dim],
			MeanCoverage: mean,
			ProbeCount:   len(inDim),
			Coverages:    coverages,
		})
		for _, pc := range inDim {
			allScored = append(allScored, weighted{coverage: pc.Coverage, weight: DifficultyWeight[pc.Difficulty]})
		}
	}

	composite := 0.0
	for _, d := range dims {
		composite += d.Weight * d.MeanCoverage
	}

	ndcg := 0.0
	if len(allScored) > 0 {
		actual := dcg(allScored)
		ideal := make([]weighted, len(allScored))
		for i, w := range allScored {
			ideal[i] = weighted{coverage: 1.0, weight: w.weight}
		}
		idealDCG := dcg(ideal)
		if idealDCG > 0 {
			ndcg = actual / idealDCG
		}
	}

	return Result{
		Method:       method,
		Budget:       budget,
		Dimensions:   dims,
		Composite:    composite,
		NDCG:         ndcg,
		ProbeDetails: details,
	}
}

func dcg(items []struct {
	coverage float64
	weight   float64
}) float64 {
	sorted := append([]struct {
		coverage float64
		weight   float64
	}(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].weight > sorted[j].weight })

	sum := 0.0
	for i, it := range sorted {
		sum += (it.coverage * it.weight) / math.Log2(float64(i)+2)
	}
	return sum
}
