// Package llmmethod wraps an out-of-scope LLM summarizer into the
// selector's result shape for the `claude-code` method. That method is not
// a Scorer and is not registered in the scorer registry; callers dispatch
// to it by name. The summarization call itself — prompting and API access — is an external
// collaborator; only the wrapping contract lives here.
package llmmethod

import (
	"context"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/turn"
)

// Summarizer produces a single summary string for a turn sequence. It is
// the out-of-scope collaborator: implementations call out to an LLM.
type Summarizer interface {
	Summarize(ctx context.Context, turns []*turn.Turn) (string, error)
}

// ErrSummarizer wraps any failure from a Summarizer call.
var ErrSummarizer = health.NewErr("llm summarizer failed")

// Method adapts a Summarizer into the shape a selector.Result takes: a
// synthetic single system turn holding the summary, plus every user turn.
// No original system turn is kept, including the most recent one.
type Method struct {
	Summarizer Summarizer
	TextOf     turn.TextOf
	Count      func(string) int
}

// Run summarizes full and returns a SelectionResult containing every user
// turn plus one synthetic system turn holding the summary.
// The synthetic turn is assigned an index one past the last turn in full
// so it sorts after everything else the caller already has.
func (m Method) Run(ctx context.Context, full []*turn.Turn) (selector.Result, error) {
	summary, err := m.Summarizer.Summarize(ctx, full)
	if err != nil {
		return selector.Result{}, health.Wrap("summarization failed", ErrSummarizer, "cause", err.Error())
	}

	syntheticIndex := 0
	for _, t := range full {
		if t.Index >= syntheticIndex {
			syntheticIndex = t.Index + 1
		}
	}
	synthetic := &turn.Turn{Kind: turn.System, Index: syntheticIndex, Records: []any{summary}}

	var result selector.Result
	for _, t := range full {
		tc := m.Count(m.TextOf(t))
		result.TotalInputTokens += tc
		if t.Kind == turn.User {
			result.KeptTurns = append(result.KeptTurns, t)
			result.UserTokens += tc
		}
	}
	summaryTokens := m.Count(summary)
	result.KeptTurns = append(result.KeptTurns, synthetic)
	result.ScoredKeptTokens += summaryTokens
	result.TotalInputTokens += summaryTokens

	return result, nil
}
