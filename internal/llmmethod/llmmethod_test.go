package llmmethod

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codalotl/turnsieve/internal/turn"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f fakeSummarizer) Summarize(ctx context.Context, turns []*turn.Turn) (string, error) {
	return f.summary, f.err
}

func textOf(t *turn.Turn) string {
	var out []string
	for _, r := range t.Records {
		out = append(out, r.(string))
	}
	return strings.Join(out, " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func buildTurns() []*turn.Turn {
	var b turn.Builder
	b.AppendUser("what happened in the build")
	b.AppendSystem("a long description of the failure and the fix applied")
	b.AppendUser("thanks, what next")
	return b.Build().Turns()
}

func TestMethod_Run_WrapsSummaryAsSingleSyntheticTurn(t *testing.T) {
	full := buildTurns()
	m := Method{
		Summarizer: fakeSummarizer{summary: "fixed a nil pointer in the parser"},
		TextOf:     textOf,
		Count:      wordCount,
	}

	result, err := m.Run(context.Background(), full)
	require.NoError(t, err)

	var systemCount int
	var userCount int
	for _, kt := range result.KeptTurns {
		if kt.Kind == turn.System {
			systemCount++
			require.Equal(t, "fixed a nil pointer in the parser", kt.Records[0])
		} else {
			userCount++
		}
	}
	require.Equal(t, 1, systemCount, "exactly one synthetic system turn")
	require.Equal(t, 2, userCount, "every user turn always kept")
}

func TestMethod_Run_SyntheticIndexAfterAllInputTurns(t *testing.T) {
	full := buildTurns()
	maxIdx := 0
	for _, t := range full {
		if t.Index > maxIdx {
			maxIdx = t.Index
		}
	}

	m := Method{Summarizer: fakeSummarizer{summary: "summary"}, TextOf: textOf, Count: wordCount}
	result, err := m.Run(context.Background(), full)
	require.NoError(t, err)

	var synthetic *turn.Turn
	for _, kt := range result.KeptTurns {
		if kt.Kind == turn.System {
			synthetic = kt
		}
	}
	require.NotNil(t, synthetic)
	require.Greater(t, synthetic.Index, maxIdx)
}

func TestMethod_Run_PropagatesSummarizerError(t *testing.T) {
	m := Method{Summarizer: fakeSummarizer{err: context.DeadlineExceeded}, TextOf: textOf, Count: wordCount}
	_, err := m.Run(context.Background(), buildTurns())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSummarizer)
}
