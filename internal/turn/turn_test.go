package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_DenseIndicesAndAlternation(t *testing.T) {
	var b Builder
	b.AppendUser("hello")
	b.AppendSystem("thinking")
	b.AppendSystem("tool call")
	b.AppendUser("follow up")
	b.AppendSystem("final answer")

	seq := b.Build()
	require.Equal(t, 4, seq.Len())

	for i, tn := range seq.Turns() {
		require.Equal(t, i, tn.Index)
	}

	for i := 1; i < seq.Len(); i++ {
		if seq.Turns()[i].Kind == User {
			require.NotEqual(t, User, seq.Turns()[i-1].Kind, "two user turns back to back at %d", i)
		}
	}
}

func TestBuilder_DropsEmptyTrailingSystemTurn(t *testing.T) {
	var b Builder
	b.AppendUser("only message")

	seq := b.Build()
	require.Equal(t, 1, seq.Len())
	require.Equal(t, User, seq.Turns()[0].Kind)
}

func TestBuilder_SystemFirstIsAllowed(t *testing.T) {
	var b Builder
	b.AppendSystem("boot message")
	b.AppendUser("hi")

	seq := b.Build()
	require.Equal(t, 2, seq.Len())
	require.Equal(t, System, seq.Turns()[0].Kind)
	require.Equal(t, User, seq.Turns()[1].Kind)
}

func TestSequence_LastSystem(t *testing.T) {
	var b Builder
	b.AppendUser("hi")
	b.AppendSystem("a")
	b.AppendUser("hi2")
	b.AppendSystem("b")

	seq := b.Build()
	last := seq.LastSystem()
	require.NotNil(t, last)
	require.Equal(t, 3, last.Index)
}

func TestReindexed_LeavesOriginalUntouched(t *testing.T) {
	var b Builder
	b.AppendUser("a")
	b.AppendSystem("b")
	b.AppendUser("c")
	b.AppendSystem("d")
	seq := b.Build()

	prefix := seq.Turns()[:2]
	re := Reindexed(prefix)
	require.Equal(t, 2, re.Len())
	require.Equal(t, 0, re.Turns()[0].Index)
	require.Equal(t, 1, re.Turns()[1].Index)

	// originals untouched
	require.Equal(t, 0, prefix[0].Index)
	require.Equal(t, 1, prefix[1].Index)
}
