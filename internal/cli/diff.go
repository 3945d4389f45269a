package cli

import (
	"path/filepath"

	"github.com/codalotl/turnsieve/internal/adapter/claudecode"
	"github.com/codalotl/turnsieve/internal/q/cli"
	"github.com/codalotl/turnsieve/internal/report"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/tokenizer"
	"github.com/codalotl/turnsieve/internal/turn"
)

func newDiffCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "diff",
		Short: "Show a unified diff between two methods' kept-turn sets on the same budget",
		Args:  cli.ExactArgs(1),
	}

	methodA := cmd.Flags().String("method-a", 0, "setcover", "First method")
	methodB := cmd.Flags().String("method-b", 0, "dedup", "Second method")
	budget := cmd.Flags().Int("budget", 'b', 0, "Token budget (0: use config/default)")

	cmd.Run = func(c *cli.Context) error {
		path := c.Args[0]
		seq, err := loadTranscript(path)
		if err != nil {
			return err
		}
		full := seq.Turns()
		textOf := claudecode.TextOf

		opts, err := resolveOptions(filepath.Dir(path))
		if err != nil {
			return err
		}
		if *budget > 0 {
			opts.Budget = *budget
		}

		registry := newRegistry(textOf)
		tokenCounts := scorer.TokenCounts(full, textOf, tokenizer.Count)
		longSystem := scorer.LongSystemTurns(full, tokenCounts, opts.ShortThreshold)

		keptA, err := keptIndices(c, registry, *methodA, full, longSystem, tokenCounts, opts)
		if err != nil {
			return mapKnownError(err)
		}
		keptB, err := keptIndices(c, registry, *methodB, full, longSystem, tokenCounts, opts)
		if err != nil {
			return mapKnownError(err)
		}

		return report.WriteKeptIndexDiff(c.Out, *methodA, keptA, *methodB, keptB)
	}

	return cmd
}

// keptIndices scores full/longSystem with method and returns the sorted
// kept-turn indices selector.Select would produce under opts.
func keptIndices(c *cli.Context, registry *scorer.Registry, method string, full, longSystem []*turn.Turn, tokenCounts map[int]int, opts scorer.Options) ([]int, error) {
	s, err := registry.Lookup(method)
	if err != nil {
		return nil, err
	}
	scored, err := s.Score(c.Context, full, longSystem, tokenCounts, opts)
	if err != nil {
		return nil, err
	}
	result := selector.Select(full, scored, tokenCounts, opts.Budget, opts.ShortThreshold)

	out := make([]int, 0, len(result.KeptTurns))
	for _, t := range result.KeptTurns {
		out = append(out, t.Index)
	}
	return out, nil
}
