package cli

import (
	"fmt"
	"path/filepath"

	"github.com/codalotl/turnsieve/internal/adapter/claudecode"
	"github.com/codalotl/turnsieve/internal/llmmethod"
	"github.com/codalotl/turnsieve/internal/q/cli"
	"github.com/codalotl/turnsieve/internal/report"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/tokenizer"
)

func newCompactCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "compact",
		Short: "Compact a Claude Code transcript to fit a token budget",
		Args:  cli.ExactArgs(1),
	}

	method := cmd.Flags().String("method", 'm', "setcover", "Scoring method: dedup, eitf, setcover, llama-embed, llama-rerank, claude-code")
	budget := cmd.Flags().Int("budget", 'b', 0, "Token budget (0: use config/default)")
	shortThreshold := cmd.Flags().Int("short-threshold", 0, "Tokens below which a system turn is always kept (0: use config/default)")

	cmd.Run = func(c *cli.Context) error {
		path := c.Args[0]
		seq, err := loadTranscript(path)
		if err != nil {
			return err
		}
		full := seq.Turns()
		if len(full) == 0 {
			fmt.Fprintln(c.Out, "already within budget")
			return nil
		}

		opts, err := resolveOptions(filepath.Dir(path))
		if err != nil {
			return err
		}
		if *budget > 0 {
			opts.Budget = *budget
		}
		if *shortThreshold > 0 {
			opts.ShortThreshold = *shortThreshold
		}

		textOf := claudecode.TextOf

		var result selector.Result
		if *method == claudeCodeMethod {
			m := llmmethod.Method{
				Summarizer: newClaudeCodeSummarizer(textOf),
				TextOf:     textOf,
				Count:      tokenizer.Count,
			}
			result, err = m.Run(c.Context, full)
		} else {
			registry := newRegistry(textOf)
			var s scorer.Scorer
			s, err = registry.Lookup(*method)
			if err != nil {
				return mapKnownError(err)
			}

			tokenCounts := scorer.TokenCounts(full, textOf, tokenizer.Count)
			longSystem := scorer.LongSystemTurns(full, tokenCounts, opts.ShortThreshold)

			var scored []scorer.Scored
			scored, err = s.Score(c.Context, full, longSystem, tokenCounts, opts)
			if err != nil {
				return mapKnownError(fmt.Errorf("score: %w", err))
			}
			result = selector.Select(full, scored, tokenCounts, opts.Budget, opts.ShortThreshold)
		}
		if err != nil {
			return mapKnownError(err)
		}

		report.WriteSelectionTable(c.Out, result, textOf, 1)
		return nil
	}

	return cmd
}
