package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codalotl/turnsieve/internal/adapter/claudecode"
	"github.com/codalotl/turnsieve/internal/config"
	"github.com/codalotl/turnsieve/internal/coverage"
	"github.com/codalotl/turnsieve/internal/probes"
	"github.com/codalotl/turnsieve/internal/q/cli"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/tokenizer"
)

func newEvalCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "eval",
		Short: "Evaluate a scoring method's compaction quality",
	}
	cmd.AddCommand(newEvalEntityCommand(), newEvalEvidenceCommand())
	return cmd
}

func newEvalEntityCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "entity",
		Short: "Run the entity-coverage evaluator",
		Args:  cli.ExactArgs(1),
	}

	method := cmd.Flags().String("method", 'm', "setcover", "Scoring method to evaluate")
	budget := cmd.Flags().Int("budget", 'b', 0, "Token budget (0: use config/default)")
	splitRatio := cmd.Flags().String("split-ratio", 'r', "", "Prefix/suffix split ratio, e.g. 0.70 (empty: use config/default)")

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

		cfgFile, _, err := config.Load(filepath.Dir(path))
		if err != nil {
			return err
		}
		ratio := config.SplitRatio(cfgFile, os.Getenv)
		if *splitRatio != "" {
			if _, err := fmt.Sscanf(*splitRatio, "%g", &ratio); err != nil {
				return cli.UsageError{Message: fmt.Sprintf("invalid --split-ratio %q", *splitRatio)}
			}
		}

		registry := newRegistry(textOf)
		s, err := registry.Lookup(*method)
		if err != nil {
			return mapKnownError(err)
		}

		result, err := coverage.Evaluate(c.Context, full, *method, s, textOf, tokenizer.Count, opts, ratio)
		if err != nil {
			return mapKnownError(err)
		}

		fmt.Fprintf(c.Out, "method=%s budget=%d coverage=%.3f weighted_coverage=%.3f compression=%.3f f1=%.3f\n",
			result.Method, result.Budget, result.Coverage, result.WeightedCoverage, result.Compression, result.F1())
		return nil
	}

	return cmd
}

func newEvalEvidenceCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "evidence",
		Short: "Run the evidence-coverage evaluator against a cached probe set",
		Args:  cli.ExactArgs(1),
	}

	method := cmd.Flags().String("method", 'm', "setcover", "Scoring method to evaluate")
	budget := cmd.Flags().Int("budget", 'b', 0, "Token budget (0: use config/default)")
	probesDir := cmd.Flags().String("probes-dir", 0, "", "Directory holding cached probe set JSON files (required)")
	splitRatio := cmd.Flags().String("split-ratio", 0, "0.70", "Split ratio used to key the probe cache")

	cmd.Run = func(c *cli.Context) error {
		path := c.Args[0]
		if *probesDir == "" {
			return cli.UsageError{Message: "--probes-dir is required"}
		}

		var ratio float64
		if _, err := fmt.Sscanf(*splitRatio, "%g", &ratio); err != nil {
			return cli.UsageError{Message: fmt.Sprintf("invalid --split-ratio %q", *splitRatio)}
		}

		convHash, err := probes.ConvHash(path, ratio)
		if err != nil {
			return err
		}
		set, ok, err := probes.Load(*probesDir, convHash, ratio, probes.Version)
		if err != nil {
			fmt.Fprintf(c.Err, "warning: probe cache unreadable, treating as absent: %v\n", err)
		}
		if !ok {
			return fmt.Errorf("no cached probe set found for %s (conv_hash=%s)", path, convHash)
		}

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
		s, err := registry.Lookup(*method)
		if err != nil {
			return mapKnownError(err)
		}

		tokenCounts := scorer.TokenCounts(full, textOf, tokenizer.Count)
		longSystem := scorer.LongSystemTurns(full, tokenCounts, opts.ShortThreshold)
		scored, err := s.Score(c.Context, full, longSystem, tokenCounts, opts)
		if err != nil {
			return mapKnownError(fmt.Errorf("score: %w", err))
		}
		selResult := selector.Select(full, scored, tokenCounts, opts.Budget, opts.ShortThreshold)

		kept := make(map[int]struct{}, len(selResult.KeptTurns))
		for _, t := range selResult.KeptTurns {
			kept[t.Index] = struct{}{}
		}

		result := probes.Evaluate(set, kept, *method, opts.Budget)
		fmt.Fprintf(c.Out, "method=%s budget=%d composite=%.3f ndcg=%.3f\n", result.Method, result.Budget, result.Composite, result.NDCG)
		for _, d := range result.Dimensions {
			fmt.Fprintf(c.Out, "  %-14s mean_coverage=%.3f probes=%d\n", d.Dimension, d.MeanCoverage, d.ProbeCount)
		}
		return nil
	}

	return cmd
}
