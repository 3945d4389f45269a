package cli

import (
	"errors"
	"os"

	"github.com/codalotl/turnsieve/internal/adapter/claudecode"
	"github.com/codalotl/turnsieve/internal/config"
	"github.com/codalotl/turnsieve/internal/coverage"
	"github.com/codalotl/turnsieve/internal/llmmethod/openaisum"
	"github.com/codalotl/turnsieve/internal/q/cli"
	"github.com/codalotl/turnsieve/internal/remotescorer"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/turn"
)

// claudeCodeMethod names the opaque LLM-summarization method,
// handled outside the Scorer registry since it returns a selector.Result
// directly rather than a ranked []Scored list.
const claudeCodeMethod = "claude-code"

// newRegistry registers every extractive and remote scorer method, keyed
// exactly as the CLI's --method flag expects.
func newRegistry(textOf turn.TextOf) *scorer.Registry {
	r := scorer.NewRegistry()
	r.Register("dedup", scorer.Dedup{TextOf: textOf})
	r.Register("eitf", scorer.EITF{TextOf: textOf})
	r.Register("setcover", scorer.SetCover{TextOf: textOf})
	r.Register("llama-embed", remotescorer.LlamaEmbed{TextOf: textOf})
	r.Register("llama-rerank", remotescorer.LlamaRerank{TextOf: textOf})
	return r
}

// loadTranscript opens and parses a Claude Code .jsonl transcript into the
// canonical turn sequence.
func loadTranscript(path string) (*turn.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return claudecode.Parse(f)
}

// resolveOptions loads .turnsieve.yaml (if present) in dir, then applies
// environment variable overrides, per internal/config's documented
// precedence (file < env; CLI flags win over both at each call site by
// being applied after resolveOptions returns).
func resolveOptions(dir string) (scorer.Options, error) {
	file, _, err := config.Load(dir)
	if err != nil {
		return scorer.Options{}, err
	}
	return config.Resolve(file, os.Getenv), nil
}

// exitCodeErr wraps err so q/cli's Run maps it to the given process exit
// code.
type exitCodeErr struct {
	code int
	err  error
}

func (e exitCodeErr) Error() string { return e.err.Error() }
func (e exitCodeErr) Unwrap() error { return e.err }
func (e exitCodeErr) ExitCode() int { return e.code }

// mapKnownError assigns each named failure class a distinct exit code;
// anything else falls through to q/cli's default code 1.
func mapKnownError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, scorer.ErrUnknownMethod):
		return exitCodeErr{code: ExitUnknownMethod, err: err}
	case errors.Is(err, coverage.ErrDegenerateSplit):
		return exitCodeErr{code: ExitInputShape, err: err}
	case errors.Is(err, coverage.ErrNoSuffixEntities):
		return exitCodeErr{code: ExitEntityExtractionEmpty, err: err}
	case errors.Is(err, remotescorer.ErrRemoteScorer):
		return exitCodeErr{code: ExitRemoteScorerError, err: err}
	default:
		return err
	}
}

var _ cli.ExitCoder = exitCodeErr{}

// newClaudeCodeSummarizer builds the claude-code method's Summarizer from
// environment configuration (OPENAI_API_KEY/OPENAI_BASE_URL), matching the
// teacher's own API-key resolution via environment variables.
func newClaudeCodeSummarizer(textOf turn.TextOf) openaisum.Summarizer {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_BASE_URL")
	model := os.Getenv("TURNSIEVE_OPENAI_MODEL")
	return openaisum.New(apiKey, baseURL, model, textOf)
}
