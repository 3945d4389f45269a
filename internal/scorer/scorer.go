// Package scorer defines the scorer contract shared by the extractive
// methods (dedup, eitf, setcover) and the remote ML-backed adapters, plus
// the registry that looks a method up by name.
package scorer

import (
	"context"
	"strings"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/turn"
)

// Scored is a turn with its relevance score and token count.
type Scored struct {
	Turn   *turn.Turn
	Score  float64
	Tokens int
}

// Options is the flat configuration record every scorer call receives.
// Unknown keys are a compile error, not a silently-ignored map entry.
type Options struct {
	Budget         int
	ShortThreshold int
	MinRepeatLen   int

	// Remote-scorer-only fields.
	Device         string
	BatchSize      int
	EmbedURL       string
	RerankURL      string
	Concurrency    int
	RequestTimeout int // seconds; 0 means use the adapter default.
}

// DefaultOptions returns turnsieve's documented default tuning.
func DefaultOptions() Options {
	return Options{
		Budget:         80_000,
		ShortThreshold: 300,
		MinRepeatLen:   64,
		Device:         "cpu",
		BatchSize:      16,
		Concurrency:    1,
	}
}

// Scorer scores a batch of long system turns given the full turn list and
// per-turn token counts. Implementations must emit results in the same
// order as longSystemTurns.
type Scorer interface {
	Score(ctx context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, opts Options) ([]Scored, error)
}

// ErrUnknownMethod is returned by Lookup when name is not registered.
var ErrUnknownMethod = health.NewErr("unknown scoring method")

// Registry maps method names to Scorers.
type Registry struct {
	byName map[string]Scorer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Scorer)}
}

// Register adds (or replaces) the Scorer for name.
func (r *Registry) Register(name string, s Scorer) {
	r.byName[name] = s
}

// Lookup returns the Scorer registered under name, or ErrUnknownMethod.
func (r *Registry) Lookup(name string) (Scorer, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, health.Wrap("unknown scoring method", ErrUnknownMethod, "method", name)
	}
	return s, nil
}

// Names returns the registered method names, in registration order is not
// guaranteed — callers needing a stable listing should sort the result.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

// TokenCounts computes a turn.Index -> token count map for every turn in
// full, using count as the per-text token counter (normally
// tokenizer.Count, injected here so scorer stays decoupled from the
// tokenizer package and tests can use a cheap stand-in).
func TokenCounts(full []*turn.Turn, textOf turn.TextOf, count func(string) int) map[int]int {
	out := make(map[int]int, len(full))
	for _, t := range full {
		out[t.Index] = count(textOf(t))
	}
	return out
}

// LongSystemTurns returns the system turns in full whose token count
// exceeds shortThreshold — the only turns any scorer ever sees.
func LongSystemTurns(full []*turn.Turn, tokenCounts map[int]int, shortThreshold int) []*turn.Turn {
	var out []*turn.Turn
	for _, t := range full {
		if t.Kind == turn.System && tokenCounts[t.Index] > shortThreshold {
			out = append(out, t)
		}
	}
	return out
}

// BuildQuery builds a query string from the last up to 3 user turns,
// joined with "\n---\n" and tail-truncated to maxChars. Shared by the
// remote scorer adapters.
func BuildQuery(userTurns []*turn.Turn, textOf turn.TextOf, maxChars int) string {
	recent := userTurns
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	parts := make([]string, len(recent))
	for i, t := range recent {
		parts[i] = textOf(t)
	}
	query := strings.Join(parts, "\n---\n")
	if r := []rune(query); len(r) > maxChars {
		query = string(r[len(r)-maxChars:])
	}
	return query
}
