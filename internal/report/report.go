// Package report renders a selector.Result, a batch of coverage.Result, or
// an evidence probes.Result as terminal tables, a validated Markdown
// comparison document, a unified diff of kept-turn sets, or a CSV export
//. Nothing here scores or
// selects; it only formats what other packages already computed.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/codalotl/turnsieve/internal/coverage"
	"github.com/codalotl/turnsieve/internal/q/uni"
	"github.com/codalotl/turnsieve/internal/selector"
	"github.com/codalotl/turnsieve/internal/turn"
)

// defaultTableWidth is used when the terminal width can't be determined
// (e.g. output is redirected to a file).
const defaultTableWidth = 100

// previewWidth caps a turn preview's display-column width, generalizing
// lib/formatter.py's 80-char preview with grapheme-aware truncation so
// multi-byte UTF-8 turn content truncates correctly.
const previewWidth = 80

// terminalWidth returns fd's terminal column width, or defaultTableWidth
// if fd isn't a terminal or the size can't be read.
func terminalWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return defaultTableWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultTableWidth
	}
	return w
}

// Preview truncates text to previewWidth display columns, appending "..."
// when truncated. Truncation walks grapheme clusters, not bytes, so a
// multi-byte rune is never split mid-sequence.
func Preview(text string) string {
	return truncateToWidth(text, previewWidth)
}

func truncateToWidth(text string, width int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if uni.TextWidth(text) <= width {
		return text
	}

	budget := width - 3 // room for "..."
	if budget < 0 {
		budget = 0
	}

	var b strings.Builder
	used := 0
	it := uni.NewGraphemeIterator(text)
	for it.Next() {
		w := it.TextWidth()
		if used+w > budget {
			break
		}
		b.WriteString(it.Value())
		used += w
	}
	b.WriteString("...")
	return b.String()
}

// WriteSelectionTable renders a fixed-width terminal table summarizing a
// selector.Result: per-kept-turn index, kind, token count (shown for scored
// turns only, "-" otherwise), and a truncated preview, followed by a
// budget-allocation footer.
func WriteSelectionTable(w io.Writer, result selector.Result, textOf turn.TextOf, fd int) {
	width := terminalWidth(fd)
	previewCol := width - 20
	if previewCol < 20 {
		previewCol = 20
	}

	tokensByIndex := make(map[int]int, len(result.KeptScored))
	for _, sc := range result.KeptScored {
		tokensByIndex[sc.Turn.Index] = sc.Tokens
	}

	fmt.Fprintf(w, "%-6s %-8s %-8s %s\n", "index", "kind", "tokens", "preview")
	fmt.Fprintln(w, strings.Repeat("-", width))

	for _, t := range result.KeptTurns {
		preview := truncateToWidth(textOf(t), previewCol)
		tokens := "-"
		if n, ok := tokensByIndex[t.Index]; ok {
			tokens = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(w, "%-6d %-8s %-8s %s\n", t.Index, t.Kind, tokens, preview)
	}

	fmt.Fprintln(w, strings.Repeat("-", width))
	ratio := 0.0
	if result.TotalInputTokens > 0 {
		kept := result.UserTokens + result.ShortSystemTokens + result.ScoredKeptTokens
		ratio = 1.0 - float64(kept)/float64(result.TotalInputTokens)
	}
	fmt.Fprintf(w, "budget=%d total_input_tokens=%d compression=%.1f%%\n",
		result.Budget, result.TotalInputTokens, ratio*100)
}

// WriteCoverageTable renders one row per coverage.Result, sorted by
// budget and then by method — the terminal counterpart of
// WriteComparisonMarkdown.
func WriteCoverageTable(w io.Writer, results []coverage.Result) {
	fmt.Fprintf(w, "%-16s %-8s %-10s %-10s %-10s\n", "method", "budget", "coverage", "weighted", "f1")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range sortedCoverage(results) {
		fmt.Fprintf(w, "%-16s %-8d %-10.3f %-10.3f %-10.3f\n",
			r.Method, r.Budget, r.Coverage, r.WeightedCoverage, r.F1())
	}
}

func sortedCoverage(results []coverage.Result) []coverage.Result {
	out := append([]coverage.Result(nil), results...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Budget != out[j].Budget {
			return out[i].Budget < out[j].Budget
		}
		return out[i].Method < out[j].Method
	})
	return out
}
