package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/codalotl/turnsieve/internal/coverage"
	"github.com/codalotl/turnsieve/internal/probes"
)

// ErrMalformedMarkdown is returned by WriteComparisonMarkdown and
// WriteEvidenceMarkdown when goldmark's parse of the rendered document
// yields no block nodes; nothing is written in that case.
var ErrMalformedMarkdown = fmt.Errorf("generated markdown failed to parse")

// WriteComparisonMarkdown renders one table per distinct budget across
// results, one row per method, comparing coverage/weighted
// coverage/F1. Before writing to w, the generated document is parsed with
// goldmark and rejected if the parse yields no block nodes; unclosed or
// otherwise malformed blocks are not detected — turnsieve has no Markdown
// input to render, only generated output to validate, so this is the
// repo's only goldmark use.
func WriteComparisonMarkdown(w io.Writer, results []coverage.Result) error {
	var b strings.Builder
	b.WriteString("# Coverage comparison\n\n")

	byBudget := map[int][]coverage.Result{}
	var budgets []int
	for _, r := range results {
		if _, seen := byBudget[r.Budget]; !seen {
			budgets = append(budgets, r.Budget)
		}
		byBudget[r.Budget] = append(byBudget[r.Budget], r)
	}
	sortInts(budgets)

	for _, budget := range budgets {
		fmt.Fprintf(&b, "## Budget %d\n\n", budget)
		b.WriteString("| method | coverage | weighted coverage | f1 |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range sortedCoverage(byBudget[budget]) {
			fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f |\n", r.Method, r.Coverage, r.WeightedCoverage, r.F1())
		}
		b.WriteString("\n")
	}

	doc := b.String()
	if err := validateMarkdown(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, doc)
	return err
}

// WriteEvidenceMarkdown renders one table per budget for a batch of
// evidence-coverage probes.Result, one row per method, reporting the
// composite score and NDCG.
func WriteEvidenceMarkdown(w io.Writer, results []probes.Result) error {
	var b strings.Builder
	b.WriteString("# Evidence coverage comparison\n\n")

	byBudget := map[int][]probes.Result{}
	var budgets []int
	for _, r := range results {
		if _, seen := byBudget[r.Budget]; !seen {
			budgets = append(budgets, r.Budget)
		}
		byBudget[r.Budget] = append(byBudget[r.Budget], r)
	}
	sortInts(budgets)

	for _, budget := range budgets {
		fmt.Fprintf(&b, "## Budget %d\n\n", budget)
		b.WriteString("| method | composite | ndcg |\n")
		b.WriteString("|---|---|---|\n")
		rows := byBudget[budget]
		for _, r := range rows {
			fmt.Fprintf(&b, "| %s | %.3f | %.3f |\n", r.Method, r.Composite, r.NDCG)
		}
		b.WriteString("\n")
	}

	doc := b.String()
	if err := validateMarkdown(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, doc)
	return err
}

// validateMarkdown parses doc with goldmark and reports ErrMalformedMarkdown
// if the AST contains no block children (the generated document is never
// empty; an empty parse tree means the tables failed to form).
func validateMarkdown(doc string) error {
	md := goldmark.New()
	reader := text.NewReader([]byte(doc))
	root := md.Parser().Parse(reader, parser.WithContext(parser.NewContext()))

	hasBlock := false
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n != root {
			hasBlock = true
		}
		return ast.WalkContinue, nil
	})
	if !hasBlock {
		return ErrMalformedMarkdown
	}
	return nil
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// WriteKeptIndexDiff renders a unified diff between two kept-turn-index
// sets, one index per line, for the `turnsieve diff` subcommand — useful
// when tuning short_threshold or comparing eitf vs setcover on the same
// conversation.
func WriteKeptIndexDiff(w io.Writer, fromLabel string, fromKept []int, toLabel string, toKept []int) error {
	fromText := indexLines(fromKept)
	toText := indexLines(toKept)

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(fromText, toText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	fmt.Fprintf(w, "--- %s\n+++ %s\n", fromLabel, toLabel)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(w, "%s%s\n", prefix, line)
		}
	}
	return nil
}

func indexLines(indices []int) string {
	sorted := append([]int(nil), indices...)
	sortInts(sorted)
	var b bytes.Buffer
	for _, idx := range sorted {
		fmt.Fprintf(&b, "%d\n", idx)
	}
	return b.String()
}
