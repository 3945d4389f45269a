package remotescorer

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/turn"
)

// LlamaRerank scores long system turns using server-side relevance scores
// from a cross-encoder rerank endpoint.
type LlamaRerank struct {
	TextOf turn.TextOf
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResultItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResultItem `json:"results"`
}

// Score implements scorer.Scorer.
func (r LlamaRerank) Score(ctx context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, opts scorer.Options) ([]scorer.Scored, error) {
	if opts.RerankURL == "" {
		return nil, health.Wrap("llama-rerank requires rerank_url", ErrRemoteScorer, "method", "llama-rerank")
	}
	if len(longSystemTurns) == 0 {
		return nil, nil
	}

	query := scorer.BuildQuery(userTurns(full), r.TextOf, maxQueryChars)
	client := httpClient(opts.RequestTimeout)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	scores := make([]float64, len(longSystemTurns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyOrDefault(opts.Concurrency))
	for start := 0; start < len(longSystemTurns); start += batchSize {
		start := start
		end := start + batchSize
		if end > len(longSystemTurns) {
			end = len(longSystemTurns)
		}
		g.Go(func() error {
			batchScores, err := r.rerankBatch(gctx, client, opts.RerankURL, query, longSystemTurns[start:end])
			if err != nil {
				return err
			}
			copy(scores[start:end], batchScores)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]scorer.Scored, len(longSystemTurns))
	for i, t := range longSystemTurns {
		out[i] = scorer.Scored{Turn: t, Score: scores[i], Tokens: tokenCounts[t.Index]}
	}
	return out, nil
}

// rerankBatch POSTs one batch of documents and returns their relevance
// scores re-sorted into input order by server-assigned index.
func (r LlamaRerank) rerankBatch(ctx context.Context, client *http.Client, baseURL, query string, docs []*turn.Turn) ([]float64, error) {
	texts := make([]string, len(docs))
	for i, t := range docs {
		texts[i] = truncateHead(r.TextOf(t), maxDocumentChars)
	}

	reqBody, err := marshalJSON(rerankRequest{Model: "qwen3", Query: query, Documents: texts})
	if err != nil {
		return nil, err
	}

	var resp rerankResponse
	if err := postJSON(ctx, client, baseURL+"/v1/rerank", reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(texts) {
		return nil, health.Wrap("rerank server returned wrong batch size", ErrRemoteScorer, "want", fmt.Sprint(len(texts)), "got", fmt.Sprint(len(resp.Results)))
	}

	sort.Slice(resp.Results, func(i, j int) bool { return resp.Results[i].Index < resp.Results[j].Index })
	out := make([]float64, len(resp.Results))
	for i, item := range resp.Results {
		out[i] = item.RelevanceScore
	}
	return out, nil
}
