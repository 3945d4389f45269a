package remotescorer

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/scorer"
	"github.com/codalotl/turnsieve/internal/turn"
)

// LlamaEmbed scores long system turns by cosine similarity between their
// embedding and a query embedding built from the recent user turns.
type LlamaEmbed struct {
	TextOf turn.TextOf
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponseItem struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embedResponse struct {
	Data []embedResponseItem `json:"data"`
}

// Score implements scorer.Scorer.
func (e LlamaEmbed) Score(ctx context.Context, full []*turn.Turn, longSystemTurns []*turn.Turn, tokenCounts map[int]int, opts scorer.Options) ([]scorer.Scored, error) {
	if opts.EmbedURL == "" {
		return nil, health.Wrap("llama-embed requires embed_url", ErrRemoteScorer, "method", "llama-embed")
	}
	if len(longSystemTurns) == 0 {
		return nil, nil
	}

	query := scorer.BuildQuery(userTurns(full), e.TextOf, maxQueryChars)

	client := httpClient(opts.RequestTimeout)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	// The query is embedded once, in its own request before the document
	// batches, and that embedding is reused for every batch.
	queryEmbedding, docEmbeddings, err := e.embedAll(ctx, client, opts.EmbedURL, query, longSystemTurns, batchSize, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	out := make([]scorer.Scored, len(longSystemTurns))
	for i, t := range longSystemTurns {
		out[i] = scorer.Scored{
			Turn:   t,
			Score:  cosineSimilarity(queryEmbedding, docEmbeddings[i]),
			Tokens: tokenCounts[t.Index],
		}
	}
	return out, nil
}

func (e LlamaEmbed) embedAll(ctx context.Context, client *http.Client, baseURL, query string, docs []*turn.Turn, batchSize, concurrency int) (queryEmbedding []float64, docEmbeddings [][]float64, err error) {
	queryBatch, err := e.embedBatch(ctx, client, baseURL, []string{query})
	if err != nil {
		return nil, nil, err
	}
	if len(queryBatch) != 1 {
		return nil, nil, health.Wrap("embedding server returned wrong query batch size", ErrRemoteScorer)
	}
	queryEmbedding = queryBatch[0]

	docEmbeddings = make([][]float64, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyOrDefault(concurrency))
	for start := 0; start < len(docs); start += batchSize {
		start := start
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, t := range docs[start:end] {
				texts[i] = truncateHead(e.TextOf(t), maxDocumentChars)
			}
			batch, err := e.embedBatch(gctx, client, baseURL, texts)
			if err != nil {
				return err
			}
			for i, emb := range batch {
				docEmbeddings[start+i] = emb
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return queryEmbedding, docEmbeddings, nil
}

// embedBatch POSTs input to baseURL/v1/embeddings and returns embeddings
// re-sorted into input order by the server-assigned index.
func (e LlamaEmbed) embedBatch(ctx context.Context, client *http.Client, baseURL string, input []string) ([][]float64, error) {
	reqBody, err := marshalJSON(embedRequest{Model: "qwen3", Input: input})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := postJSON(ctx, client, baseURL+"/v1/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(input) {
		return nil, health.Wrap("embedding server returned wrong batch size", ErrRemoteScorer, "want", fmt.Sprint(len(input)), "got", fmt.Sprint(len(resp.Data)))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		out[i] = item.Embedding
	}
	return out, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
