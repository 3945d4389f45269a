// Package remotescorer implements the two ML-backed scorer adapters
// (llama-embed, llama-rerank) as thin HTTP clients satisfying the scorer
// contract. They are the only suspension points in the
// system: everything else runs synchronously in memory.
package remotescorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/simplelogger"
	"github.com/codalotl/turnsieve/internal/turn"
)

// ErrRemoteScorer wraps any failure surfaced by a remote adapter after
// retries are exhausted.
var ErrRemoteScorer = health.NewErr("remote scorer request failed")

const (
	defaultTimeout   = 120 * time.Second
	retryAttempts    = 3
	retryBaseDelay   = 2 * time.Second
	maxQueryChars    = 4000
	maxDocumentChars = 2048
)

// httpClient returns an *http.Client honoring opts.RequestTimeout, falling
// back to a 120s default.
func httpClient(requestTimeoutSeconds int) *http.Client {
	timeout := defaultTimeout
	if requestTimeoutSeconds > 0 {
		timeout = time.Duration(requestTimeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// truncateTail keeps the last maxChars characters of s.
func truncateTail(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[len(r)-maxChars:])
}

// truncateHead keeps the first maxChars characters of s (documents keep
// their beginning and lose their end, per the original's batching behavior,
// since a document's most identifying content is usually near its start).
func truncateHead(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}

// concurrencyOrDefault clamps a configured concurrency to a default of 1
// (strictly sequential) when unset or non-positive.
func concurrencyOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// userTurns filters full down to its User-kind turns, in order.
func userTurns(full []*turn.Turn) []*turn.Turn {
	var out []*turn.Turn
	for _, t := range full {
		if t.Kind == turn.User {
			out = append(out, t)
		}
	}
	return out
}

// postJSON POSTs body (already marshaled) to url and decodes the response
// into target, retrying transient failures (connection errors and 5xx
// responses) with exponential backoff: 3 attempts, base delay 2s doubling
// each try. Non-5xx HTTP errors are not retried, since a 4xx
// response won't change on retry.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, target any) error {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err := doPostJSON(ctx, client, url, body, target)
		if err == nil {
			return nil
		}
		lastErr = err
		simplelogger.Log("remotescorer: attempt %d/%d to %s failed: %v", attempt, retryAttempts, url, err)

		if !isRetryable(err) || attempt == retryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return health.Wrap("remote scorer request canceled", ctx.Err(), "url", url)
		case <-time.After(delay):
		}
		delay *= 2
	}

	return health.Wrap("remote scorer request failed after retries", ErrRemoteScorer, "url", url, "cause", lastErr.Error())
}

type retryableErr struct{ error }

func isRetryable(err error) bool {
	_, ok := err.(retryableErr)
	return ok
}

func doPostJSON(ctx context.Context, client *http.Client, url string, body []byte, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return retryableErr{err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return retryableErr{readErr}
	}

	if resp.StatusCode >= 500 {
		return retryableErr{fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, health.Wrap("marshal remote scorer request", err)
	}
	return b, nil
}

// HealthCheck performs GET {baseURL}/health and reports whether it
// returned 200.
func HealthCheck(ctx context.Context, client *http.Client, baseURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, health.Wrap("health check request failed", ErrRemoteScorer, "url", baseURL)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}
