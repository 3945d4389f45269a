package openaisum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codalotl/turnsieve/internal/turn"
)

func textOf(t *turn.Turn) string {
	var out []string
	for _, r := range t.Records {
		out = append(out, r.(string))
	}
	return strings.Join(out, " ")
}

func buildTurns() []*turn.Turn {
	var b turn.Builder
	b.AppendUser("why did the build fail")
	b.AppendSystem("a ValueError occurred in /x/y.py during startup")
	return b.Build().Turns()
}

func TestSummarize_ReturnsAssistantContent(t *testing.T) {
	var capturedBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&capturedBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"fixed the startup ValueError in /x/y.py"}}]
		}`))
	}))
	defer srv.Close()

	s := New("test-key", srv.URL, "gpt-4o-mini", textOf)
	summary, err := s.Summarize(context.Background(), buildTurns())
	require.NoError(t, err)
	require.Equal(t, "fixed the startup ValueError in /x/y.py", summary)

	messages, ok := capturedBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestSummarize_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"gpt-4o-mini","choices":[]}`))
	}))
	defer srv.Close()

	s := New("test-key", srv.URL, "gpt-4o-mini", textOf)
	_, err := s.Summarize(context.Background(), buildTurns())
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSummarize_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New("test-key", srv.URL, "gpt-4o-mini", textOf)
	_, err := s.Summarize(context.Background(), buildTurns())
	require.Error(t, err)
}
