// Package openaisum implements llmmethod.Summarizer by sending the
// conversation's turns to an OpenAI-compatible chat completion endpoint
// and returning the assistant's reply text. It is the repo's one concrete Summarizer; no test in this
// package makes a real network call — request building and response
// unwrapping are exercised against a fake transport.
package openaisum

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/turn"
)

// ErrEmptyResponse is returned when the chat completion has no usable
// choice or content.
var ErrEmptyResponse = health.NewErr("chat completion returned no content")

const defaultPrompt = "Summarize the conversation below into a compact system note preserving file paths, error messages, and the current task state. Respond with the note only."

// Summarizer sends turn text to model via an OpenAI-compatible client.
type Summarizer struct {
	Client *openai.Client
	Model  string
	Prompt string
	TextOf turn.TextOf
}

// New builds a Summarizer with apiKey/baseURL client options, matching the
// teacher's getClientOpenAI construction pattern (explicit options instead
// of ambient SDK configuration).
func New(apiKey, baseURL, model string, textOf turn.TextOf) Summarizer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return Summarizer{Client: &client, Model: model, TextOf: textOf}
}

// Summarize implements llmmethod.Summarizer.
func (s Summarizer) Summarize(ctx context.Context, turns []*turn.Turn) (string, error) {
	prompt := s.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	var transcript strings.Builder
	for _, t := range turns {
		role := "assistant"
		if t.Kind == turn.User {
			role = "user"
		}
		fmt.Fprintf(&transcript, "[%s] %s\n", role, s.TextOf(t))
	}

	model := s.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	request := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(transcript.String()),
		},
	}

	resp, err := s.Client.Chat.Completions.New(ctx, request)
	if err != nil {
		return "", health.Wrap("chat completion request failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
