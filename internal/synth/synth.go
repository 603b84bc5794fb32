package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goharvest/internal/aggregate"
	"github.com/hyperifyio/goharvest/internal/cache"
)

// Client is the minimal chat-completion surface the summarizer needs. It
// mirrors go-openai so any OpenAI-compatible endpoint plugs in, and tests
// can stub it.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ErrEmptyCompletion indicates the model returned no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// perSourceChars bounds how much of each document is quoted into the
// prompt so large bundles still fit a small context window.
const perSourceChars = 2000

// Summarizer produces an AI research summary over an extracted bundle.
// It is an optional enrichment: callers fall back to the plain report when
// the model is unconfigured or fails.
type Summarizer struct {
	Client Client
	Model  string
	Cache  *cache.LLMCache
}

// Summarize asks the model for a Markdown summary of the bundle's sources.
func (s *Summarizer) Summarize(ctx context.Context, b aggregate.Bundle) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("summarizer not configured")
	}
	if len(b.Documents) == 0 {
		return "", fmt.Errorf("%w: no documents to summarize", ErrEmptyCompletion)
	}
	system := "You are a research assistant. Summarize the provided web sources " +
		"into a concise, factual Markdown brief on the topic. Cite sources by " +
		"their bracketed number. Do not invent facts absent from the sources."
	user := buildPrompt(b)

	if s.Cache != nil {
		key := cache.KeyFrom(s.Model, system+"\n\n"+user)
		if raw, ok, _ := s.Cache.Get(ctx, key); ok && len(raw) > 0 {
			return string(raw), nil
		}
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("summary call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	if s.Cache != nil {
		key := cache.KeyFrom(s.Model, system+"\n\n"+user)
		_ = s.Cache.Save(ctx, key, []byte(out))
	}
	return out, nil
}

func buildPrompt(b aggregate.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\nSources:\n\n", b.Topic)
	for i, d := range b.Documents {
		excerpt := d.Content
		if len(excerpt) > perSourceChars {
			excerpt = excerpt[:perSourceChars]
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, d.Title, d.URL, excerpt)
	}
	sb.WriteString("Write the summary now.")
	return sb.String()
}
