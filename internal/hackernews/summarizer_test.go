package hackernews

import (
	"context"
	"strings"
	"testing"

	"toolhub/internal/gateway"
)

type stubChat struct {
	lastReq gateway.ChatRequest
	content string
}

func (s *stubChat) Chat(_ context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error) {
	s.lastReq = req
	return gateway.ChatResponse{
		Choices: []gateway.Choice{{Message: gateway.Message{Role: "assistant", Content: s.content}}},
	}, nil
}

func TestChatSummarizer(t *testing.T) {
	chat := &stubChat{content: "```json\n{\"101\":\"a release\",\"102\":\"a question\"}\n```"}
	s := NewChatSummarizer(chat, "gpt-4o-mini")

	got, err := s.Summarize(context.Background(), []Story{
		{ID: 101, Title: "Go 1.25 released", URL: "https://go.dev"},
		{ID: 102, Title: "Ask HN: favorite editor?"},
	})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got[101] != "a release" || got[102] != "a question" {
		t.Fatalf("unexpected summaries %v", got)
	}
	if chat.lastReq.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", chat.lastReq.Model)
	}
	if !strings.Contains(chat.lastReq.Messages[1].Content, "Go 1.25 released") {
		t.Fatalf("prompt missing story line: %q", chat.lastReq.Messages[1].Content)
	}
}

func TestChatSummarizerEmptyInput(t *testing.T) {
	s := NewChatSummarizer(&stubChat{}, "gpt-4o-mini")
	got, err := s.Summarize(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil,nil for empty input, got %v, %v", got, err)
	}
}
