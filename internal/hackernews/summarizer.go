package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"toolhub/internal/gateway"
)

// ChatClient is the slice of the gateway used for summaries.
type ChatClient interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error)
}

// ChatSummarizer produces one-line story summaries in a single batched
// completion call.
type ChatSummarizer struct {
	client ChatClient
	model  string
}

func NewChatSummarizer(client ChatClient, model string) *ChatSummarizer {
	return &ChatSummarizer{client: client, model: model}
}

func (s *ChatSummarizer) Summarize(ctx context.Context, stories []Story) (map[int]string, error) {
	if len(stories) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, st := range stories {
		fmt.Fprintf(&sb, "%d\t%s\t%s\n", st.ID, st.Title, st.URL)
	}

	resp, err := s.client.Chat(ctx, gateway.ChatRequest{
		Model: s.model,
		Messages: []gateway.Message{
			{
				Role: gateway.RoleSystem,
				Content: "You summarize Hacker News stories. For each tab-separated " +
					"line (id, title, url) reply with a JSON object mapping the id " +
					"to a one-sentence summary. Reply with JSON only.",
			},
			{Role: gateway.RoleUser, Content: sb.String()},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize stories: %w", err)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var byID map[int]string
	if err := json.Unmarshal([]byte(content), &byID); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	return byID, nil
}
