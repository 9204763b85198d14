package services

import (
	"context"
	"fmt"
	"strings"

	"barnaby_go_backend/internal/models"

	"github.com/google/generative-ai-go/genai"
)

const geminiModelName = "gemini-1.5-flash-latest"

// GeminiService answers open-ended conversation through a Gemini chat
// session primed with the full message history.
type GeminiService struct {
	client *genai.Client
}

func NewGeminiService(client *genai.Client) *GeminiService {
	return &GeminiService{client: client}
}

func (s *GeminiService) GenerateOpen(ctx context.Context, history []models.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("conversation history is empty")
	}
	last := history[len(history)-1]
	if last.Role != models.RoleUser {
		return "", fmt.Errorf("last message in history is not from the user")
	}

	model := s.client.GenerativeModel(geminiModelName)
	chat := model.StartChat()
	chat.History = toGenaiHistory(history[:len(history)-1])

	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			answer.WriteString(string(txt))
		}
	}
	if answer.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}

	return answer.String(), nil
}

// toGenaiHistory maps the stored roles onto the wire roles Gemini expects:
// our "assistant" is Gemini's "model".
func toGenaiHistory(history []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}
