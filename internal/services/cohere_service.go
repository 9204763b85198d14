package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultCohereBaseURL = "https://api.cohere.ai/v1"
	cohereModel          = "command"
	cohereMaxTokens      = 1024
)

// CohereService answers document-grounded questions through the Cohere
// generate endpoint. The question and the full extracted document text are
// folded into a single prompt.
type CohereService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewCohereService(apiKey string) *CohereService {
	return &CohereService{
		apiKey:     apiKey,
		baseURL:    defaultCohereBaseURL,
		httpClient: http.DefaultClient,
	}
}

type cohereGenerateRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	Truncate  string `json:"truncate"`
}

type cohereGenerateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
	Message string `json:"message"`
}

func (s *CohereService) GenerateGrounded(ctx context.Context, question, docContext string) (string, error) {
	payload := cohereGenerateRequest{
		Model:     cohereModel,
		Prompt:    fmt.Sprintf("Question: %s\nContext: %s\nAnswer:", question, docContext),
		MaxTokens: cohereMaxTokens,
		Truncate:  "END",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cohere request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read cohere response: %w", err)
	}

	var generated cohereGenerateResponse
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return "", fmt.Errorf("malformed cohere response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, generated.Message)
	}
	if len(generated.Generations) == 0 {
		return "", fmt.Errorf("cohere returned no generations")
	}

	return strings.TrimSpace(generated.Generations[0].Text), nil
}
