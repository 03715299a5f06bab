package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fieldrelay/internal/logger"
)

const maxAnalysisTokens = 500

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint
// with an image reference and a fixed analysis prompt.
type OpenAIProvider struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	prompt   string
	logger   *logger.Logger
}

// NewOpenAIProvider builds a provider client. The context deadline of each
// Analyze call bounds the request; the http.Client itself has no timeout.
func NewOpenAIProvider(endpoint, apiKey, model, prompt string, log *logger.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		client:   &http.Client{},
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		prompt:   prompt,
		logger:   log,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze sends the image reference to the provider and returns its
// annotation text. Network failures, timeouts, 429 and 5xx responses are
// transient; other non-2xx responses and unusable payloads are permanent.
func (p *OpenAIProvider) Analyze(ctx context.Context, imageRef string) (string, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: p.prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: imageRef}},
				},
			},
		},
		MaxTokens: maxAnalysisTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Permanent(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", Transient(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", Permanent(fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil {
		return "", Permanent(fmt.Errorf("provider error: %s", decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return "", Permanent(errors.New("provider returned no choices"))
	}

	return decoded.Choices[0].Message.Content, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
