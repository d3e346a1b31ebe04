package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient talks to the Google Generative Language streaming API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGeminiClient(apiKey, baseURL string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *GeminiClient) StreamCompletion(ctx context.Context, model string, msgs []PromptMessage, onDelta func(string) error) (string, error) {
	body, err := c.buildRequestBody(msgs)
	if err != nil {
		return "", fmt.Errorf("building gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, msg)
	}

	var full strings.Builder
	err = parseSSE(resp.Body, func(data string) error {
		delta := gjson.Get(data, "candidates.0.content.parts.0.text").String()
		if delta == "" {
			return nil
		}
		full.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return full.String(), fmt.Errorf("reading gemini stream: %w", err)
	}
	return full.String(), nil
}

// buildRequestBody maps conversation history onto Gemini's contents format.
// Assistant turns become role "model".
func (c *GeminiClient) buildRequestBody(msgs []PromptMessage) (string, error) {
	body := ""
	var err error
	for i, m := range msgs {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body, err = sjson.Set(body, fmt.Sprintf("contents.%d.role", i), role)
		if err != nil {
			return "", err
		}
		body, err = sjson.Set(body, fmt.Sprintf("contents.%d.parts.0.text", i), m.Content)
		if err != nil {
			return "", err
		}
	}
	return body, nil
}
