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

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient talks to Groq's OpenAI-compatible chat completions API.
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGroqClient(apiKey, baseURL string, timeout time.Duration) *GroqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	return &GroqClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *GroqClient) StreamCompletion(ctx context.Context, model string, msgs []PromptMessage, onDelta func(string) error) (string, error) {
	body, err := c.buildRequestBody(model, msgs)
	if err != nil {
		return "", fmt.Errorf("building groq request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building groq request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling groq: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("groq returned status %d: %s", resp.StatusCode, msg)
	}

	var full strings.Builder
	err = parseSSE(resp.Body, func(data string) error {
		delta := gjson.Get(data, "choices.0.delta.content").String()
		if delta == "" {
			return nil
		}
		full.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return full.String(), fmt.Errorf("reading groq stream: %w", err)
	}
	return full.String(), nil
}

func (c *GroqClient) buildRequestBody(model string, msgs []PromptMessage) (string, error) {
	body, err := sjson.Set("", "model", model)
	if err != nil {
		return "", err
	}
	body, err = sjson.Set(body, "stream", true)
	if err != nil {
		return "", err
	}
	for i, m := range msgs {
		body, err = sjson.Set(body, fmt.Sprintf("messages.%d.role", i), m.Role)
		if err != nil {
			return "", err
		}
		body, err = sjson.Set(body, fmt.Sprintf("messages.%d.content", i), m.Content)
		if err != nil {
			return "", err
		}
	}
	return body, nil
}
