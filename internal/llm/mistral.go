package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const mistralEndpoint = "https://api.mistral.ai/v1/chat/completions"

// mistralClient implements the Client interface for the Mistral API.
type mistralClient struct {
	httpClient   *http.Client
	limiter      *rateLimiter
	logger       *slog.Logger
	apiKey       string
	model        string
	systemPrompt string
}

// newMistralClient creates a new Mistral API client.
func newMistralClient(cfg Config, limiter *rateLimiter, systemPrompt string, logger *slog.Logger) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = "mistral-small-latest"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Debug("initializing Mistral client",
		"model", model,
		"key", maskKey(cfg.APIKey),
		"rpm", cfg.RequestsPerMinute,
		"rpd", cfg.RequestsPerDay)

	return &mistralClient{
		apiKey:       cfg.APIKey,
		model:        model,
		systemPrompt: systemPrompt,
		limiter:      limiter,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (c *mistralClient) Provider() string { return "mistral" }
func (c *mistralClient) Model() string    { return c.model }

// SendPrompt sends one prompt to Mistral. It acquires a rate limit slot
// first; quota exhaustion and context cancellation are the only errors.
// Transport failures resolve to (nil, nil).
func (c *mistralClient) SendPrompt(ctx context.Context, text string) (*RawResponse, error) {
	if err := c.limiter.acquire(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("sending request to Mistral", "model", c.model)

	requestBody := map[string]any{
		"model":       c.model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": text},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		c.logger.Error("failed to marshal Mistral request", "error", err)
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralEndpoint, bytes.NewReader(jsonBody))
	if err != nil {
		c.logger.Error("failed to create Mistral request", "error", err)
		return nil, nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Mistral API interaction failed", "error", err)
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read Mistral response", "error", err)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Mistral API error",
			"status", resp.StatusCode,
			"body", truncate(string(body), 512))
		return nil, nil
	}

	var response mistralResponse
	if err := json.Unmarshal(body, &response); err != nil {
		c.logger.Error("failed to parse Mistral response", "error", err)
		return nil, nil
	}

	c.logger.Debug("received raw response from Mistral")
	return &RawResponse{Choices: response.Choices, Body: body}, nil
}

// mistralResponse is the Mistral chat-completions response payload. The
// choices reuse the provider-neutral shape directly, since the normalizer
// consumes that shape as-is.
type mistralResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []RawChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
