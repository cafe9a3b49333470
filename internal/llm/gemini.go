package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// geminiHarmCategories are the filter dimensions we explicitly relax.
// Financial discussion trips content filters often enough that every
// category is set to BLOCK_NONE; a block that still happens degrades to the
// "no response" sentinel rather than an error.
var geminiHarmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// geminiClient implements the Client interface for the Gemini API.
type geminiClient struct {
	httpClient   *http.Client
	limiter      *rateLimiter
	logger       *slog.Logger
	apiKey       string
	model        string
	systemPrompt string
}

// newGeminiClient creates a new Gemini API client.
func newGeminiClient(cfg Config, limiter *rateLimiter, systemPrompt string, logger *slog.Logger) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Debug("initializing Gemini client",
		"model", model,
		"key", maskKey(cfg.APIKey),
		"rpm", cfg.RequestsPerMinute,
		"rpd", cfg.RequestsPerDay)

	return &geminiClient{
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

func (c *geminiClient) Provider() string { return "gemini" }
func (c *geminiClient) Model() string    { return c.model }

// SendPrompt sends one prompt to Gemini. It acquires a rate limit slot
// first; quota exhaustion and context cancellation are the only errors.
// Transport failures and safety blocks resolve to (nil, nil).
func (c *geminiClient) SendPrompt(ctx context.Context, text string) (*RawResponse, error) {
	if err := c.limiter.acquire(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("sending request to Gemini", "model", c.model)

	requestBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf("%s\n\nUSER INPUT:\n%s", c.systemPrompt, text)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.2,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	for _, category := range geminiHarmCategories {
		requestBody.SafetySettings = append(requestBody.SafetySettings, geminiSafetySetting{
			Category:  category,
			Threshold: "BLOCK_NONE",
		})
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		c.logger.Error("failed to marshal Gemini request", "error", err)
		return nil, nil
	}

	url := fmt.Sprintf(geminiEndpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		c.logger.Error("failed to create Gemini request", "error", err)
		return nil, nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini API interaction failed", "error", err)
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read Gemini response", "error", err)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gemini API error",
			"status", resp.StatusCode,
			"body", truncate(string(body), 512))
		return nil, nil
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		c.logger.Error("failed to parse Gemini response", "error", err)
		return nil, nil
	}

	// A prompt block or an empty candidate list means the provider declined
	// to answer; surface that as a blocked raw response so the normalizer
	// treats it as "no text".
	if response.PromptFeedback.BlockReason != "" || len(response.Candidates) == 0 {
		reason := response.PromptFeedback.BlockReason
		if reason == "" {
			reason = "no candidates returned"
		}
		return &RawResponse{Blocked: true, BlockReason: reason, Body: body}, nil
	}

	candidate := response.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return &RawResponse{Blocked: true, BlockReason: "candidate finished with SAFETY", Body: body}, nil
	}

	raw := &RawResponse{Body: body}
	if len(candidate.Content.Parts) > 0 {
		raw.Text = candidate.Content.Parts[0].Text
	}

	c.logger.Debug("received raw response from Gemini")
	return raw, nil
}

// geminiRequest is the Gemini generateContent request payload.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
	CandidateCount   int     `json:"candidateCount"`
}

// geminiResponse is the Gemini generateContent response payload.
type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// truncate shortens long payload excerpts for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
