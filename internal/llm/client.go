package llm

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the capability interface implemented by every provider adapter.
//
// SendPrompt returns (nil, nil) when the provider produced no usable
// response: transport failure, provider-side error, or a safety block. The
// caller treats that absence uniformly regardless of cause. Errors are
// reserved for hard failures that must stop further scheduling: a spent
// daily quota (common.ErrQuotaExceeded) or a canceled context.
type Client interface {
	SendPrompt(ctx context.Context, text string) (*RawResponse, error)
	Provider() string
	Model() string
}

// Config holds configuration for constructing a provider client.
type Config struct {
	Provider          string
	Model             string
	APIKey            string
	PromptPath        string
	StatePath         string
	RequestsPerMinute int
	RequestsPerDay    int
	Timeout           time.Duration
}

// RawResponse is the provider-neutral view of one raw model response.
// Each adapter fills only the fields its backend produces; the normalizer
// in extractText decides which one carries the payload.
type RawResponse struct {
	// Text is the primary text field for providers that expose one directly.
	Text string
	// Choices is the chat-completions shape: a list of candidate messages.
	Choices []RawChoice
	// OutputText is the flattened output field some response APIs expose.
	OutputText string
	// BlockReason is set when the provider declined to answer; the response
	// carries no text in that case.
	BlockReason string
	// Body is the unparsed payload, kept for last-resort extraction and
	// diagnostics.
	Body json.RawMessage
	// Blocked marks a safety block.
	Blocked bool
}

// RawChoice is one candidate in a choice-list response.
type RawChoice struct {
	Message RawMessage `json:"message"`
}

// RawMessage is the nested message body inside a choice.
type RawMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
