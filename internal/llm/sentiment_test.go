package llm

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

// stubClient is a test implementation of the Client interface.
type stubClient struct {
	raw   *RawResponse
	err   error
	calls int
}

func (s *stubClient) SendPrompt(context.Context, string) (*RawResponse, error) {
	s.calls++
	return s.raw, s.err
}

func (s *stubClient) Provider() string { return "stub" }
func (s *stubClient) Model() string    { return "stub-model" }

func TestAnalyzerGetResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("valid payload yields records", func(t *testing.T) {
		client := &stubClient{raw: &RawResponse{
			Text: `[{"symbol":"AAPL","sentiment_score":0.5,"sentiment_confidence":0.8,"sentiment_label":"BUY","key_rationale":"x"}]`,
		}}
		analyzer := NewAnalyzerWithClient(client, testLogger())

		records, err := analyzer.GetResponse(ctx, "discussion text")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "AAPL", records[0].Symbol)
	})

	t.Run("quota exhaustion propagates as a hard failure", func(t *testing.T) {
		client := &stubClient{err: common.ErrQuotaExceeded}
		analyzer := NewAnalyzerWithClient(client, testLogger())

		records, err := analyzer.GetResponse(ctx, "text")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrQuotaExceeded)
		assert.Nil(t, records)
	})

	t.Run("absent raw response degrades to nil without error", func(t *testing.T) {
		client := &stubClient{}
		analyzer := NewAnalyzerWithClient(client, testLogger())

		records, err := analyzer.GetResponse(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, records)
	})

	t.Run("safety block degrades to nil without error", func(t *testing.T) {
		client := &stubClient{raw: &RawResponse{Blocked: true, BlockReason: "SAFETY"}}
		analyzer := NewAnalyzerWithClient(client, testLogger())

		records, err := analyzer.GetResponse(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, records)
	})

	t.Run("malformed payload degrades to nil and logs the raw content", func(t *testing.T) {
		handler := &captureHandler{}
		client := &stubClient{raw: &RawResponse{Text: `[{"symbol": "AAPL", truncated`}}
		analyzer := NewAnalyzerWithClient(client, slog.New(handler))

		records, err := analyzer.GetResponse(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, records)
		assert.True(t, handler.contains("failed to parse model response"))
	})

	t.Run("empty record list is success", func(t *testing.T) {
		client := &stubClient{raw: &RawResponse{Text: `[]`}}
		analyzer := NewAnalyzerWithClient(client, testLogger())

		records, err := analyzer.GetResponse(ctx, "text")
		require.NoError(t, err)
		require.NotNil(t, records)
		assert.Empty(t, records)
	})
}
