package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docslice/internal/classifier"
	"docslice/internal/classifier/claude"
	"docslice/internal/config"
	"docslice/internal/port"
)

func providerConfig() *config.ClassifierProviderConfig {
	return &config.ClassifierProviderConfig{
		Provider: "claude",
		APIKey:   "test-key",
	}
}

func messagesResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	}
}

func TestProposeBoundaries_Success(t *testing.T) {
	var gotReq map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(messagesResponse(
			`{"documents":[{"title":"Lab Results","category":"Lab Result","start_page":1,"end_page":3}]}`,
		))
	}))
	defer server.Close()

	c := claude.NewClassifierWithEndpoint(providerConfig(), server.URL)
	proposals, err := c.ProposeBoundaries(context.Background(), port.ClassifyInput{
		PageTexts:   []string{"page one", "page two", "page three"},
		ContextHint: "medical bundle",
	})

	assert.NoError(t, err)
	assert.Len(t, proposals, 1)
	assert.Equal(t, "Lab Results", proposals[0].Title)
	assert.Equal(t, 1, proposals[0].StartPage)
	assert.Equal(t, 3, proposals[0].EndPage)

	assert.Equal(t, "claude-sonnet-4-20250514", gotReq["model"])
	messages := gotReq["messages"].([]interface{})
	prompt := messages[0].(map[string]interface{})["content"].(string)
	assert.Contains(t, prompt, "--- PAGE 1 ---")
	assert.Contains(t, prompt, "medical bundle")
}

func TestProposeBoundaries_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	c := claude.NewClassifierWithEndpoint(providerConfig(), server.URL)
	_, err := c.ProposeBoundaries(context.Background(), port.ClassifyInput{PageTexts: []string{"p1"}})

	var rle *classifier.RateLimitError
	assert.True(t, errors.As(err, &rle))
	assert.Equal(t, "claude", rle.Provider)
	assert.Equal(t, 30*time.Second, rle.RetryAfter)
}

func TestProposeBoundaries_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error"}}`))
	}))
	defer server.Close()

	c := claude.NewClassifierWithEndpoint(providerConfig(), server.URL)
	_, err := c.ProposeBoundaries(context.Background(), port.ClassifyInput{PageTexts: []string{"p1"}})

	assert.Error(t, err)
	var rle *classifier.RateLimitError
	assert.False(t, errors.As(err, &rle))
}

func TestProposeBoundaries_TruncatedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]string{{"type": "text", "text": `{"documents":[`}},
			"stop_reason": "max_tokens",
		})
	}))
	defer server.Close()

	c := claude.NewClassifierWithEndpoint(providerConfig(), server.URL)
	_, err := c.ProposeBoundaries(context.Background(), port.ClassifyInput{PageTexts: []string{"p1"}})

	assert.ErrorContains(t, err, "max_tokens")
}

func TestProposeBoundaries_ConversationalReply(t *testing.T) {
	// A chatty non-JSON answer is normalized to zero proposals, not an error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(messagesResponse("Sorry, I cannot see any documents here."))
	}))
	defer server.Close()

	c := claude.NewClassifierWithEndpoint(providerConfig(), server.URL)
	proposals, err := c.ProposeBoundaries(context.Background(), port.ClassifyInput{PageTexts: []string{"p1"}})

	assert.NoError(t, err)
	assert.Empty(t, proposals)
}
