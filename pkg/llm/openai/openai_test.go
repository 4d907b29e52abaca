package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/entrhq/browserguard/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [
    {"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "[{\"action\":\"wait\"}]"}}
  ]
}`

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestNewProvider_Defaults(t *testing.T) {
	p, err := NewProvider("sk-test")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())

	p, err = NewProvider("sk-test", WithModel("gpt-4o-mini"), WithBaseURL("http://localhost:8080/v1"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.GetModel())
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
}

func TestProvider_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	}))
	defer server.Close()

	p, err := NewProvider("sk-test", WithBaseURL(server.URL), WithModel("gpt-4o"))
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), []*llm.Message{
		llm.NewSystemMessage("plan only"),
		llm.NewUserMessage("click the button"),
	})
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, reply.Role)
	assert.Equal(t, `[{"action":"wait"}]`, reply.Content)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, float64(0), body["temperature"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	second := messages[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
}

func TestProvider_Complete_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer server.Close()

	p, err := NewProvider("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*llm.Message{llm.NewUserMessage("hi")})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"gpt-4o","choices":[]}`))
	}))
	defer server.Close()

	p, err := NewProvider("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*llm.Message{llm.NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
