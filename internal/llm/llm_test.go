package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantType any
		wantErr  bool
	}{
		{name: "groq default", cfg: Config{APIKey: "k"}, wantType: &OpenAIClient{}},
		{name: "openai", cfg: Config{Provider: ProviderOpenAI, APIKey: "k"}, wantType: &OpenAIClient{}},
		{name: "anthropic", cfg: Config{Provider: ProviderAnthropic, APIKey: "k"}, wantType: &AnthropicClient{}},
		{name: "missing key", cfg: Config{Provider: ProviderGroq}, wantErr: true},
		{name: "unknown provider", cfg: Config{Provider: "palm", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, c)
		})
	}
}

func TestNew_GroqDefaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	oc := c.(*OpenAIClient)
	assert.Equal(t, "llama-3.3-70b-versatile", oc.Model())
	assert.InDelta(t, 0.1, oc.temperature, 1e-6)
}

func TestModelName(t *testing.T) {
	groq, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", ModelName(groq))

	claude, err := New(Config{Provider: ProviderAnthropic, APIKey: "k", Model: "claude-x"})
	require.NoError(t, err)
	assert.Equal(t, "claude-x", ModelName(claude))

	assert.Equal(t, "", ModelName(nil))
}

func TestOpenAIClient_ZeroTemperatureIsSent(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m", Temperature: Temperature(0)})
	_, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)

	require.Contains(t, gotBody, "temperature")
	assert.InDelta(t, 0, gotBody["temperature"], 1e-6)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[{\"title\":\"Yoga\"}]"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"Yoga"}]`, out)

	assert.Equal(t, "llama-3.3-70b-versatile", gotBody["model"])
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].(map[string]any)["content"])
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := c.Complete(context.Background(), "hello")
	assert.Error(t, err)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("Anthropic-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"Nothing today."}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":3}}`))
	}))
	defer server.Close()

	c := NewAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL, Temperature: Temperature(0)})
	out, err := c.Complete(context.Background(), "what is due?")
	require.NoError(t, err)
	assert.Equal(t, "Nothing today.", out)

	assert.Equal(t, defaultAnthropicModel, gotBody["model"])
	assert.EqualValues(t, defaultMaxTokens, gotBody["max_tokens"])
	require.Contains(t, gotBody, "temperature")
	assert.EqualValues(t, 0, gotBody["temperature"])

	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	content := msg["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "what is due?", content[0].(map[string]any)["text"])
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"oops"}}`},
		{"overloaded", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"busy"}}`},
		{"empty content", http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","content":[]}`},
		{"bad json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewAnthropicClient(Config{APIKey: "k", BaseURL: server.URL})
			_, err := c.Complete(context.Background(), "p")
			assert.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}
