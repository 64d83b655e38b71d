package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/generator"
)

func TestGenerateSendsSystemAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "be brief", req.Messages[0].Content)
		require.Equal(t, "user", req.Messages[1].Role)
		require.Equal(t, "what colour is the sky?", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "Blue."}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 12, "completion_tokens": 2, "total_tokens": 14},
		})
	}))
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("test"),
		generator.WithModel("gpt-test"),
		generator.WithSystem("be brief"),
		WithBaseURL(srv.URL),
	)

	rsp, err := g.Generate(t.Context(), "what colour is the sky?")
	require.NoError(t, err)
	require.Equal(t, "Blue.", rsp)
}

func TestGenerateEmptyChoicesFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	g := NewGenerator(generator.WithApiKey("test"), WithBaseURL(srv.URL))

	_, err := g.Generate(t.Context(), "hi")
	require.ErrorIs(t, err, generator.ErrGeneration)
}
