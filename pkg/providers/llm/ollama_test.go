package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChatChunks(t *testing.T, w http.ResponseWriter, chunks ...ollamaChatChunk) {
	t.Helper()
	for _, c := range chunks {
		b, err := json.Marshal(c)
		require.NoError(t, err)
		_, err = w.Write(append(b, '\n'))
		require.NoError(t, err)
	}
}

func TestOllamaCompleteMergesStreamedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChatChunks(t, w,
			ollamaChatChunk{Message: struct {
				Content  string `json:"content"`
				Thinking string `json:"thinking"`
			}{Content: "hello "}},
			ollamaChatChunk{Message: struct {
				Content  string `json:"content"`
				Thinking string `json:"thinking"`
			}{Content: "world"}, Done: true, DoneReason: "stop"},
		)
	}))
	defer server.Close()

	l := NewOllamaLLM(server.URL, "llama3")
	resp, err := l.Complete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, orchestrator.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp)
}

func TestOllamaCompleteRetriesOnTruncation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Options struct {
				NumPredict int `json:"num_predict"`
			} `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if calls == 1 {
			writeChatChunks(t, w, ollamaChatChunk{Message: struct {
				Content  string `json:"content"`
				Thinking string `json:"thinking"`
			}{Content: "cut off"}, Done: true, DoneReason: "length"})
			return
		}
		assert.Greater(t, req.Options.NumPredict, 0)
		writeChatChunks(t, w, ollamaChatChunk{Message: struct {
			Content  string `json:"content"`
			Thinking string `json:"thinking"`
		}{Content: "complete reply"}, Done: true, DoneReason: "stop"})
	}))
	defer server.Close()

	l := NewOllamaLLM(server.URL, "llama3")
	resp, err := l.Complete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, orchestrator.ChatOptions{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "complete reply", resp)
	assert.Equal(t, 2, calls)
}

func TestOllamaCompleteFallsBackToGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			writeChatChunks(t, w, ollamaChatChunk{Done: true, DoneReason: "stop"})
		case "/api/generate":
			json.NewEncoder(w).Encode(map[string]string{"response": "fallback reply"})
		}
	}))
	defer server.Close()

	l := NewOllamaLLM(server.URL, "llama3")
	resp, err := l.Complete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, orchestrator.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fallback reply", resp)
}

func TestOllamaChatOnceDetectsThinkingTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := bufio.NewWriter(w)
		writeChatChunks(t, w, ollamaChatChunk{Message: struct {
			Content  string `json:"content"`
			Thinking string `json:"thinking"`
		}{Thinking: "pondering..."}, Done: true, DoneReason: "stop"})
		bw.Flush()
	}))
	defer server.Close()

	l := NewOllamaLLM(server.URL, "llama3")
	_, hadThinking, _, err := l.chatOnce(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, orchestrator.ChatOptions{})
	require.NoError(t, err)
	assert.True(t, hadThinking)
}
