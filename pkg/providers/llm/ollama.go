package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lokutor-ai/hearth/pkg/orchestrator"
)

// OllamaLLM speaks a local Ollama server's streaming /api/chat endpoint,
// with the SPEC_FULL.md §4.8 truncation-retry and /api/generate fallback
// baked in: callers only ever see the final merged text.
type OllamaLLM struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaLLM(baseURL, model string) *OllamaLLM {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaLLM{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  http.DefaultClient,
	}
}

func (l *OllamaLLM) Name() string {
	return "ollama-llm"
}

type ollamaChatChunk struct {
	Message struct {
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

// chatOnce streams one /api/chat call to completion and returns the merged
// content, whether a thinking trace was present, and whether the reply was
// truncated (done_reason=="length").
func (l *OllamaLLM) chatOnce(ctx context.Context, messages []orchestrator.Message, opts orchestrator.ChatOptions) (content string, hadThinking bool, truncated bool, err error) {
	payload := map[string]interface{}{
		"model":    l.model,
		"messages": messages,
		"stream":   true,
		"think":    opts.Think,
		"options": map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, false, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", false, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", false, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, false, fmt.Errorf("ollama chat error (status %d)", resp.StatusCode)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		sb.WriteString(chunk.Message.Content)
		if chunk.Message.Thinking != "" {
			hadThinking = true
		}
		if chunk.Done {
			truncated = chunk.DoneReason == "length"
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, false, err
	}
	return sb.String(), hadThinking, truncated, nil
}

func (l *OllamaLLM) generate(ctx context.Context, prompt string, opts orchestrator.ChatOptions) (string, error) {
	payload := map[string]interface{}{
		"model":  l.model,
		"prompt": prompt,
		"stream": false,
		"think":  false,
		"options": map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate error (status %d)", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// Complete implements the retry ladder described in SPEC_FULL.md §4.8 step 3:
// one retry with a larger token budget and think=false when the first reply
// is truncated; one more think=false retry if content is still empty but a
// thinking trace was present; finally a non-chat /api/generate fallback.
func (l *OllamaLLM) Complete(ctx context.Context, messages []orchestrator.Message, opts orchestrator.ChatOptions) (string, error) {
	content, hadThinking, truncated, err := l.chatOnce(ctx, messages, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}

	if truncated {
		retryOpts := opts
		retryOpts.MaxTokens = opts.MaxTokens * 2
		if retryOpts.MaxTokens <= 0 {
			retryOpts.MaxTokens = 512
		}
		retryOpts.Think = false
		content, hadThinking, _, err = l.chatOnce(ctx, messages, retryOpts)
		if err != nil {
			return "", fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
		}
	}

	if content == "" && hadThinking {
		retryOpts := opts
		retryOpts.Think = false
		content, _, _, err = l.chatOnce(ctx, messages, retryOpts)
		if err != nil {
			return "", fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
		}
	}

	if content != "" {
		return content, nil
	}

	prompt := flattenMessages(messages)
	content, err = l.generate(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", orchestrator.ErrLLMFailed, err)
	}
	return content, nil
}

func flattenMessages(messages []orchestrator.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
