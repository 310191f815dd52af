package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "qwen2.5:3b"
)

const ollamaSystemPrompt = `You are a friendly clothing-shop assistant. ` +
	`Answer in one or two short sentences, in the customer's language.`

// OllamaResponder answers with a locally hosted model over Ollama's HTTP
// API. It is preferred for small talk, where a round trip to a hosted
// model is wasted money.
type OllamaResponder struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func NewOllamaResponder(baseURL, model string, maxTokens int) *OllamaResponder {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &OllamaResponder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OllamaResponder) Name() string { return "ollama" }

// Available probes the local daemon's tag listing with a short timeout.
func (o *OllamaResponder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *OllamaResponder) Generate(ctx context.Context, req *Request) (*Reply, error) {
	body := map[string]interface{}{
		"model":  o.model,
		"prompt": renderPrompt(req),
		"system": ollamaSystemPrompt,
		"stream": false,
		"options": map[string]interface{}{
			"num_predict": o.maxTokens,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ollama: unmarshal response: %w", err)
	}

	text := cleanLocalModelText(parsed.Response)
	if text == "" {
		return nil, fmt.Errorf("ollama: empty response")
	}
	return &Reply{Content: text, Provider: o.Name(), Model: o.model}, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanLocalModelText strips reasoning blocks some local models emit and
// normalizes whitespace.
func cleanLocalModelText(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
