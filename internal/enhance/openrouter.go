package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Client talks to an OpenRouter-compatible chat-completions endpoint and
// implements both Classifier and Synthesizer.
type Client struct {
	apiKey        string
	baseURL       string
	classifyModel string
	synthModel    string
	httpClient    *http.Client
}

// NewClient builds a collaborator client. timeout bounds every request.
func NewClient(apiKey, baseURL, classifyModel, synthModel string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if synthModel == "" {
		synthModel = classifyModel
	}
	return &Client{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		classifyModel: classifyModel,
		synthModel:    synthModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const classifySystemPrompt = `You classify sections of academic thesis documents by semantic intent.
Valid categories: cover, approval, statement, dedication, motto, preface,
abstract_id, abstract_en, glossary, toc, list_tables, list_figures, unknown.
Respond with JSON only: {"classifications":[{"category":"...","confidence":0.0,"reasoning":"..."}]}
One entry per input block, in input order. Never modify the text.`

// Classify sends the blocks to the collaborator and parses its verdicts.
func (c *Client) Classify(ctx context.Context, blocks []string) ([]Classification, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	var sb strings.Builder
	for i, b := range blocks {
		fmt.Fprintf(&sb, "BLOCK %d:\n%s\n---\n", i, truncate(b, 2000))
	}

	raw, err := c.complete(ctx, c.classifyModel, classifySystemPrompt, sb.String(), 0.2)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Classifications []Classification `json:"classifications"`
	}
	if err := json.Unmarshal([]byte(stripCodeBlock(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification json: %w (raw: %s)", err, truncate(raw, 200))
	}
	out := parsed.Classifications
	// Pad so callers can index by block position.
	for len(out) < len(blocks) {
		out = append(out, Classification{Category: "unknown", Reasoning: "not classified"})
	}
	return out[:len(blocks)], nil
}

const synthesizeSystemPrompt = `You are an academic writing assistant for thesis documents.
Generate plain text only, no formatting marks, 100-250 words, formal register.
Write in Indonesian unless the requested kind is abstract_en.`

// Synthesize generates filler text for a missing front-matter category.
func (c *Client) Synthesize(ctx context.Context, kind string, fields map[string]string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the %s section for a thesis.\n", kind)
	for _, key := range []string{"title", "author", "institution", "program", "date"} {
		if v := fields[key]; v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, v)
		}
	}
	text, err := c.complete(ctx, c.synthModel, synthesizeSystemPrompt, sb.String(), 0.7)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete performs one chat-completions call with retry on transient errors.
func (c *Client) complete(ctx context.Context, model, system, user string, temperature float64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		text, err := c.completeOnce(ctx, model, system, user, temperature)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *Client) completeOnce(ctx context.Context, model, system, user string, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("collaborator request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("collaborator status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("collaborator error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from collaborator")
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

const maxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// backoff returns a duration for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
