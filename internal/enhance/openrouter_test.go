package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode reply: %v", err)
	}
}

func TestClassify(t *testing.T) {
	var gotReq chatRequest
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		chatReply(t, w, "```json\n"+`{"classifications":[`+
			`{"category":"preface","confidence":0.9,"reasoning":"thanks the advisor"},`+
			`{"category":"abstract_id","confidence":0.85,"reasoning":"summary in Indonesian"}]}`+"\n```")
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "model-a", "model-b", 5*time.Second)
	got, err := c.Classify(context.Background(), []string{"Puji syukur...", "Penelitian ini..."})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReq.Model != "model-a" {
		t.Errorf("classification must use the classify model, got %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || !strings.Contains(gotReq.Messages[1].Content, "BLOCK 1:") {
		t.Errorf("expected numbered blocks in user message, got %+v", gotReq.Messages)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 classifications, got %d", len(got))
	}
	if got[0].Category != "preface" || got[0].Confidence != 0.9 {
		t.Errorf("first classification = %+v", got[0])
	}
	if got[1].Category != "abstract_id" {
		t.Errorf("second classification = %+v", got[1])
	}
}

func TestClassify_PadsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"classifications":[{"category":"motto","confidence":0.7}]}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", "", 5*time.Second)
	got, err := c.Classify(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected padding to 3 entries, got %d", len(got))
	}
	if got[1].Category != "unknown" || got[2].Category != "unknown" {
		t.Errorf("expected unknown padding, got %+v", got[1:])
	}
}

func TestClassify_NoBlocksNoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", "", 5*time.Second)
	got, err := c.Classify(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestClassify_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "Sure! Here are the classifications you asked for.")
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", "", 5*time.Second)
	if _, err := c.Classify(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClassify_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", "", 5*time.Second)
	_, err := c.Classify(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Error("4xx other than 429 must not be retryable")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

func TestSynthesize_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "synth-model" {
			t.Errorf("synthesis must use the synthesis model, got %q", req.Model)
		}
		if !strings.Contains(req.Messages[1].Content, "title: Sistem Pakar") {
			t.Errorf("expected metadata in prompt, got %q", req.Messages[1].Content)
		}
		chatReply(t, w, "  Puji syukur penulis panjatkan kepada Tuhan.  \n")
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "classify-model", "synth-model", 5*time.Second)
	got, err := c.Synthesize(context.Background(), "preface", map[string]string{"title": "Sistem Pakar"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got != "Puji syukur penulis panjatkan kepada Tuhan." {
		t.Errorf("expected trimmed text, got %q", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected one retry after 429, got %d attempts", n)
	}
}

func TestSynthesize_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", "", 30*time.Second)
	_, err := c.Synthesize(context.Background(), "preface", nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) || retryErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected RetryableError 503, got %v", err)
	}
	if n := calls.Load(); n != maxRetries {
		t.Errorf("expected %d attempts, got %d", maxRetries, n)
	}
}

func TestSynthesize_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewClient("k", srv.URL, "m", "", 5*time.Second)
	_, err := c.Synthesize(ctx, "preface", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k", "", "only-model", "", time.Second)
	if c.baseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.synthModel != "only-model" {
		t.Errorf("synthModel should default to classify model, got %q", c.synthModel)
	}

	c = NewClient("k", "http://example.test/v1/", "a", "b", time.Second)
	if c.baseURL != "http://example.test/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
}

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```json\n```", ""},
	}
	for _, tc := range cases {
		if got := stripCodeBlock(tc.in); got != tc.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRetryableError(t *testing.T) {
	err := &RetryableError{StatusCode: 429, Message: strings.Repeat("x", 500)}
	if !IsRetryable(err) {
		t.Error("RetryableError must be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", err)) {
		t.Error("wrapped RetryableError must be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error must not be retryable")
	}
	if len(err.Error()) > 260 {
		t.Errorf("message not truncated: %d chars", len(err.Error()))
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap with jitter", attempt, d)
		}
	}
}
