package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Models:      []string{"model-a", "model-b"},
		BaseBackoff: time.Millisecond,
	}
}

func textResponse(text string) providerGenerateResponse {
	return providerGenerateResponse{
		Candidates: []providerCandidate{
			{
				Content: providerContent{
					Role:  "model",
					Parts: []providerPart{{Text: text}},
				},
				FinishReason: "STOP",
			},
		},
	}
}

func writeProviderError(w http.ResponseWriter, httpStatus int, apiStatus, msg string) {
	var perr providerErrorResponse
	perr.Error.Code = httpStatus
	perr.Error.Status = apiStatus
	perr.Error.Message = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(perr)
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("server should not be called without an API key")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	client, err := NewClient(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	if !IsCode(err, CodeNotConfigured) {
		t.Fatalf("expected CodeNotConfigured, got %v", err)
	}
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotReq providerGenerateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("unmarshal request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(textResponse("Brush Milo's coat weekly."))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	text, err := client.Generate(context.Background(), &GenerateRequest{
		Prompt: "one tip please",
		Options: GenerateOptions{
			Temperature:     0.7,
			MaxOutputTokens: 120,
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if text != "Brush Milo's coat weekly." {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotPath != "/v1beta/models/model-a:generateContent" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header: %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected request contents: %#v", gotReq.Contents)
	}
	if gotReq.Contents[0].Parts[0].Text != "one tip please" {
		t.Fatalf("unexpected prompt: %q", gotReq.Contents[0].Parts[0].Text)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.MaxOutputTokens != 120 {
		t.Fatalf("generation config not mapped: %#v", gotReq.GenerationConfig)
	}
}

func TestGenerateModelFallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		if strings.Contains(r.URL.Path, "model-a") {
			writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "model not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(textResponse("ok"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Generate(context.Background(), &GenerateRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := client.Generate(context.Background(), &GenerateRequest{Prompt: "hi again"}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if hits["/v1beta/models/model-a:generateContent"] != 1 {
		t.Fatalf("model-a should be probed exactly once, got %d", hits["/v1beta/models/model-a:generateContent"])
	}
	if hits["/v1beta/models/model-b:generateContent"] != 2 {
		t.Fatalf("model-b should serve both calls, got %d", hits["/v1beta/models/model-b:generateContent"])
	}
}

func TestGenerateRetriesTransientRateLimit(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		if n == 1 {
			writeProviderError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED",
				"Rate limit exceeded: requests per minute")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(textResponse("after retry"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	text, err := client.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "after retry" {
		t.Fatalf("unexpected text: %q", text)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestGenerateDailyQuotaNotRetried(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		writeProviderError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED",
			"Quota exceeded for quota metric 'Generate requests per day'")
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	if !IsCode(err, CodeDailyQuotaExceeded) {
		t.Fatalf("expected CodeDailyQuotaExceeded, got %v", err)
	}

	var ae *APIError
	if !errors.As(err, &ae) || ae.RetryAfter != 24*time.Hour {
		t.Fatalf("expected 24h retry-after, got %#v", ae)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Fatalf("daily quota must not be retried, got %d attempts", attempts)
	}
}

func TestGenerateRateLimitExhaustsRetries(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		writeProviderError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED",
			"requests per minute exceeded")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	client, err := NewClient(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	if !IsCode(err, CodeRateLimited) {
		t.Fatalf("expected CodeRateLimited, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (initial + 2 retries), got %d", attempts)
	}
}

func TestGenerateValidation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("server should not be called for an invalid request")
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Generate(context.Background(), &GenerateRequest{}); err == nil ||
		!strings.Contains(err.Error(), "invalid request") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
