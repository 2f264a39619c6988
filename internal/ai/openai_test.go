package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete_SendsRequestAndTrims(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("auth=%q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello  "}}],"usage":{"total_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(&OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Model: "m1"})
	out, err := c.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("out=%q", out)
	}
	if got.Model != "m1" || got.MaxTokens != 1024 || got.Temperature == nil || *got.Temperature != 0.8 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "usr" {
		t.Fatalf("messages=%+v", got.Messages)
	}
}

func TestOpenAIClient_Complete_ClassifiesStatus(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   ErrorKind
	}{
		{http.StatusUnauthorized, `{"error":"bad key"}`, KindAuth},
		{http.StatusPaymentRequired, `{}`, KindQuota},
		{http.StatusTooManyRequests, `{"error":{"code":"insufficient_quota"}}`, KindQuota},
		{http.StatusTooManyRequests, `{"error":"slow down"}`, KindRateLimit},
		{http.StatusServiceUnavailable, ``, KindNetwork},
		{http.StatusBadRequest, `{}`, KindUnknown},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		c := NewOpenAIClient(&OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := c.Complete(context.Background(), CompletionRequest{User: "x"})
		srv.Close()

		var ce *CompletionError
		if !errors.As(err, &ce) {
			t.Fatalf("status %d: expected CompletionError, got %v", tc.status, err)
		}
		if ce.Kind != tc.want || ce.Status != tc.status {
			t.Fatalf("status %d: kind=%s status=%d", tc.status, ce.Kind, ce.Status)
		}
		if ce.Hint() == "" {
			t.Fatalf("status %d: empty hint", tc.status)
		}
	}
}

func TestOpenAIClient_Complete_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(&OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), CompletionRequest{User: "x"}); KindOf(err) != KindUnknown {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	c := NewOpenAIClient(&OpenAIConfig{})
	if c.IsConfigured() {
		t.Fatalf("expected not configured")
	}
	_, err := c.Complete(context.Background(), CompletionRequest{User: "x"})
	if KindOf(err) != KindAuth {
		t.Fatalf("expected auth kind, got %v", err)
	}
	if c.Model() != DefaultModel {
		t.Fatalf("model=%q", c.Model())
	}
}

func TestKindOf_NetworkAndPlain(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatalf("nil error should have no kind")
	}
	if KindOf(context.DeadlineExceeded) != KindNetwork {
		t.Fatalf("deadline should be network")
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatalf("plain error should be unknown")
	}
}

func TestOpenAIClient_Complete_SendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(&OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "m1"})
	if _, err := c.Complete(context.Background(), CompletionRequest{User: "x", Temperature: Ptr(0.0)}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	temp, ok := raw["temperature"]
	if !ok || temp != 0.0 {
		t.Fatalf("temperature=%v present=%v, want explicit 0", temp, ok)
	}
}

func TestCompletionRequest_WithDefaults(t *testing.T) {
	got := CompletionRequest{}.withDefaults("m")
	if got.Temperature == nil || *got.Temperature != defaultTemperature || got.MaxTokens != defaultMaxTokens || got.Model != "m" {
		t.Fatalf("defaults=%+v", got)
	}
	got = CompletionRequest{Temperature: Ptr(0.0)}.withDefaults("m")
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Fatalf("zero temperature overridden: %v", got.Temperature)
	}
}
