package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatrelay/internal/apperr"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("test-key", srv.URL)
}

func TestConfigured(t *testing.T) {
	if NewClient("").Configured() {
		t.Error("client with empty key reports configured")
	}
	if !NewClient("sk-test").Configured() {
		t.Error("client with key reports unconfigured")
	}
}

func TestChatStreaming(t *testing.T) {
	sseData := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\ndata: [DONE]\n\n"

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if !req.Stream {
			t.Error("expected stream=true in forwarded request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseData)
	})

	rc, err := c.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: json.RawMessage(`[{"role":"user","content":"hi"}]`),
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(body) != sseData {
		t.Errorf("stream body = %q, want %q", body, sseData)
	}
}

func TestChatCloseReleasesUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		w.(http.Flusher).Flush()
		// Hold the stream open until the client abandons it.
		<-r.Context().Done()
		close(upstreamDone)
	})

	rc, err := c.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: json.RawMessage(`[{"role":"user","content":"hi"}]`),
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	buf := make([]byte, 64)
	if _, err := rc.Read(buf); err != nil {
		t.Fatalf("reading first chunk: %v", err)
	}
	rc.Close()

	select {
	case <-upstreamDone:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream connection not released after Close")
	}
}

func TestChatVendorError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`)
	})

	_, err := c.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: json.RawMessage(`[]`),
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var vendorErr *apperr.Vendor
	if !errors.As(err, &vendorErr) {
		t.Fatalf("error type = %T, want *apperr.Vendor", err)
	}
	if vendorErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", vendorErr.Status)
	}
	if vendorErr.Message != "rate limit exceeded" {
		t.Errorf("message = %q, want vendor message", vendorErr.Message)
	}
}

func TestChatVendorErrorUnparseableBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	})

	_, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: json.RawMessage(`[]`)})

	var vendorErr *apperr.Vendor
	if !errors.As(err, &vendorErr) {
		t.Fatalf("error type = %T, want *apperr.Vendor", err)
	}
	if vendorErr.Message != "upstream unavailable" {
		t.Errorf("message = %q, want raw body", vendorErr.Message)
	}
}

func TestChatNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead endpoint
	c := NewClientWithBaseURL("test-key", srv.URL)

	_, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: json.RawMessage(`[]`)})

	var netErr *apperr.Network
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *apperr.Network", err)
	}
}

func TestChatComplete(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("ChatComplete must force stream=false")
		}
		fmt.Fprint(w, `{"id":"c1","choices":[{"message":{"role":"assistant","content":"the answer"}}]}`)
	})

	got, err := c.ChatComplete(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: json.RawMessage(`[{"role":"user","content":"q"}]`),
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("ChatComplete: %v", err)
	}
	if got != "the answer" {
		t.Errorf("content = %q, want %q", got, "the answer")
	}
}

func TestChatCompleteNoChoices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c1","choices":[]}`)
	})

	if _, err := c.ChatComplete(context.Background(), ChatRequest{Model: "m", Messages: json.RawMessage(`[]`)}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestEmbeddings(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q, want /embeddings", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "hello" {
			t.Errorf("input = %v", req.Input)
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.25,-0.5,1.0]}]}`)
	})

	vec, err := c.Embeddings(context.Background(), "text-embedding-3-small", "hello")
	if err != nil {
		t.Fatalf("Embeddings: %v", err)
	}
	want := []float32{0.25, -0.5, 1.0}
	if len(vec) != len(want) {
		t.Fatalf("len = %d, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}
