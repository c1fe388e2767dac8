package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/handler"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
)

type recordingSender struct {
	sent int
}

func (s *recordingSender) Send(_ context.Context, _ mail.Message) error {
	s.sent++
	return nil
}

func newRouter(sender mail.Sender) http.Handler {
	return handler.NewRouter(handler.Dependencies{
		Sender: sender,
		RateLimit: config.RateLimitConfig{
			Window:       time.Minute,
			ReplyMax:     5,
			RelayChatMax: 3,
			RelayFormMax: 5,
		},
		Widget: config.WidgetConfig{
			IdleTimeout:    time.Minute,
			TypingInterval: time.Millisecond,
		},
	})
}

func post(r http.Handler, path string, body map[string]any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.4:7001"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

// An unconfigured model provider answers valid messages with 503.
func TestReplyEndpointUnconfigured(t *testing.T) {
	r := newRouter(nil)

	resp := post(r, "/gateway/reply", map[string]any{"message": "hello"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if payload["error"] != "AI unavailable" {
		t.Fatalf("unexpected error: %s", payload["error"])
	}
}

// Six chat-originated relay calls from one client under a 3/min policy:
// first three succeed, the rest are rejected without sending.
func TestRelayEndpointRateLimiting(t *testing.T) {
	sender := &recordingSender{}
	r := newRouter(sender)

	body := map[string]any{"fromEmail": "visitor@example.com", "purpose": "hi"}

	for i := 0; i < 6; i++ {
		resp := post(r, "/gateway/relay", body)
		if i < 3 && resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.Code)
		}
		if i >= 3 && resp.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: expected 429, got %d", i+1, resp.Code)
		}
	}

	if sender.sent != 3 {
		t.Fatalf("expected 3 emails sent, got %d", sender.sent)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodOptions, "/gateway/reply", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
