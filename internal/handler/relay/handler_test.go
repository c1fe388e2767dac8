package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
)

type stubSender struct {
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubVerifier struct {
	ok  bool
	err error
}

func (v *stubVerifier) Verify(_ context.Context, token string) (bool, error) {
	return v.ok, v.err
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postRelay(r http.Handler, body map[string]any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/relay", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:5522"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return payload["error"]
}

func TestChatRelaySuccess(t *testing.T) {
	sender := &stubSender{}
	r := setupRouter(New(sender, nil, nil, nil))

	resp := postRelay(r, map[string]any{
		"fromEmail":  "visitor@example.com",
		"purpose":    "Project inquiry",
		"transcript": []string{"user: hi", "assistant: hello"},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(sender.sent))
	}
	if sender.sent[0].ReplyTo != "visitor@example.com" {
		t.Fatalf("unexpected reply-to: %s", sender.sent[0].ReplyTo)
	}
	if !strings.Contains(sender.sent[0].Text, "user: hi") {
		t.Fatal("email body missing transcript")
	}
}

func TestChatRelayMissingFields(t *testing.T) {
	r := setupRouter(New(&stubSender{}, nil, nil, nil))

	resp := postRelay(r, map[string]any{"fromEmail": "visitor@example.com"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Missing fields" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestFormRelayMissingFields(t *testing.T) {
	r := setupRouter(New(&stubSender{}, nil, nil, nil))

	resp := postRelay(r, map[string]any{"name": "Dana", "email": "dana@example.com"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Missing fields" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestRelayUnconfigured(t *testing.T) {
	r := setupRouter(New(nil, nil, nil, nil))

	resp := postRelay(r, map[string]any{"fromEmail": "a@b.c", "purpose": "hi"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Email not configured" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestChatRelayRateLimit(t *testing.T) {
	sender := &stubSender{}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), time.Minute, 3)
	r := setupRouter(New(sender, nil, limiter, nil))

	body := map[string]any{"fromEmail": "visitor@example.com", "purpose": "hi"}

	// 6 calls within the window under a 3/min policy: first 3 pass, rest 429.
	for i := 0; i < 3; i++ {
		if resp := postRelay(r, body); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 3; i++ {
		resp := postRelay(r, body)
		if resp.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: expected 429, got %d", i+4, resp.Code)
		}
		if got := decodeError(t, resp); got != "Rate limit exceeded" {
			t.Fatalf("unexpected error: %s", got)
		}
	}

	if len(sender.sent) != 3 {
		t.Fatalf("rejected requests must not send email, got %d sends", len(sender.sent))
	}
}

func TestFormRelayCaptchaRequired(t *testing.T) {
	r := setupRouter(New(&stubSender{}, &stubVerifier{ok: true}, nil, nil))

	resp := postRelay(r, map[string]any{"name": "Dana", "email": "dana@example.com", "message": "hi"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Captcha required" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestFormRelayCaptchaFailed(t *testing.T) {
	r := setupRouter(New(&stubSender{}, &stubVerifier{ok: false}, nil, nil))

	resp := postRelay(r, map[string]any{
		"name": "Dana", "email": "dana@example.com", "message": "hi", "token": "bad",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Captcha failed" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestFormRelayCaptchaPasses(t *testing.T) {
	sender := &stubSender{}
	r := setupRouter(New(sender, &stubVerifier{ok: true}, nil, nil))

	resp := postRelay(r, map[string]any{
		"name": "Dana", "email": "dana@example.com", "message": "hi", "token": "good",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != "Portfolio contact from Dana" {
		t.Fatalf("unexpected send state: %+v", sender.sent)
	}
}

func TestRelayDeliveryFailure(t *testing.T) {
	r := setupRouter(New(&stubSender{err: errors.New("provider down")}, nil, nil, nil))

	resp := postRelay(r, map[string]any{"fromEmail": "a@b.c", "purpose": "hi"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if got := decodeError(t, resp); got != "Failed to send" {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestRelayMalformedBody(t *testing.T) {
	r := setupRouter(New(&stubSender{}, nil, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader("{nope"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
