package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arjmehta/portfolio-assistant/internal/config"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) *Turnstile {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTurnstile(config.CaptchaConfig{
		Secret:    "test-secret",
		VerifyURL: server.URL,
	})
}

func TestVerifySuccess(t *testing.T) {
	verifier := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm err: %v", err)
		}
		if r.PostForm.Get("secret") != "test-secret" {
			t.Fatalf("unexpected secret: %s", r.PostForm.Get("secret"))
		}
		if r.PostForm.Get("response") != "tok" {
			t.Fatalf("unexpected token: %s", r.PostForm.Get("response"))
		}
		w.Write([]byte(`{"success":true}`))
	})

	ok, err := verifier.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if !ok {
		t.Fatal("expected token to verify")
	}
}

func TestVerifyFailure(t *testing.T) {
	verifier := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})

	ok, err := verifier.Verify(context.Background(), "bad")
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if ok {
		t.Fatal("expected token to fail verification")
	}
}

func TestVerifyMalformedResponse(t *testing.T) {
	verifier := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := verifier.Verify(context.Background(), "tok"); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
