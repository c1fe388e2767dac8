package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arjmehta/portfolio-assistant/internal/config"
)

// Verifier checks a captcha token against the verification service.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Turnstile verifies tokens against Cloudflare's siteverify endpoint.
type Turnstile struct {
	cfg    config.CaptchaConfig
	client *http.Client
}

// NewTurnstile builds the verifier from configuration.
func NewTurnstile(cfg config.CaptchaConfig) *Turnstile {
	return &Turnstile{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify posts the token to siteverify and reports whether it passed.
func (t *Turnstile) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", t.cfg.Secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}

	return payload.Success, nil
}
