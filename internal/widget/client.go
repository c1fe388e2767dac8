package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
)

// Client implements Gateway over HTTP against the gateway endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a gateway client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type replyRequest struct {
	Message  string              `json:"message"`
	History  []chat.HistoryEntry `json:"history,omitempty"`
	Identity string              `json:"identity,omitempty"`
}

type replyResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

// Reply posts the message and prior turns to the reply gateway and returns
// the assistant's text.
func (c *Client) Reply(ctx context.Context, message string, history []chat.Turn, identity string) (string, error) {
	payload := replyRequest{
		Message:  message,
		History:  chat.ToHistory(history),
		Identity: identity,
	}

	var result replyResponse
	status, err := c.post(ctx, "/gateway/reply", payload, &result)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("reply gateway returned %d: %s", status, result.Error)
	}
	return result.Reply, nil
}

type relayRequest struct {
	FromEmail  string   `json:"fromEmail"`
	Purpose    string   `json:"purpose"`
	Transcript []string `json:"transcript,omitempty"`
}

type relayResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// RelayEmail posts a chat-originated relay request to the relay gateway.
func (c *Client) RelayEmail(ctx context.Context, fromEmail, purpose string, transcript []string) error {
	payload := relayRequest{
		FromEmail:  fromEmail,
		Purpose:    purpose,
		Transcript: transcript,
	}

	var result relayResponse
	status, err := c.post(ctx, "/gateway/relay", payload, &result)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !result.OK {
		return fmt.Errorf("relay gateway returned %d: %s", status, result.Error)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, result interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return resp.StatusCode, nil
}
