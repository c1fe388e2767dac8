package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/arjmehta/portfolio-assistant/internal/config"
)

// Message is a composed email ready for dispatch. Reply-to is always the
// requester's address so the owner can answer directly.
type Message struct {
	Subject string
	Text    string
	ReplyTo string
}

// Sender dispatches a composed message to the portfolio owner.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service implements Sender on top of the Resend API.
type Service struct {
	client *resend.Client
	cfg    config.MailConfig
}

// NewService builds the Resend-backed sender.
func NewService(cfg config.MailConfig) *Service {
	return &Service{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

// Send dispatches the message to the configured destination address.
func (s *Service) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{s.cfg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// ComposeChatRelay builds the email for a chat-originated relay request,
// framing the last few transcript lines under the visitor's message.
func ComposeChatRelay(fromEmail, purpose string, transcript []string) Message {
	lines := "(none)"
	if len(transcript) > 0 {
		lines = strings.Join(transcript, "\n")
	}

	return Message{
		Subject: fmt.Sprintf("AI chat email from visitor (%s)", fromEmail),
		Text:    fmt.Sprintf("From: %s\n\nPurpose / Message:\n%s\n\n---\nTranscript (last turns):\n%s", fromEmail, purpose, lines),
		ReplyTo: fromEmail,
	}
}

// ComposeContact builds the email for a form-originated contact request.
func ComposeContact(name, email, message string) Message {
	return Message{
		Subject: fmt.Sprintf("Portfolio contact from %s", name),
		Text:    message,
		ReplyTo: email,
	}
}
