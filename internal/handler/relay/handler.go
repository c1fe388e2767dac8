package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	"github.com/arjmehta/portfolio-assistant/internal/service/captcha"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
	"github.com/arjmehta/portfolio-assistant/pkg/utils"
)

// Handler relays visitor messages to the portfolio owner by email. One
// endpoint accepts two request shapes: chat-originated (fromEmail/purpose)
// and form-originated (name/email/message), discriminated by the presence of
// fromEmail.
type Handler struct {
	sender      mail.Sender
	verifier    captcha.Verifier
	chatLimiter *ratelimit.Limiter
	formLimiter *ratelimit.Limiter
}

// New creates the relay gateway handler. A nil sender means the provider is
// unconfigured; a nil verifier disables the captcha step.
func New(sender mail.Sender, verifier captcha.Verifier, chatLimiter, formLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		sender:      sender,
		verifier:    verifier,
		chatLimiter: chatLimiter,
		formLimiter: formLimiter,
	}
}

// RegisterRoutes mounts the gateway endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/relay", h.handleRelay)
}

type request struct {
	// Chat-originated shape.
	FromEmail  string   `json:"fromEmail"`
	Purpose    string   `json:"purpose"`
	Transcript []string `json:"transcript"`

	// Form-originated shape.
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (h *Handler) handleRelay(w http.ResponseWriter, r *http.Request) {
	var payload request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if payload.FromEmail != "" {
		h.handleChatRelay(w, r, payload)
		return
	}
	h.handleFormRelay(w, r, payload)
}

func (h *Handler) handleChatRelay(w http.ResponseWriter, r *http.Request, payload request) {
	if payload.Purpose == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	if h.sender == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Email not configured")
		return
	}

	if h.chatLimiter != nil && !h.chatLimiter.Admit("relay-chat:"+utils.ClientIP(r), time.Now()) {
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	msg := mail.ComposeChatRelay(payload.FromEmail, payload.Purpose, payload.Transcript)
	if err := h.sender.Send(r.Context(), msg); err != nil {
		log.Printf("[relay] chat relay delivery failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to send")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleFormRelay(w http.ResponseWriter, r *http.Request, payload request) {
	if payload.Name == "" || payload.Email == "" || payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	if h.sender == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Email not configured")
		return
	}

	if h.formLimiter != nil && !h.formLimiter.Admit("relay-form:"+utils.ClientIP(r), time.Now()) {
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	// When a verification secret is configured, a token is mandatory.
	if h.verifier != nil {
		if payload.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Captcha required")
			return
		}
		ok, err := h.verifier.Verify(r.Context(), payload.Token)
		if err != nil {
			log.Printf("[relay] captcha verification error: %v", err)
		}
		if err != nil || !ok {
			utils.RespondError(w, http.StatusBadRequest, "Captcha failed")
			return
		}
	}

	msg := mail.ComposeContact(payload.Name, payload.Email, payload.Message)
	if err := h.sender.Send(r.Context(), msg); err != nil {
		log.Printf("[relay] contact delivery failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to send")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
