package reply

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	"github.com/arjmehta/portfolio-assistant/pkg/utils"
)

// Service generates an assistant reply for a visitor message.
type Service interface {
	Reply(ctx context.Context, history []chat.Turn, message, identity string) (string, error)
}

// Handler proxies visitor messages to the language model provider.
type Handler struct {
	ai      Service
	limiter *ratelimit.Limiter
}

// New creates the reply gateway handler. A nil service means the provider is
// unconfigured and every request is answered with 503.
func New(ai Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{ai: ai, limiter: limiter}
}

// RegisterRoutes mounts the gateway endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reply", h.handleReply)
}

type request struct {
	Message  string              `json:"message"`
	History  []chat.HistoryEntry `json:"history"`
	Identity string              `json:"identity"`
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Missing message")
		return
	}
	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing message")
		return
	}

	// Provider precondition comes before any external work.
	if h.ai == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "AI unavailable")
		return
	}

	if h.limiter != nil && !h.limiter.Admit("reply:"+utils.ClientIP(r), time.Now()) {
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	history := chat.ToTurns(payload.History)

	reply, err := h.ai.Reply(r.Context(), history, payload.Message, payload.Identity)
	if err != nil {
		log.Printf("[reply] upstream failure: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
