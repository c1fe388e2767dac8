package widget

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
	widgetcore "github.com/arjmehta/portfolio-assistant/internal/widget"
	"github.com/arjmehta/portfolio-assistant/pkg/utils"
)

// AIService is the reply generator the bridge drives for chat submissions.
type AIService interface {
	Reply(ctx context.Context, history []chat.Turn, message, identity string) (string, error)
}

// Handler serves the chat widget over a websocket: each connection owns a
// session controller and receives state, turn, and typing frames as they
// happen.
type Handler struct {
	ai           AIService
	sender       mail.Sender
	replyLimiter *ratelimit.Limiter
	relayLimiter *ratelimit.Limiter
	widgetCfg    config.WidgetConfig
	upgrader     websocket.Upgrader
}

// New creates the widget bridge handler.
func New(ai AIService, sender mail.Sender, replyLimiter, relayLimiter *ratelimit.Limiter, widgetCfg config.WidgetConfig) *Handler {
	return &Handler{
		ai:           ai,
		sender:       sender,
		replyLimiter: replyLimiter,
		relayLimiter: relayLimiter,
		widgetCfg:    widgetCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// ChatMessage carries a user chat submission.
type ChatMessage struct {
	Text string `json:"text"`
}

// ModeMessage switches the widget surface.
type ModeMessage struct {
	Mode string `json:"mode"`
}

// EmailMessage carries a chat-originated email request.
type EmailMessage struct {
	FromEmail string `json:"fromEmail"`
	Purpose   string `json:"purpose"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// localGateway implements the controller's gateway port directly against the
// in-process services, consulting the same limiters as the HTTP endpoints.
type localGateway struct {
	ai           AIService
	sender       mail.Sender
	replyLimiter *ratelimit.Limiter
	relayLimiter *ratelimit.Limiter
	clientKey    string
}

var (
	errAIUnavailable    = errors.New("ai unavailable")
	errMailUnconfigured = errors.New("email not configured")
	errRateLimited      = errors.New("rate limit exceeded")
)

func (g *localGateway) Reply(ctx context.Context, message string, history []chat.Turn, identity string) (string, error) {
	if g.ai == nil {
		return "", errAIUnavailable
	}
	if g.replyLimiter != nil && !g.replyLimiter.Admit("reply:"+g.clientKey, time.Now()) {
		return "", errRateLimited
	}
	return g.ai.Reply(ctx, history, message, identity)
}

func (g *localGateway) RelayEmail(ctx context.Context, fromEmail, purpose string, transcript []string) error {
	if g.sender == nil {
		return errMailUnconfigured
	}
	if g.relayLimiter != nil && !g.relayLimiter.Admit("relay-chat:"+g.clientKey, time.Now()) {
		return errRateLimited
	}
	return g.sender.Send(ctx, mail.ComposeChatRelay(fromEmail, purpose, transcript))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[widget] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Events are drained by a single writer goroutine so the controller's
	// notify callback never blocks on the socket.
	events := make(chan widgetcore.Event, 64)

	gateway := &localGateway{
		ai:           h.ai,
		sender:       h.sender,
		replyLimiter: h.replyLimiter,
		relayLimiter: h.relayLimiter,
		clientKey:    utils.ClientIP(r),
	}

	controller := widgetcore.NewController(widgetcore.Options{
		Gateway:        gateway,
		Storage:        widgetcore.NewMemoryStorage(),
		IdleTimeout:    h.widgetCfg.IdleTimeout,
		TypingInterval: h.widgetCfg.TypingInterval,
		Notify: func(event widgetcore.Event) {
			select {
			case events <- event:
			default:
				log.Printf("[widget] dropping event %s: outbound queue full", event.Type)
			}
		},
	})

	go h.writeLoop(ctx, conn, events)

	controller.Open()
	controller.StartIdleWatch(ctx)

	h.readLoop(ctx, conn, controller)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, controller *widgetcore.Controller) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[widget] websocket read error: %v", err)
			}
			return
		}

		h.dispatch(ctx, controller, inbound)
	}
}

func (h *Handler) dispatch(ctx context.Context, controller *widgetcore.Controller, inbound inboundMessage) {
	switch inbound.Type {
	case "message":
		var msg ChatMessage
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			log.Printf("[widget] invalid chat message payload: %v", err)
			return
		}
		// Submit blocks through the typing reveal; run it off the read loop
		// so clear/close frames stay responsive.
		go func() {
			if err := controller.Submit(ctx, msg.Text); err != nil {
				log.Printf("[widget] submit rejected: %v", err)
			}
		}()
	case "clear":
		controller.Clear()
	case "mode":
		var msg ModeMessage
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			log.Printf("[widget] invalid mode payload: %v", err)
			return
		}
		controller.SetMode(widgetcore.Mode(msg.Mode))
	case "email":
		var msg EmailMessage
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			log.Printf("[widget] invalid email payload: %v", err)
			return
		}
		go func() {
			if err := controller.SendEmail(ctx, msg.FromEmail, msg.Purpose); err != nil {
				log.Printf("[widget] email relay rejected: %v", err)
			}
		}()
	case "open":
		controller.Open()
	case "close":
		controller.Close()
	default:
		log.Printf("[widget] unknown inbound message type: %s", inbound.Type)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan widgetcore.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			outgoing := outgoingMessage{
				Type:      "event",
				Data:      event,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(outgoing); err != nil {
				log.Printf("[widget] websocket write error: %v", err)
				return
			}
		}
	}
}
