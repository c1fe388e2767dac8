package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/handler/relay"
	"github.com/arjmehta/portfolio-assistant/internal/handler/reply"
	widgetHandler "github.com/arjmehta/portfolio-assistant/internal/handler/widget"
	middlewarePkg "github.com/arjmehta/portfolio-assistant/internal/middleware"
	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	aiService "github.com/arjmehta/portfolio-assistant/internal/service/ai"
	"github.com/arjmehta/portfolio-assistant/internal/service/captcha"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
)

// Dependencies carries the optional services and policies the router wires.
// Nil AI/Sender/Verifier mean the corresponding feature is unconfigured.
type Dependencies struct {
	AI           *aiService.Service
	Sender       mail.Sender
	Verifier     captcha.Verifier
	LimiterStore ratelimit.Store
	RateLimit    config.RateLimitConfig
	Widget       config.WidgetConfig
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	store := deps.LimiterStore
	if store == nil {
		store = ratelimit.NewMemoryStore()
	}

	// Independent sliding-window policies per endpoint family; the store is
	// shared, keys carry the endpoint prefix.
	replyLimiter := ratelimit.New(store, deps.RateLimit.Window, deps.RateLimit.ReplyMax)
	relayChatLimiter := ratelimit.New(store, deps.RateLimit.Window, deps.RateLimit.RelayChatMax)
	relayFormLimiter := ratelimit.New(store, deps.RateLimit.Window, deps.RateLimit.RelayFormMax)

	// A typed-nil service must stay nil through the interface.
	var replySvc reply.Service
	if deps.AI != nil {
		replySvc = deps.AI
	}
	var bridgeAI widgetHandler.AIService
	if deps.AI != nil {
		bridgeAI = deps.AI
	}

	replyHandler := reply.New(replySvc, replyLimiter)
	relayHandler := relay.New(deps.Sender, deps.Verifier, relayChatLimiter, relayFormLimiter)
	bridgeHandler := widgetHandler.New(bridgeAI, deps.Sender, replyLimiter, relayChatLimiter, deps.Widget)

	r.Route("/gateway", func(gw chi.Router) {
		replyHandler.RegisterRoutes(gw)
		relayHandler.RegisterRoutes(gw)
	})

	r.Route("/api", func(api chi.Router) {
		bridgeHandler.RegisterRoutes(api)
	})

	return r
}
