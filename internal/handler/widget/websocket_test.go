package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
	"github.com/arjmehta/portfolio-assistant/internal/ratelimit"
	widgetcore "github.com/arjmehta/portfolio-assistant/internal/widget"
)

type stubAI struct {
	reply string
	err   error
}

func (s *stubAI) Reply(_ context.Context, history []chat.Turn, message, identity string) (string, error) {
	return s.reply, s.err
}

func TestLocalGatewayReplyUnavailable(t *testing.T) {
	gw := &localGateway{clientKey: "test"}

	if _, err := gw.Reply(context.Background(), "hi", nil, ""); !errors.Is(err, errAIUnavailable) {
		t.Fatalf("expected errAIUnavailable, got %v", err)
	}
}

func TestLocalGatewayReplyRateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), time.Minute, 1)
	gw := &localGateway{ai: &stubAI{reply: "ok"}, replyLimiter: limiter, clientKey: "test"}

	if _, err := gw.Reply(context.Background(), "hi", nil, ""); err != nil {
		t.Fatalf("first reply err: %v", err)
	}
	if _, err := gw.Reply(context.Background(), "hi", nil, ""); !errors.Is(err, errRateLimited) {
		t.Fatalf("expected errRateLimited, got %v", err)
	}
}

func TestLocalGatewayRelayUnconfigured(t *testing.T) {
	gw := &localGateway{clientKey: "test"}

	err := gw.RelayEmail(context.Background(), "a@b.c", "hi", nil)
	if !errors.Is(err, errMailUnconfigured) {
		t.Fatalf("expected errMailUnconfigured, got %v", err)
	}
}

func TestWebSocketChatRoundTrip(t *testing.T) {
	handler := New(&stubAI{reply: "hi!"}, nil, nil, nil, config.WidgetConfig{
		IdleTimeout:    time.Minute,
		TypingInterval: time.Millisecond,
	})

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/widget/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	defer conn.Close()

	payload, _ := json.Marshal(ChatMessage{Text: "hello"})
	if err := conn.WriteJSON(inboundMessage{Type: "message", Data: payload}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	// Read frames until the assistant turn is fully revealed.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for rendered assistant turn")
		}
		conn.SetReadDeadline(deadline)

		var outgoing struct {
			Type string           `json:"type"`
			Data widgetcore.Event `json:"data"`
		}
		if err := conn.ReadJSON(&outgoing); err != nil {
			t.Fatalf("read err: %v", err)
		}

		if outgoing.Data.Type != widgetcore.EventTurns {
			continue
		}
		turns := outgoing.Data.Turns
		if len(turns) == 2 && turns[1].Role == chat.RoleAssistant && turns[1].Text == "hi!" {
			return
		}
	}
}
