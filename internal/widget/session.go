package widget

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
)

// State is the controller's position in the widget lifecycle.
type State string

const (
	StateClosed         State = "closed"
	StateOpenIdle       State = "open-idle"
	StateComposing      State = "composing"
	StateAwaitingReply  State = "awaiting-reply"
	StateRenderingReply State = "rendering-reply"
)

// Mode selects the widget surface. It is orthogonal to State: switching to
// email mode does not discard chat turns.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeEmail Mode = "email"
)

var (
	ErrClosed        = errors.New("widget is closed")
	ErrBusy          = errors.New("a submission is already in flight")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrMissingFields = errors.New("email and purpose are required")
)

const apologyText = "Sorry, the assistant is unavailable right now."

// Number of trailing turns included when relaying a transcript by email.
const transcriptTail = 6

// Gateway is the controller's view of the server endpoints.
type Gateway interface {
	Reply(ctx context.Context, message string, history []chat.Turn, identity string) (string, error)
	RelayEmail(ctx context.Context, fromEmail, purpose string, transcript []string) error
}

// EventType tags controller notifications.
type EventType string

const (
	EventState    EventType = "state"
	EventTurns    EventType = "turns"
	EventTyping   EventType = "typing"
	EventIdentity EventType = "identity"
)

// Event describes a controller change pushed to an observer.
type Event struct {
	Type     EventType   `json:"type"`
	State    State       `json:"state,omitempty"`
	Mode     Mode        `json:"mode,omitempty"`
	Turns    []chat.Turn `json:"turns,omitempty"`
	Partial  string      `json:"partial,omitempty"`
	Identity string      `json:"identity,omitempty"`
}

// Options configures a Controller. Zero values fall back to sane defaults.
type Options struct {
	Gateway        Gateway
	Storage        Storage
	IdleTimeout    time.Duration
	TypingInterval time.Duration

	// Notify receives controller events. It is invoked with the controller
	// lock held and must not call back into the controller.
	Notify func(Event)
}

// Controller is the client-resident chat session state machine. It owns the
// turn history, the current mode, the identity guess, and idle tracking, and
// drives the gateways. All work is cooperative: one submission at a time,
// cancellation by flag only.
type Controller struct {
	mu             sync.Mutex
	gateway        Gateway
	storage        Storage
	idleTimeout    time.Duration
	typingInterval time.Duration
	notify         func(Event)
	now            func() time.Time

	state        State
	mode         Mode
	turns        []chat.Turn
	identity     string
	lastActivity time.Time
	renderTask   *RevealTask
}

// NewController builds a controller in the closed state.
func NewController(opts Options) *Controller {
	storage := opts.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}

	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 60 * time.Second
	}

	typing := opts.TypingInterval
	if typing <= 0 {
		typing = 28 * time.Millisecond
	}

	return &Controller{
		gateway:        opts.Gateway,
		storage:        storage,
		idleTimeout:    idle,
		typingInterval: typing,
		notify:         opts.Notify,
		now:            time.Now,
		state:          StateClosed,
		mode:           ModeChat,
		lastActivity:   time.Now(),
	}
}

// Open transitions closed -> open-idle, restoring persisted state if present.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateClosed {
		return
	}

	c.restore()
	c.state = StateOpenIdle
	c.storage.Set(storageKeyOpen, "1")
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	c.emit(Event{Type: EventTurns, Turns: c.snapshotTurns()})
}

// Close hides the widget. Visual close only: turns, mode, and identity all
// persist for the next open.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}

	c.state = StateClosed
	c.storage.Set(storageKeyOpen, "0")
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
}

// Compose marks that the user started typing.
func (c *Controller) Compose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateOpenIdle {
		c.state = StateComposing
		c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	}
}

// Submit sends a user message through the reply gateway and renders the
// assistant's answer. The user turn is appended optimistically before the
// gateway call; gateway failure appends a static apology turn instead of
// surfacing an error. Only one submission may be in flight at a time.
func (c *Controller) Submit(ctx context.Context, message string) error {
	trimmed := trimMessage(message)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateAwaitingReply, StateRenderingReply:
		c.mu.Unlock()
		return ErrBusy
	}

	// History snapshot excludes the message being submitted.
	history := c.snapshotTurns()

	if name := ExtractName(trimmed); name != "" {
		c.identity = name
		c.emit(Event{Type: EventIdentity, Identity: name})
	}

	c.appendTurn(chat.Turn{Role: chat.RoleUser, Text: trimmed})
	c.markActivity()
	c.state = StateAwaitingReply
	c.persist()
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	c.emit(Event{Type: EventTurns, Turns: c.snapshotTurns()})
	identity := c.identity
	c.mu.Unlock()

	reply, err := c.gateway.Reply(ctx, trimmed, history, identity)
	if err != nil {
		log.Printf("[widget] reply gateway failed: %v", err)
		c.mu.Lock()
		c.appendTurn(chat.Turn{Role: chat.RoleAssistant, Text: apologyText})
		c.markActivity()
		c.state = StateOpenIdle
		c.persist()
		c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
		c.emit(Event{Type: EventTurns, Turns: c.snapshotTurns()})
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.appendTurn(chat.Turn{Role: chat.RoleAssistant, Text: ""})
	c.state = StateRenderingReply
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	task := Reveal(reply, c.typingInterval, c.applyPartial)
	c.renderTask = task
	c.mu.Unlock()

	completed := task.Wait()

	c.mu.Lock()
	c.renderTask = nil
	if completed {
		c.markActivity()
	}
	if c.state == StateRenderingReply {
		c.state = StateOpenIdle
	}
	c.persist()
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	c.emit(Event{Type: EventTurns, Turns: c.snapshotTurns()})
	c.mu.Unlock()

	return nil
}

// applyPartial updates the in-progress assistant turn with the text revealed
// so far. After a concurrent Clear the turn is gone and the step is a no-op.
func (c *Controller) applyPartial(partial string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := len(c.turns) - 1
	if last < 0 || c.turns[last].Role != chat.RoleAssistant {
		return
	}
	c.turns[last].Text = partial
	c.persistTurns()
	c.emit(Event{Type: EventTyping, Partial: partial})
}

// Clear empties the turn history from any state. A reveal in progress is
// cancelled cooperatively. The inferred identity is intentionally retained
// across clears for personalization continuity.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.renderTask != nil {
		c.renderTask.Cancel()
	}

	c.turns = nil
	c.storage.Delete(storageKeyTurns)
	c.markActivity()
	if c.state != StateClosed {
		c.state = StateOpenIdle
	}
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	c.emit(Event{Type: EventTurns, Turns: nil})
}

// SetMode switches between the chat and email surfaces.
func (c *Controller) SetMode(mode Mode) {
	if mode != ModeChat && mode != ModeEmail {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = mode
	c.storage.Set(storageKeyMode, string(mode))
	c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
}

// SendEmail relays a message to the owner through the relay gateway,
// attaching the last few chat turns as context.
func (c *Controller) SendEmail(ctx context.Context, fromEmail, purpose string) error {
	if trimMessage(fromEmail) == "" || trimMessage(purpose) == "" {
		return ErrMissingFields
	}

	c.mu.Lock()
	transcript := c.transcriptTail()
	c.mu.Unlock()

	if err := c.gateway.RelayEmail(ctx, fromEmail, purpose, transcript); err != nil {
		return err
	}

	c.mu.Lock()
	c.markActivity()
	c.persist()
	c.mu.Unlock()
	return nil
}

// StartIdleWatch polls for inactivity until ctx is cancelled. The poll
// cadence is min(idleTimeout/2, 5s).
func (c *Controller) StartIdleWatch(ctx context.Context) {
	cadence := c.idleTimeout / 2
	if cadence > 5*time.Second {
		cadence = 5 * time.Second
	}
	if cadence <= 0 {
		cadence = time.Second
	}

	go func() {
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.checkIdle(c.now())
			}
		}
	}()
}

// checkIdle discards session state once the idle timeout elapses: turns are
// cleared when present, otherwise an idle open widget closes.
func (c *Controller) checkIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastActivity) < c.idleTimeout {
		return
	}

	if len(c.turns) > 0 {
		if c.renderTask != nil {
			c.renderTask.Cancel()
		}
		c.turns = nil
		c.storage.Delete(storageKeyTurns)
		c.lastActivity = now
		c.storage.Set(storageKeyActivity, strconv.FormatInt(now.UnixMilli(), 10))
		if c.state != StateClosed {
			c.state = StateOpenIdle
		}
		c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
		c.emit(Event{Type: EventTurns, Turns: nil})
		return
	}

	if c.state == StateOpenIdle {
		c.state = StateClosed
		c.storage.Set(storageKeyOpen, "0")
		c.emit(Event{Type: EventState, State: c.state, Mode: c.mode})
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current surface mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Identity returns the current advisory identity guess, empty when unknown.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Turns returns a copy of the turn history.
func (c *Controller) Turns() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotTurns()
}

// LastActivity returns the timestamp of the most recent user or assistant
// activity.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Controller) appendTurn(turn chat.Turn) {
	turn.ID = uuid.NewString()
	turn.CreatedAt = c.now().UTC()
	c.turns = append(c.turns, turn)
}

func (c *Controller) snapshotTurns() []chat.Turn {
	copied := make([]chat.Turn, len(c.turns))
	copy(copied, c.turns)
	return copied
}

func (c *Controller) transcriptTail() []string {
	start := len(c.turns) - transcriptTail
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, len(c.turns)-start)
	for _, turn := range c.turns[start:] {
		lines = append(lines, turn.Role+": "+turn.Text)
	}
	return lines
}

func (c *Controller) markActivity() {
	now := c.now()
	c.lastActivity = now
	c.storage.Set(storageKeyActivity, strconv.FormatInt(now.UnixMilli(), 10))
}

// persist writes the full session snapshot. Best-effort by contract of the
// Storage port.
func (c *Controller) persist() {
	c.persistTurns()
	c.storage.Set(storageKeyMode, string(c.mode))
	if c.identity != "" {
		c.storage.Set(storageKeyIdentity, c.identity)
	}
}

func (c *Controller) persistTurns() {
	data, err := json.Marshal(c.turns)
	if err != nil {
		log.Printf("[widget] failed to marshal turns: %v", err)
		return
	}
	c.storage.Set(storageKeyTurns, string(data))
}

func (c *Controller) restore() {
	if raw, ok := c.storage.Get(storageKeyTurns); ok {
		var turns []chat.Turn
		if err := json.Unmarshal([]byte(raw), &turns); err == nil {
			c.turns = turns
		}
	}
	if raw, ok := c.storage.Get(storageKeyMode); ok {
		if mode := Mode(raw); mode == ModeChat || mode == ModeEmail {
			c.mode = mode
		}
	}
	if raw, ok := c.storage.Get(storageKeyIdentity); ok && raw != "" {
		c.identity = raw
	}
	if raw, ok := c.storage.Get(storageKeyActivity); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.lastActivity = time.UnixMilli(ms)
		}
	}
}

func (c *Controller) emit(event Event) {
	if c.notify != nil {
		c.notify(event)
	}
}

func trimMessage(text string) string {
	return strings.TrimSpace(text)
}
