package chat

import "time"

// Speaker roles for a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation, tagged by speaker role.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// HistoryPart carries one text fragment of a wire-format history entry.
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryEntry is the wire shape the reply gateway accepts for prior turns.
type HistoryEntry struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// ToTurns flattens wire-format history entries into turns. Entries with no
// parts are skipped.
func ToTurns(entries []HistoryEntry) []Turn {
	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		text := ""
		for _, part := range entry.Parts {
			text += part.Text
		}
		if text == "" {
			continue
		}
		role := entry.Role
		if role == "model" {
			// The original web widget tags assistant turns as "model".
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}
	return turns
}

// ToHistory converts turns into the wire shape used by the reply gateway.
func ToHistory(turns []Turn) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		entries = append(entries, HistoryEntry{
			Role:  turn.Role,
			Parts: []HistoryPart{{Text: turn.Text}},
		})
	}
	return entries
}
