package ai

import (
	"fmt"
	"strings"

	"github.com/arjmehta/portfolio-assistant/internal/model/profile"
)

// BuildSystemPrompt renders the grounding context for the assistant: who the
// portfolio owner is, what they have built, and how replies should read.
func BuildSystemPrompt(owner profile.Profile) string {
	projects := make([]string, 0, len(owner.Projects))
	for _, p := range owner.Projects {
		projects = append(projects, fmt.Sprintf("%s: %s", p.Name, p.Description))
	}

	return fmt.Sprintf(`You are an assistant for the portfolio of %s (%s). Location: %s. Email: %s.
Skills: %s
Projects: %s

Style guide:
- Keep replies concise, warm, and supportive.
- Use up to 3 relevant emojis to enhance tone, placed naturally.
- Prefer short paragraphs or bullet points.
- If asked to email, request their email and purpose; do not send emails automatically.`,
		owner.Name,
		owner.Title,
		owner.Location,
		owner.Email,
		strings.Join(owner.Skills, ", "),
		strings.Join(projects, " | "),
	)
}
