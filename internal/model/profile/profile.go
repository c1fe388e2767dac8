package profile

// Project summarizes one portfolio project for prompt grounding.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Profile captures the static portfolio content the assistant is grounded on.
type Profile struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Email    string    `json:"email"`
	Skills   []string  `json:"skills"`
	Projects []Project `json:"projects"`
}

// Seed provides the portfolio owner's content used to build the system prompt.
func Seed() Profile {
	return Profile{
		Name:     "Arjun Mehta",
		Title:    "AI & Full-Stack Developer",
		Location: "Hyderabad, India",
		Email:    "hello@arjmehta.dev",
		Skills: []string{
			"Go", "TypeScript", "React", "Next.js", "Node.js",
			"PostgreSQL", "Redis", "Docker", "LLM integration", "REST & WebSocket APIs",
		},
		Projects: []Project{
			{
				Name:        "Neighborly",
				Description: "Community web app with real-time listings, auth flows, and moderation tooling.",
			},
			{
				Name:        "Ledgerline",
				Description: "Personal finance tracker with bank-statement ingestion and spending insights.",
			},
			{
				Name:        "Portfolio Assistant",
				Description: "Conversational site assistant backed by an LLM gateway with rate-limited email relay.",
			},
		},
	}
}
