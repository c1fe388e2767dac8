package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/model/chat"
	"github.com/arjmehta/portfolio-assistant/internal/model/profile"
)

// Service generates assistant replies grounded on the portfolio profile.
type Service struct {
	chatModel model.ChatModel
	profiles  profile.Store
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the AI service and compiles its prompt chain.
func NewService(ctx context.Context, profiles profile.Store, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		profiles:  profiles,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// Reply runs a single model invocation for the visitor's message. Missing or
// empty text in the model output is returned as an empty string, not an error.
func (s *Service) Reply(ctx context.Context, history []chat.Turn, message, identity string) (string, error) {
	input := s.buildChainInput(history, message, identity)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated reply, history=%d, length=%d", len(history), len(response.Content))
	return response.Content, nil
}

func (s *Service) buildChainInput(history []chat.Turn, message, identity string) map[string]any {
	query := message
	if identity != "" {
		query = fmt.Sprintf("User name: %s. %s", identity, message)
	}

	return map[string]any{
		"system":  BuildSystemPrompt(s.profiles.Owner()),
		"history": buildHistoryMessages(history),
		"query":   query,
	}
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	const historyLimit = 10

	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > historyLimit {
		startIdx = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}

	return history
}
