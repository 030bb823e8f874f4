// Package llm abstracts the chat-completion providers an agent can respond
// with. Every provider converts between the agent's transcript and its own
// wire format and reports tool-use requests uniformly.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/tools"
)

// ToolCall is a provider-requested tool invocation.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry of the conversation sent to or received from a
// provider. Role is "user", "assistant", "system", or "tool".
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall
}

// Client is the interface a chat-completion provider implements.
type Client interface {
	Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error)
}

// New builds a client for the named provider.
func New(ctx context.Context, provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case "anthropic":
		return NewAnthropicClient(ctx, model)
	case "openai":
		return NewOpenAIClient(ctx, model)
	case "gemini":
		return NewGeminiClient(ctx, model)
	case "bedrock":
		return NewBedrockClient(ctx, model)
	case "", "mock":
		return &MockClient{}, nil
	default:
		return nil, errors.New("unknown LLM provider %q", provider)
	}
}

// FromTurns converts a protocol transcript into provider messages.
func FromTurns(turns []protocol.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// MockClient parrots the last user message back. It stands in for a real
// provider in tests and offline runs.
type MockClient struct{}

func (m *MockClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("empty conversation")
	}
	last := messages[len(messages)-1]
	return &Message{
		Role:    "assistant",
		Content: fmt.Sprintf("mock reply to: %s", last.Content),
	}, nil
}
