package agent

import (
	"context"
	"fmt"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/llm"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/tools"
)

// Callbacks lets a responder report tool activity while a turn is running.
// Either callback may be nil.
type Callbacks struct {
	OnToolCall   func(name string, args map[string]any)
	OnToolResult func(name, result string, isError bool)
}

// Responder produces the assistant reply for one turn. The history it
// receives already ends with the new user turn.
type Responder interface {
	Name() string
	Respond(ctx context.Context, history []protocol.Turn, cb Callbacks) (string, error)
}

// MockResponder replies deterministically: the reply for the N-th user turn
// of a conversation is "MockAgent response #N: <content>". Tests and offline
// runs depend on this exact shape.
type MockResponder struct{}

func (MockResponder) Name() string { return "MockAgent" }

func (MockResponder) Respond(ctx context.Context, history []protocol.Turn, cb Callbacks) (string, error) {
	turns := 0
	var last string
	for _, t := range history {
		if t.Role == "user" {
			turns++
			last = t.Content
		}
	}
	if turns == 0 {
		return "", errors.New("history has no user turn")
	}
	return fmt.Sprintf("MockAgent response #%d: %s", turns, last), nil
}

// maxToolRounds bounds the tool-use loop so a confused model cannot spin the
// agent forever.
const maxToolRounds = 8

// LLMResponder generates replies with a chat-completion provider, executing
// any tools the model requests and feeding results back until the model
// answers in plain text.
type LLMResponder struct {
	client   llm.Client
	registry *tools.Registry
	name     string
}

// NewLLMResponder wires a provider client to a tool registry.
func NewLLMResponder(name string, client llm.Client, registry *tools.Registry) *LLMResponder {
	return &LLMResponder{client: client, registry: registry, name: name}
}

func (r *LLMResponder) Name() string { return r.name }

func (r *LLMResponder) Respond(ctx context.Context, history []protocol.Turn, cb Callbacks) (string, error) {
	messages := llm.FromTurns(history)
	available := r.registry.All()

	for round := 0; round < maxToolRounds; round++ {
		reply, err := r.client.Chat(ctx, messages, available)
		if err != nil {
			return "", err
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		messages = append(messages, *reply)
		for _, tc := range reply.ToolCalls {
			if cb.OnToolCall != nil {
				cb.OnToolCall(tc.Name, tc.Args)
			}
			result, err := r.registry.Execute(ctx, tc.Name, tc.Args)
			isError := err != nil
			if isError {
				result = err.Error()
			}
			if cb.OnToolResult != nil {
				cb.OnToolResult(tc.Name, result, isError)
			}
			messages = append(messages, llm.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []llm.ToolCall{{ID: tc.ID, Name: tc.Name}},
			})
		}
	}
	return "", errors.New("model did not produce a final answer within %d tool rounds", maxToolRounds)
}
