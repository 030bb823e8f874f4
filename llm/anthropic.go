package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/tools"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient requires the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(ctx context.Context, model string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{client: &client, model: model}, nil
}

func (a *AnthropicClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	anthropicMessages, systemPrompt := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	for _, t := range availableTools {
		tool := anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{},
			},
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &tool})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "anthropic message request")
	}
	return fromAnthropicResponse(resp)
}

func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				for _, tc := range msg.ToolCalls {
					argsBytes, err := json.Marshal(tc.Args)
					if err != nil {
						logging.Warn("skipping unmarshalable tool call args", "tool", tc.Name, "error", err)
						continue
					}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							Type:  "tool_use",
							ID:    tc.ID,
							Name:  tc.Name,
							Input: argsBytes,
						},
					})
				}
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			} else if msg.Content != "" {
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				})
			}
		case "tool":
			// Tool results go back as a user turn referencing the call ID.
			if len(msg.ToolCalls) > 0 {
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleUser,
					Content: []anthropic.ContentBlockParamUnion{{
						OfToolResult: &anthropic.ToolResultBlockParam{
							ToolUseID: msg.ToolCalls[0].ID,
							Content: []anthropic.ToolResultBlockParamContentUnion{{
								OfText: &anthropic.TextBlockParam{Text: msg.Content},
							}},
						},
					}},
				})
			}
		case "system":
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func fromAnthropicResponse(resp *anthropic.Message) (*Message, error) {
	reply := &Message{Role: "assistant"}
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Content += c.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(c.Input, &args); err != nil {
				return nil, errors.Wrapf(err, "unmarshal tool call input")
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:   c.ID,
				Name: c.Name,
				Args: args,
			})
		}
	}
	return reply, nil
}
