package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/tools"
)

// OpenAIClient talks to the OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient requires the OPENAI_API_KEY environment variable.
// OPENAI_BASE_URL selects a custom endpoint.
func NewOpenAIClient(ctx context.Context, model string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c, model: model}, nil
}

func (o *OpenAIClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(availableTools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "openai chat completion request")
	}
	return fromOpenAIResponse(resp)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					logging.Warn("skipping unmarshalable tool call args", "tool", tc.Name, "error", err)
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			out = append(out, assistant.ToParam())
		case "tool":
			if len(msg.ToolCalls) != 1 {
				logging.Warn("malformed tool message, expected exactly one tool call", "got", len(msg.ToolCalls))
				continue
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ID))
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		// Generic object schema; the model infers arguments from the
		// tool description.
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  params,
		}))
	}
	return out
}

func fromOpenAIResponse(resp *openai.ChatCompletion) (*Message, error) {
	if len(resp.Choices) == 0 {
		return &Message{Role: "assistant"}, nil
	}
	choice := resp.Choices[0].Message

	reply := &Message{Role: "assistant", Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, errors.Wrapf(err, "unmarshal function call arguments")
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return reply, nil
}
