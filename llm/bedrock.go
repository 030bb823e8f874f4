package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/tools"
)

// BedrockClient talks to Anthropic models hosted on AWS Bedrock.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient requires AWS credentials configured in the environment.
func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load AWS config")
	}
	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func (b *BedrockClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	bedrockMessages, systemPrompt := toBedrockMessages(messages)

	body, err := buildBedrockRequest(bedrockMessages, systemPrompt, availableTools)
	if err != nil {
		return nil, errors.Wrapf(err, "build bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invoke bedrock model")
	}
	return fromBedrockResponse(resp.Body)
}

// toBedrockMessages converts the transcript into the Anthropic-on-Bedrock
// JSON shape, which is untyped maps rather than SDK structs.
func toBedrockMessages(messages []Message) ([]map[string]any, string) {
	var out []map[string]any
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, map[string]any{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": msg.Content},
				},
			})
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var toolUses []map[string]any
				for _, tc := range msg.ToolCalls {
					toolUses = append(toolUses, map[string]any{
						"type":  "tool_use",
						"id":    tc.ID,
						"name":  tc.Name,
						"input": tc.Args,
					})
				}
				out = append(out, map[string]any{
					"role":    "assistant",
					"content": toolUses,
				})
			} else if msg.Content != "" {
				out = append(out, map[string]any{
					"role": "assistant",
					"content": []map[string]any{
						{"type": "text", "text": msg.Content},
					},
				})
			}
		case "tool":
			if len(msg.ToolCalls) > 0 {
				out = append(out, map[string]any{
					"role": "user",
					"content": []map[string]any{
						{
							"type":        "tool_result",
							"tool_use_id": msg.ToolCalls[0].ID,
							"content":     msg.Content,
						},
					},
				})
			}
		case "system":
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func buildBedrockRequest(messages []map[string]any, systemPrompt string, availableTools []tools.Tool) ([]byte, error) {
	request := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        4096,
		"messages":          messages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(availableTools) > 0 {
		var declared []map[string]any
		for _, t := range availableTools {
			declared = append(declared, map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"input_schema": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			})
		}
		request["tools"] = declared
	}
	return json.Marshal(request)
}

func fromBedrockResponse(body []byte) (*Message, error) {
	var response map[string]any
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "unmarshal bedrock response")
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("bedrock API error: %v", errMsg)
	}

	content, ok := response["content"]
	if !ok {
		return &Message{Role: "assistant"}, nil
	}
	items, ok := content.([]any)
	if !ok {
		return nil, errors.New("unexpected content format in bedrock response")
	}

	reply := &Message{Role: "assistant"}
	callIndex := 0
	for _, item := range items {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := block["text"].(string); ok {
				reply.Content += text
			}
		case "tool_use":
			name, nameOK := block["name"].(string)
			input, inputOK := block["input"].(map[string]any)
			if !nameOK || !inputOK {
				continue
			}
			id := fmt.Sprintf("call_%d_%s", callIndex, name)
			if toolID, ok := block["id"].(string); ok {
				id = toolID
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: name, Args: input})
			callIndex++
		}
	}
	return reply, nil
}
