package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/tools"
)

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient requires the GEMINI_API_KEY environment variable.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "create genai client")
	}
	return &GeminiClient{model: client.GenerativeModel(model)}, nil
}

func (g *GeminiClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	history := toGeminiContent(messages)
	g.model.Tools = toGeminiTools(availableTools)

	last := history[len(history)-1]
	chat := g.model.StartChat()
	chat.History = history[:len(history)-1]
	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "gemini chat request")
	}
	return fromGeminiResponse(ctx, resp, availableTools)
}

func toGeminiContent(messages []Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func toGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range ts {
		// Tool arguments are declared as one generic map under "args";
		// the model fills it from the description.
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"args": {
						Type:        genai.TypeObject,
						Description: "Arguments for the function call, as a map.",
					},
				},
				Required: []string{"args"},
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// fromGeminiResponse flattens the response parts. Function calls are executed
// inline and their results folded into the reply text, since Gemini reports
// calls as content parts rather than a separate stop reason.
func fromGeminiResponse(ctx context.Context, resp *genai.GenerateContentResponse, availableTools []tools.Tool) (*Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty response from gemini")
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			content += string(v)
		case genai.FunctionCall:
			var called tools.Tool
			for _, t := range availableTools {
				if t.Name() == v.Name {
					called = t
					break
				}
			}
			if called == nil {
				content += fmt.Sprintf("Error: model requested unavailable tool %q", v.Name)
				continue
			}
			args, ok := v.Args["args"].(map[string]any)
			if !ok {
				content += fmt.Sprintf("Error: invalid arguments for tool %q, expected a map under 'args'", v.Name)
				continue
			}
			result, err := called.Execute(ctx, args)
			if err != nil {
				content += fmt.Sprintf("Error executing tool %q: %v", v.Name, err)
				continue
			}
			content += result
		default:
			return nil, errors.New("unsupported part type in gemini response: %T", v)
		}
	}
	return &Message{Role: "assistant", Content: content}, nil
}
