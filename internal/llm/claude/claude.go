// Package claude implements llm.Client on the Anthropic Messages API
// through the go-anthropic SDK.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/liushuangls/go-anthropic/v2/jsonschema"

	"github.com/platelens/platelens/internal/llm"
)

type ClaudeClient struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// NewClaudeClient returns an adapter over the Anthropic Messages API. Extra
// options are forwarded to the SDK client; tests pass WithBaseURL.
func NewClaudeClient(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeClient {
	return &ClaudeClient{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(apiKey, opts...),
	}
}

func (c *ClaudeClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("claude API key is not set: %w", llm.ErrAuthentication)
	}

	messages, err := buildMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	apiReq := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		// 1024 tokens covers the breakdown JSON for a crowded plate with
		// headroom for verbose models.
		MaxTokens: 1024,
		System:    req.System,
		Messages:  messages,
	}
	for _, t := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, buildTool(t))
	}

	resp, err := c.client.CreateMessages(ctx, apiReq)
	if err != nil {
		return nil, mapError(err)
	}

	out := &llm.ChatResponse{}
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			out.Text += block.GetText()
		case anthropic.MessagesContentTypeToolUse:
			tu := block.MessageContentToolUse
			if tu == nil {
				continue
			}
			args := map[string]any{}
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &args); err != nil {
					return nil, fmt.Errorf("failed to decode tool input: %w", err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:   tu.ID,
				Name: tu.Name,
				Args: args,
			})
		}
	}
	return out, nil
}

func buildMessages(messages []llm.Message) ([]anthropic.Message, error) {
	out := make([]anthropic.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			contents := make([]anthropic.MessageContent, 0, len(m.Images)+1)
			for _, img := range m.Images {
				contents = append(contents, anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						img.MimeType,
						img.Data,
					)))
			}
			if m.Text != "" {
				contents = append(contents, anthropic.NewTextMessageContent(m.Text))
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: contents})
		case llm.RoleModel:
			var contents []anthropic.MessageContent
			if m.Text != "" {
				contents = append(contents, anthropic.NewTextMessageContent(m.Text))
			}
			for _, tc := range m.ToolCalls {
				input, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool args: %w", err)
				}
				contents = append(contents, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: contents})
		case llm.RoleTool:
			// All of a round's tool results share one user turn; the API
			// rejects consecutive same-role messages.
			contents := make([]anthropic.MessageContent, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				toolUseID := tr.ID
				contents = append(contents, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolResult,
					MessageContentToolResult: &anthropic.MessageContentToolResult{
						ToolUseID: &toolUseID,
						Content:   []anthropic.MessageContent{anthropic.NewTextMessageContent(tr.Content)},
					},
				})
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: contents})
		}
	}
	return out, nil
}

func buildTool(t llm.Tool) anthropic.ToolDefinition {
	props := make(map[string]jsonschema.Definition, len(t.Parameters.Properties))
	for name, p := range t.Parameters.Properties {
		props[name] = jsonschema.Definition{
			Type:        jsonschema.DataType(p.Type),
			Description: p.Description,
		}
	}
	return anthropic.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: jsonschema.Definition{
			Type:       jsonschema.DataType(t.Parameters.Type),
			Properties: props,
			Required:   t.Parameters.Required,
		},
	}
}

func mapError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr():
			return fmt.Errorf("claude rejected credentials: %s: %w", apiErr.Message, llm.ErrAuthentication)
		case apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr():
			return fmt.Errorf("claude unavailable: %s: %w", apiErr.Message, llm.ErrTransport)
		default:
			return fmt.Errorf("claude request failed: %s", apiErr.Message)
		}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("claude returned status %d: %w", reqErr.StatusCode, llm.ErrTransport)
	}
	return fmt.Errorf("failed to call claude: %w: %w", llm.ErrTransport, err)
}
