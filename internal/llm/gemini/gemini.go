// Package gemini implements llm.Client against the Gemini REST API
// (generateContent). The wire structs are hand-rolled; the API uses
// camelCase field names throughout.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/platelens/platelens/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// request mirrors the generateContent payload.
type request struct {
	Contents          []content `json:"contents"`
	Tools             []tool    `json:"tools,omitempty"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *schema `json:"parameters,omitempty"`
}

// schema follows the Gemini flavor of JSON Schema, which spells types in
// uppercase (OBJECT, STRING).
type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type GeminiClient struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: defaultBaseURL,
	}
}

func (c *GeminiClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set: %w", llm.ErrAuthentication)
	}

	body := request{Contents: buildContents(req.Messages)}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []tool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w: %w", llm.ErrTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &llm.ChatResponse{}
	var text strings.Builder
	for _, p := range respBody.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		}
	}
	out.Text = text.String()
	return out, nil
}

// statusError maps a non-200 response onto the app error taxonomy. Gemini
// reports a bad API key as 400 INVALID_ARGUMENT rather than 401, so the
// error message is consulted there.
func (c *GeminiClient) statusError(resp *http.Response) error {
	errBytes, _ := io.ReadAll(resp.Body)
	var apiErr errorResponse
	_ = json.Unmarshal(errBytes, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(errBytes)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("gemini rejected credentials (status %d): %s: %w", resp.StatusCode, msg, llm.ErrAuthentication)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "API key"):
		return fmt.Errorf("gemini rejected credentials (status %d): %s: %w", resp.StatusCode, msg, llm.ErrAuthentication)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("gemini returned status %d: %s: %w", resp.StatusCode, msg, llm.ErrTransport)
	default:
		return fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, msg)
	}
}

func buildContents(messages []llm.Message) []content {
	contents := make([]content, 0, len(messages))
	for _, m := range messages {
		var ct content
		switch m.Role {
		case llm.RoleUser:
			ct.Role = "user"
			if m.Text != "" {
				ct.Parts = append(ct.Parts, part{Text: m.Text})
			}
			for _, img := range m.Images {
				ct.Parts = append(ct.Parts, part{InlineData: &inlineData{
					MimeType: img.MimeType,
					Data:     base64.StdEncoding.EncodeToString(img.Data),
				}})
			}
		case llm.RoleModel:
			ct.Role = "model"
			if m.Text != "" {
				ct.Parts = append(ct.Parts, part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				ct.Parts = append(ct.Parts, part{FunctionCall: &functionCall{
					Name: tc.Name,
					Args: tc.Args,
				}})
			}
		case llm.RoleTool:
			// Tool results travel back as parts of a "function" turn.
			ct.Role = "function"
			for _, tr := range m.ToolResults {
				ct.Parts = append(ct.Parts, part{FunctionResponse: &functionResponse{
					Name:     tr.Name,
					Response: map[string]any{"content": tr.Content},
				}})
			}
		}
		contents = append(contents, ct)
	}
	return contents
}

func buildDeclarations(tools []llm.Tool) []functionDeclaration {
	decls := make([]functionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]schema, len(t.Parameters.Properties))
		for name, p := range t.Parameters.Properties {
			props[name] = schema{
				Type:        strings.ToUpper(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, functionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &schema{
				Type:       strings.ToUpper(t.Parameters.Type),
				Properties: props,
				Required:   t.Parameters.Required,
			},
		})
	}
	return decls
}
