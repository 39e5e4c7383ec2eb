// Package ollama implements llm.Client for a local Ollama server. It uses
// /api/chat so follow-up rounds carry the whole conversation. Local vision
// models do not support function calling, so tool declarations are ignored.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/platelens/platelens/internal/llm"
)

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type OllamaClient struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaClient(host, model string) *OllamaClient {
	return &OllamaClient{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (c *OllamaClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := chatRequest{
		Model:  c.model,
		Stream: false,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, buildMessage(m))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w: %w", llm.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("ollama returned status %d: %s: %w", resp.StatusCode, errBody, llm.ErrTransport)
		}
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &llm.ChatResponse{Text: respBody.Message.Content}, nil
}

func buildMessage(m llm.Message) chatMessage {
	out := chatMessage{Content: m.Text}
	switch m.Role {
	case llm.RoleModel:
		out.Role = "assistant"
	case llm.RoleTool:
		// No tool protocol here; results fold into a plain user turn.
		out.Role = "user"
		for _, tr := range m.ToolResults {
			out.Content += tr.Content
		}
	default:
		out.Role = "user"
	}
	for _, img := range m.Images {
		out.Images = append(out.Images, base64.StdEncoding.EncodeToString(img.Data))
	}
	return out
}
