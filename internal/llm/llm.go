// Package llm defines the conversation contract between the app and a hosted
// vision-language model. Adapters in subpackages translate these types to the
// Gemini, Anthropic, and Ollama wire formats; everything above this package
// stays backend-agnostic.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrAuthentication marks a missing or rejected API credential. Adapters
	// return it without touching the network when no key is configured.
	ErrAuthentication = errors.New("llm authentication failed")

	// ErrTransport marks an unreachable backend or a server-side failure
	// (network error, rate limit, 5xx). Calls are never retried.
	ErrTransport = errors.New("llm transport failure")
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ImageData is an inline image attached to a user message.
type ImageData struct {
	MimeType string
	Data     []byte
}

// ToolCall is the model asking for a named function to be run. ID is the
// backend's call identifier and must be echoed back on the ToolResult;
// backends without call IDs leave it empty.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult carries a tool's output back to the model.
type ToolResult struct {
	ID      string
	Name    string
	Content string
}

// Message is one turn of a conversation. Exactly one of the role-specific
// payloads is meaningful: user messages carry Text and Images, model messages
// carry Text and ToolCalls, tool messages carry ToolResults.
type Message struct {
	Role        Role
	Text        string
	Images      []ImageData
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Property describes one parameter of a tool.
type Property struct {
	Type        string
	Description string
}

// Schema describes a tool's parameter object. Types use lowercase JSON
// Schema names; adapters convert where their API differs.
type Schema struct {
	Type       string
	Properties map[string]Property
	Required   []string
}

// Tool declares a function the model may call during a round.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
}

type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []Tool
}

type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is a synchronous chat backend. One call, one network round trip.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
