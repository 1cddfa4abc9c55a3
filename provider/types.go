// Package provider defines the uniform message/content model and the
// streaming Provider contract that every backend adaptor implements.
package provider

import "fmt"

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// ContentBlockType tags the variant held by a ContentBlock.
type ContentBlockType string

const (
	ContentText       ContentBlockType = "text"
	ContentThinking   ContentBlockType = "thinking"
	ContentToolCall   ContentBlockType = "tool_call"
	ContentToolResult ContentBlockType = "tool_result"
	ContentImage      ContentBlockType = "image"
)

// ContentBlock is a tagged union over the five content shapes a Message can
// carry. Only the fields matching Type are populated; callers must switch on
// Type before reading the others.
type ContentBlock struct {
	Type ContentBlockType

	// Text / Thinking
	Text string

	// ToolCall
	ID        string
	Name      string
	Arguments any

	// ToolResult
	ToolCallID string
	Content    string
	IsError    bool

	// Image
	MediaType string
	Data      string
}

func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

func NewThinkingBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentThinking, Text: text}
}

func NewToolCallBlock(id, name string, args any) ContentBlock {
	return ContentBlock{Type: ContentToolCall, ID: id, Name: name, Arguments: args}
}

func NewToolResultBlock(toolCallID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: ContentToolResult, ToolCallID: toolCallID, Content: content, IsError: isError}
}

func NewImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: ContentImage, MediaType: mediaType, Data: data}
}

// Message is one turn in a conversation. Content is shared, read-only data
// once constructed; adaptors must not mutate a Message's blocks in place.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// ToolDefinition describes a callable tool in the uniform schema every
// provider adaptor translates to its own wire format.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any // JSON Schema, typically map[string]any
}

// ThinkingConfig requests extended/reasoning output from providers that
// support it (currently Anthropic and Google).
type ThinkingConfig struct {
	Enabled      bool
	BudgetTokens int
}

// ChatRequest is the uniform request every Provider.Stream call accepts.
type ChatRequest struct {
	Model       string
	Messages    []Message
	System      string
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature *float32
	Thinking    *ThinkingConfig
}

// Usage reports token accounting for a completed turn. Zero values mean
// "not reported by this backend", not "zero tokens used".
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// StreamEventType tags the variant held by a StreamEvent.
type StreamEventType string

const (
	EventTextDelta     StreamEventType = "text_delta"
	EventThinkingDelta StreamEventType = "thinking_delta"
	EventToolCall      StreamEventType = "tool_call"
	EventUsage         StreamEventType = "usage"
	EventDone          StreamEventType = "done"
	EventError         StreamEventType = "error"
)

// ToolCallEvent carries one fully-assembled tool invocation.
type ToolCallEvent struct {
	ID        string
	Name      string
	Arguments any // decoded JSON value, or nil on parse failure
}

// StreamEvent is one item on the channel a Provider.Stream call writes to.
// Exactly one of the payload fields is meaningful, selected by Type.
type StreamEvent struct {
	Type     StreamEventType
	Text     string        // EventTextDelta, EventThinkingDelta
	ToolCall ToolCallEvent // EventToolCall
	Usage    Usage         // EventUsage
	Err      error         // EventError
}

func (e StreamEvent) String() string {
	return fmt.Sprintf("StreamEvent{%s}", e.Type)
}

// ModelPricing holds per-token USD pricing; Cache fields are nil when a
// backend does not support prompt caching for this model.
type ModelPricing struct {
	Input      float64
	Output     float64
	CacheRead  *float64
	CacheWrite *float64
}

// ModelInfo describes one selectable model, merged from whichever catalog
// source (OpenRouter, models.dev, a local Ollama daemon) produced it.
type ModelInfo struct {
	ID               string
	Name             string
	Provider         string
	ContextWindow    int
	SupportsTools    bool
	SupportsVision   bool
	SupportsThinking bool
	SupportsCache    bool
	Pricing          ModelPricing
	Created          int64
}
