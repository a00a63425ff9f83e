// Package llm defines the provider port for chat completion with tool
// calling. The orchestrator depends on this interface only; concrete
// backends live in subpackages.
package llm

import (
	"context"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
)

// ToolChoice controls whether the model may request tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide between text and tool calls.
	ToolChoiceAuto ToolChoice = "auto"

	// ToolChoiceNone forces a text-only answer. Used for the synthesis call
	// so the model cannot request more tools.
	ToolChoiceNone ToolChoice = "none"
)

// ToolSpec declares a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request aggregates everything a provider needs for one completion.
type Request struct {
	System     string
	Messages   []core.Message
	Tools      []ToolSpec
	ToolChoice ToolChoice
	MaxTokens  int64
}

// Response is a provider completion: assistant text and/or tool calls.
type Response struct {
	Text      string
	ToolCalls []core.ToolCall
}

// Provider is the chat-completion port. Implementations own their retry
// policy for transient provider failures; an error returned here means the
// provider is unreachable after those retries.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
