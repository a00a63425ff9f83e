// Package core defines the shared contracts of the agent: message and turn
// types, the bounded conversation window, and the error taxonomy used across
// the orchestrator, scheduler, and session bridge.
package core

import "encoding/json"

// Role tags a message with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-requested tool invocation with JSON arguments.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult is the outcome of executing one ToolCall. Failures are carried
// as text in Content with IsError set, never as a Go error: the failure
// description is fed back to the model like any other result.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Message is one entry in a conversation exchange.
//
// Assistant messages that requested tools carry ToolCalls; tool messages
// carry the CallID and Name of the call they answer.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
	CallID    string
	ToolName  string
	IsError   bool
}

// UserMessage builds a plain user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds a plain assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolMessage builds a tool-result message from an executed call.
func ToolMessage(res ToolResult) Message {
	return Message{Role: RoleTool, Content: res.Content, CallID: res.CallID, ToolName: res.Name, IsError: res.IsError}
}
