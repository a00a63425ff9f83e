// Package tools defines the tool port, the registry dispatching model tool
// calls, and the built-in web_search tool.
//
// Tools form a closed set: adding one means implementing Tool and
// registering it, not reflecting over anything at runtime.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adithya1123/cli-agent-w-graphiti/llm"
)

// Tool executes one named capability for the model.
type Tool interface {
	Name() string
	Description() string

	// Schema returns the JSON schema for the tool's arguments, built with
	// the helpers in this package.
	Schema() map[string]any

	// Invoke runs the tool. The returned string is fed back to the model;
	// an error here is converted by the caller into a failure-text result,
	// never surfaced to the user.
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry is an explicit lookup table of registered tools, preserving
// registration order for stable spec listings.
type Registry struct {
	order  []string
	byName map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is a programming error.
func (r *Registry) Register(t Tool) error {
	if _, exists := r.byName[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.byName[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names lists registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Specs renders all registered tools as provider tool declarations.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return specs
}

// ValidateArgs checks raw arguments against the tool's declared schema:
// they must be a JSON object and carry every required property.
func ValidateArgs(t Tool, args json.RawMessage) error {
	var parsed map[string]json.RawMessage
	if len(args) == 0 {
		parsed = map[string]json.RawMessage{}
	} else if err := json.Unmarshal(args, &parsed); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}

	required, _ := t.Schema()["required"].([]string)
	for _, key := range required {
		if _, ok := parsed[key]; !ok {
			return fmt.Errorf("missing required argument %q", key)
		}
	}
	return nil
}
