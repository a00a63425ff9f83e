// Package engine implements the turn orchestrator: it converts one user
// message into one assistant response, coordinating context retrieval, the
// bounded tool-calling exchange, and the write-behind hand-off to the
// persistence scheduler.
//
// Per-turn state machine:
//
//	RETRIEVING_CONTEXT -> ROUTING -> (TOOL_EXEC)* -> SYNTHESIZING -> DONE
//
// with an absorbing error path that degrades to a fixed fallback response.
// Retrieval and tool failures never abort a turn; only a provider outage
// (after the adapter's own retries) forces the fallback.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/llm"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
	"github.com/adithya1123/cli-agent-w-graphiti/scheduler"
	"github.com/adithya1123/cli-agent-w-graphiti/tools"
)

// Policy bounds one turn's execution.
type Policy struct {
	// AgentName appears in the system prompt.
	AgentName string

	// ContextTimeout bounds the knowledge store retrieval; on expiry the
	// turn proceeds with empty context.
	ContextTimeout time.Duration

	// ContextResults is the number of facts requested per retrieval.
	ContextResults int

	// ContextMaxChars caps the formatted context injected into the prompt.
	ContextMaxChars int

	// ToolTimeout bounds each tool invocation.
	ToolTimeout time.Duration

	// ToolResultMaxChars truncates tool output before feeding it back,
	// bounding prompt growth.
	ToolResultMaxChars int

	// MaxToolRounds bounds routing rounds that may request tools. Once
	// exceeded, the synthesis call forces a text-only answer.
	MaxToolRounds int

	// Fallback is the degraded response returned when the provider is
	// unreachable.
	Fallback string
}

// DefaultPolicy returns the standard turn bounds.
func DefaultPolicy() *Policy {
	return &Policy{
		AgentName:          "Knowledge Graph Agent",
		ContextTimeout:     1500 * time.Millisecond,
		ContextResults:     5,
		ContextMaxChars:    memory.DefaultBundleMaxChars,
		ToolTimeout:        3 * time.Second,
		ToolResultMaxChars: 4000,
		MaxToolRounds:      1,
		Fallback:           "I'm sorry, I'm having trouble generating a response right now. Please try again in a moment.",
	}
}

// Engine drives turns against its injected collaborators.
type Engine struct {
	provider llm.Provider
	registry *tools.Registry
	store    memory.Store
	sched    *scheduler.Scheduler
	policy   *Policy
	log      zerolog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithPolicy overrides the default turn policy.
func WithPolicy(p *Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine from its collaborators.
func New(provider llm.Provider, registry *tools.Registry, store memory.Store, sched *scheduler.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		registry: registry,
		store:    store,
		sched:    sched,
		policy:   DefaultPolicy(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one turn's input.
type Input struct {
	// Owner is the isolation key every read and write is scoped to.
	Owner string

	// UserMessage is the verbatim user text.
	UserMessage string

	// History is the windowed conversation snapshot, oldest first.
	History []core.Message
}

// Output is one turn's result.
type Output struct {
	// Text is the assistant response (or the fallback when Degraded).
	Text string

	// ToolsUsed names the tools invoked during the turn, in order.
	ToolsUsed []string

	// Degraded marks a fallback response; no turn was persisted.
	Degraded bool
}

// Run executes one turn. The only error it returns is core.ErrEmptyMessage;
// every other failure degrades inside the turn.
func (e *Engine) Run(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserMessage) == "" {
		return nil, core.ErrEmptyMessage
	}

	// Retrieval is non-fatal by contract and bounded by its own budget.
	injected := e.retrieveContext(ctx, input.Owner, input.UserMessage)
	system := e.systemPrompt(injected)

	msgs := make([]core.Message, 0, len(input.History)+1)
	msgs = append(msgs, input.History...)
	msgs = append(msgs, core.UserMessage(input.UserMessage))

	specs := e.registry.Specs()
	var toolsUsed []string

	for round := 0; ; round++ {
		choice := llm.ToolChoiceAuto
		forced := round >= e.policy.MaxToolRounds
		if forced {
			// Synthesis: the model must answer in text.
			choice = llm.ToolChoiceNone
		}

		resp, err := e.provider.Complete(ctx, &llm.Request{
			System:     system,
			Messages:   msgs,
			Tools:      specs,
			ToolChoice: choice,
		})
		if err != nil {
			e.log.Error().Err(err).Str("owner", input.Owner).Int("round", round).Msg("provider unreachable, degrading turn")
			return &Output{Text: e.policy.Fallback, ToolsUsed: toolsUsed, Degraded: true}, nil
		}

		// Tool calls take precedence over text in the same response; the
		// model finalizes only after results come back, so any preamble
		// text is discarded.
		if forced || len(resp.ToolCalls) == 0 {
			return e.finish(input, resp.Text, toolsUsed), nil
		}

		msgs = append(msgs, core.Message{
			Role:      core.RoleAssistant,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result := e.execTool(ctx, call)
			toolsUsed = append(toolsUsed, call.Name)
			msgs = append(msgs, core.ToolMessage(result))
		}
	}
}

// finish hands the completed turn to the scheduler without waiting and
// returns the response.
func (e *Engine) finish(input *Input, text string, toolsUsed []string) *Output {
	turn := core.NewTurn(input.Owner, input.UserMessage, text)
	if err := e.sched.Schedule(turn); err != nil {
		e.log.Warn().Err(err).Str("turn", turn.Name).Msg("could not schedule persistence")
	}
	return &Output{Text: text, ToolsUsed: toolsUsed}
}

func (e *Engine) retrieveContext(ctx context.Context, owner, query string) string {
	cctx, cancel := context.WithTimeout(ctx, e.policy.ContextTimeout)
	defer cancel()

	bundle, err := e.store.FetchContext(cctx, owner, query, e.policy.ContextResults)
	if err != nil {
		e.log.Warn().Err(err).Str("owner", owner).Msg("context retrieval failed, continuing without memories")
		return ""
	}
	return bundle.Format(e.policy.ContextMaxChars)
}

// execTool runs one requested tool. Every failure mode becomes a
// failure-text result the model can recover from.
func (e *Engine) execTool(ctx context.Context, call core.ToolCall) core.ToolResult {
	fail := func(msg string) core.ToolResult {
		e.log.Warn().Str("tool", call.Name).Str("reason", msg).Msg("tool call failed")
		return core.ToolResult{CallID: call.ID, Name: call.Name, Content: msg, IsError: true}
	}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		return fail(fmt.Sprintf("unknown tool: %s", call.Name))
	}
	if err := tools.ValidateArgs(tool, call.Args); err != nil {
		return fail(fmt.Sprintf("invalid arguments for %s: %v", call.Name, err))
	}

	tctx, cancel := context.WithTimeout(ctx, e.policy.ToolTimeout)
	defer cancel()

	start := time.Now()
	out, err := tool.Invoke(tctx, call.Args)
	if err != nil {
		return fail(fmt.Sprintf("tool %s failed: %v", call.Name, err))
	}

	e.log.Debug().Str("tool", call.Name).Dur("took", time.Since(start)).Msg("tool executed")
	return core.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: truncate(out, e.policy.ToolResultMaxChars),
	}
}

func (e *Engine) systemPrompt(injectedContext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are %s, a helpful AI assistant with access to:
1. A temporal knowledge graph that stores facts learned from past conversations
2. Web search capability for current information

Your approach:
- Use memories from past conversations when relevant
- Call web_search when you need current information, recent news, prices, or facts beyond your training
- Be clear about whether you're using past memories vs. current web information
- Learn and remember new information from conversations`, e.policy.AgentName)

	if injectedContext != "" {
		sb.WriteString("\n\nContext from your memories:\n")
		sb.WriteString(injectedContext)
	}
	return sb.String()
}

// truncate caps s at maxLen bytes, backing off to a rune boundary so the
// result is always valid UTF-8.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	suffix := ""
	if maxLen >= 3 {
		cut = maxLen - 3
		suffix = "..."
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
