// Package anthropic adapts the official Anthropic SDK to the llm.Provider
// port, with bounded retry and exponential backoff on transient API
// failures.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/llm"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 1024

	defaultMaxRetries   = 2
	defaultRetryBackoff = 500 * time.Millisecond
)

// Config holds provider settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64

	// MaxRetries bounds retry attempts after the first call.
	MaxRetries   int
	RetryBackoff time.Duration

	Logger zerolog.Logger
}

// Provider implements llm.Provider on the Anthropic Messages API.
type Provider struct {
	client    sdk.Client
	model     string
	maxTokens int64
	retries   uint64
	backoff   time.Duration
	log       zerolog.Logger
}

// New creates a provider from cfg, applying defaults for unset fields.
func New(cfg Config) *Provider {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultMaxRetries
	}
	rb := cfg.RetryBackoff
	if rb <= 0 {
		rb = defaultRetryBackoff
	}
	return &Provider{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
		retries:   uint64(retries),
		backoff:   rb,
		log:       cfg.Logger,
	}
}

// Complete performs one chat completion, retrying transient API failures.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	params := p.buildParams(req)

	var resp *sdk.Message
	op := func() error {
		var err error
		resp, err = p.client.Messages.New(ctx, params)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		p.log.Warn().Err(err).Msg("anthropic call failed, retrying")
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.backoff
	expo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(expo, p.retries), ctx))
	if err != nil {
		return nil, err
	}
	return parseResponse(resp), nil
}

func (p *Provider) buildParams(req *llm.Request) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	if len(req.Tools) > 0 && req.ToolChoice != llm.ToolChoiceNone {
		tools := make([]sdk.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, sdk.ToolUnionParam{OfTool: &sdk.ToolParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				InputSchema: convertSchema(t.InputSchema),
			}})
		}
		params.Tools = tools
		params.ToolChoice = sdk.ToolChoiceUnionParam{OfAuto: &sdk.ToolChoiceAutoParam{}}
	}
	return params
}

// convertMessages flattens the neutral message slice into Anthropic message
// params. Consecutive tool results are grouped into a single user message,
// as the API requires.
func convertMessages(msgs []core.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))

	var pendingResults []sdk.ContentBlockParamUnion
	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, sdk.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case core.RoleUser:
			flush()
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))

		case core.RoleAssistant:
			flush()
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, json.RawMessage(tc.Args), tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}

		case core.RoleTool:
			pendingResults = append(pendingResults, sdk.NewToolResultBlock(m.CallID, m.Content, m.IsError))
		}
	}
	flush()
	return out
}

func convertSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	out := sdk.ToolInputSchemaParam{}
	if props, ok := schema["properties"]; ok {
		out.Properties = props
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	}
	return out
}

func parseResponse(resp *sdk.Message) *llm.Response {
	out := &llm.Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: json.RawMessage(block.Input),
			})
		}
	}
	return out
}

// isRetryable classifies API failures. Overload, rate limits, and server
// errors are retried; invalid requests and authentication failures are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		}
		return false
	}
	// Transport-level failure with no API status.
	return true
}

var _ llm.Provider = (*Provider)(nil)
