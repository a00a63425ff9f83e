// Package graphiti implements the knowledge store port against the graphiti
// temporal knowledge graph service over HTTP/JSON. Owner isolation maps onto
// graphiti group IDs: every search and ingest call is scoped to exactly one
// group.
package graphiti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to a graphiti service instance.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpc = c }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Client) { g.log = log }
}

// NewClient creates a graphiti client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultRequestTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query    string   `json:"query"`
	GroupIDs []string `json:"group_ids"`
	MaxFacts int      `json:"max_facts"`
}

type searchResponse struct {
	Facts []struct {
		Fact  string  `json:"fact"`
		Score float64 `json:"score"`
	} `json:"facts"`
}

// FetchContext searches the knowledge graph for facts relevant to query,
// scoped to the given owner's group.
func (g *Client) FetchContext(ctx context.Context, owner, query string, limit int) (*memory.ContextBundle, error) {
	req := searchRequest{Query: query, GroupIDs: []string{owner}, MaxFacts: limit}

	var resp searchResponse
	if err := g.post(ctx, "fetch_context", "/search", req, &resp); err != nil {
		return nil, err
	}

	bundle := &memory.ContextBundle{}
	for _, f := range resp.Facts {
		bundle.Snippets = append(bundle.Snippets, memory.Snippet{Text: f.Fact, Score: f.Score})
	}
	g.log.Debug().Str("owner", owner).Int("facts", len(bundle.Snippets)).Msg("fetched context")
	return bundle, nil
}

type episodeMessage struct {
	Content   string    `json:"content"`
	RoleType  string    `json:"role_type"`
	Timestamp time.Time `json:"timestamp"`
}

type addMessagesRequest struct {
	GroupID  string           `json:"group_id"`
	Name     string           `json:"name"`
	Messages []episodeMessage `json:"messages"`
}

// CommitTurn ingests one completed exchange as an episode under the turn's
// owner group.
func (g *Client) CommitTurn(ctx context.Context, turn core.Turn) error {
	req := addMessagesRequest{
		GroupID: turn.Owner,
		Name:    turn.Name,
		Messages: []episodeMessage{
			{Content: turn.UserMessage, RoleType: string(core.RoleUser), Timestamp: turn.ReferenceTime},
			{Content: turn.AssistantMessage, RoleType: string(core.RoleAssistant), Timestamp: turn.ReferenceTime},
		},
	}
	return g.post(ctx, "commit_turn", "/messages", req, nil)
}

type groupsResponse struct {
	GroupIDs []string `json:"group_ids"`
}

// ListOwners returns all group IDs known to the service.
func (g *Client) ListOwners(ctx context.Context) ([]string, error) {
	var resp groupsResponse
	if err := g.do(ctx, "list_owners", http.MethodGet, "/groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.GroupIDs, nil
}

// DeleteOwner removes every episode, node, and edge in the owner's group.
func (g *Client) DeleteOwner(ctx context.Context, owner string) error {
	return g.do(ctx, "delete_owner", http.MethodDelete, "/group/"+url.PathEscape(owner), nil, nil)
}

// Close implements memory.Store. The HTTP client holds no per-session state.
func (g *Client) Close() error {
	g.httpc.CloseIdleConnections()
	return nil
}

func (g *Client) post(ctx context.Context, op, path string, body, out any) error {
	return g.do(ctx, op, http.MethodPost, path, body, out)
}

func (g *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return memory.Permanent(op, fmt.Errorf("encode request: %w", err))
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return memory.Permanent(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		// Connectivity failures and deadline expiry are retryable unless the
		// caller canceled.
		if errors.Is(err, context.Canceled) {
			return memory.Permanent(op, err)
		}
		return memory.Transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("graphiti: %s %s: status %d", method, path, resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return memory.Transient(op, err)
		}
		return memory.Permanent(op, err)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return memory.Permanent(op, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

var _ memory.Store = (*Client)(nil)
