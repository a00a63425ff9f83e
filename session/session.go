// Package session is the synchronous surface over the asynchronous turn
// pipeline. One Session serves one owner; calls block until the turn's
// response is ready while persistence continues in the background.
package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adithya1123/cli-agent-w-graphiti/config"
	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/engine"
	"github.com/adithya1123/cli-agent-w-graphiti/llm/anthropic"
	"github.com/adithya1123/cli-agent-w-graphiti/logging"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/embedder/mock"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/graphiti"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/local"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/memcache"
	"github.com/adithya1123/cli-agent-w-graphiti/scheduler"
	"github.com/adithya1123/cli-agent-w-graphiti/search"
	"github.com/adithya1123/cli-agent-w-graphiti/tools"
)

// Session binds one owner to the engine, the windowed history, and the
// write-behind scheduler. Callers are expected to be single-threaded; a
// concurrent ProcessMessage is rejected rather than serialized.
type Session struct {
	owner  string
	eng    *engine.Engine
	sched  *scheduler.Scheduler
	store  memory.Store
	window *core.Window
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	grace  time.Duration

	busy      atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// New wires a session from already-built components. The scheduler and
// store are owned by the session and released by Close.
func New(owner string, eng *engine.Engine, sched *scheduler.Scheduler, store memory.Store, window *core.Window, grace time.Duration, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		owner:  owner,
		eng:    eng,
		sched:  sched,
		store:  store,
		window: window,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		grace:  grace,
	}
}

// Open builds the full pipeline for one owner from configuration: model
// provider, knowledge store behind a retrieval cache, tool registry, the
// persistence scheduler, and the engine on top.
func Open(owner string, cfg *config.Config, log zerolog.Logger) (*Session, error) {
	provider := anthropic.New(anthropic.Config{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
		Logger: logging.Component(log, "anthropic"),
	})

	var store memory.Store
	if cfg.MemoryBackend == "local" {
		store = local.New(mock.New())
	} else {
		store = graphiti.NewClient(cfg.GraphitiBaseURL,
			graphiti.WithLogger(logging.Component(log, "graphiti")),
		)
	}
	cached, err := memcache.New(store, cfg.CacheTTL())
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	if cfg.TavilyAPIKey != "" {
		tavily := search.NewTavilyClient(cfg.TavilyAPIKey,
			search.WithHTTPClient(&http.Client{Timeout: cfg.ToolTimeout()}),
			search.WithLogger(logging.Component(log, "tavily")),
		)
		if err := registry.Register(tools.NewWebSearch(tavily)); err != nil {
			return nil, err
		}
	}

	sched := scheduler.New(cached,
		scheduler.WithWorkers(cfg.PersistWorkers),
		scheduler.WithQueueSize(cfg.PersistQueueSize),
		scheduler.WithMaxAttempts(cfg.PersistMaxAttempts),
		scheduler.WithLogger(logging.Component(log, "scheduler")),
	)

	policy := engine.DefaultPolicy()
	policy.AgentName = cfg.AgentName
	policy.ContextTimeout = cfg.ContextTimeout()
	policy.ContextResults = cfg.ContextResults
	policy.ToolTimeout = cfg.ToolTimeout()
	policy.MaxToolRounds = cfg.MaxToolRounds

	eng := engine.New(provider, registry, cached, sched,
		engine.WithPolicy(policy),
		engine.WithLogger(logging.Component(log, "engine")),
	)

	window := core.NewWindow(cfg.HistoryTurns)
	return New(owner, eng, sched, cached, window, cfg.CloseGrace(), logging.Component(log, "session")), nil
}

// Owner returns the identity this session is scoped to.
func (s *Session) Owner() string { return s.owner }

// ProcessMessage runs one turn and returns the assistant response. It
// rejects calls on a closed session and overlapping calls from multiple
// goroutines.
func (s *Session) ProcessMessage(message string) (string, error) {
	if s.closed.Load() {
		return "", core.ErrSessionClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return "", core.ErrSessionBusy
	}
	defer s.busy.Store(false)

	out, err := s.eng.Run(s.ctx, &engine.Input{
		Owner:       s.owner,
		UserMessage: message,
		History:     s.window.Messages(),
	})
	if err != nil {
		return "", err
	}
	if !out.Degraded {
		s.window.Append(core.UserMessage(message))
		s.window.Append(core.AssistantMessage(out.Text))
	}
	return out.Text, nil
}

// ClearHistory drops the in-memory window. Persisted memories are kept.
func (s *Session) ClearHistory() {
	s.window.Clear()
}

// ListUsers returns every owner known to the store.
func (s *Session) ListUsers() ([]string, error) {
	if s.closed.Load() {
		return nil, core.ErrSessionClosed
	}
	return s.store.ListOwners(s.ctx)
}

// DeleteUser removes all persisted memories for the given owner.
func (s *Session) DeleteUser(owner string) error {
	if s.closed.Load() {
		return core.ErrSessionClosed
	}
	return s.store.DeleteOwner(s.ctx, owner)
}

// Stats exposes the persistence counters.
func (s *Session) Stats() scheduler.Stats {
	return s.sched.Stats()
}

// Close drains pending writes within the grace period and releases the
// store. Safe to call more than once; later calls return nil.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.sched.Close(s.grace)
		err = s.store.Close()
		s.cancel()
	})
	return err
}

// With opens a session, runs fn, and closes the session regardless of the
// outcome. fn's error wins over the close error.
func With(owner string, cfg *config.Config, log zerolog.Logger, fn func(*Session) error) error {
	s, err := Open(owner, cfg, log)
	if err != nil {
		return err
	}
	ferr := fn(s)
	cerr := s.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
