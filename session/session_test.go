package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/engine"
	"github.com/adithya1123/cli-agent-w-graphiti/llm"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
	"github.com/adithya1123/cli-agent-w-graphiti/scheduler"
	"github.com/adithya1123/cli-agent-w-graphiti/tools"
)

func TestMain(m *testing.M) {
	// ristretto pulls in glog, whose init starts a permanent flush
	// goroutine that is not ours to stop.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	)
}

// stubProvider answers with a fixed reply; release, when set, blocks each
// call until signalled.
type stubProvider struct {
	reply     string
	fail      bool
	release   chan struct{}
	started   chan struct{}
	startOnce sync.Once
}

func (p *stubProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if p.started != nil {
		p.startOnce.Do(func() { close(p.started) })
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.fail {
		return nil, context.DeadlineExceeded
	}
	return &llm.Response{Text: p.reply}, nil
}

type memStore struct {
	mu     sync.Mutex
	owners map[string][]core.Turn
}

func newMemStore() *memStore {
	return &memStore{owners: make(map[string][]core.Turn)}
}

func (m *memStore) FetchContext(context.Context, string, string, int) (*memory.ContextBundle, error) {
	return &memory.ContextBundle{}, nil
}

func (m *memStore) CommitTurn(ctx context.Context, turn core.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[turn.Owner] = append(m.owners[turn.Owner], turn)
	return nil
}

func (m *memStore) ListOwners(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.owners))
	for o := range m.owners {
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) DeleteOwner(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, owner)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) turnsFor(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owners[owner])
}

func newTestSession(t *testing.T, provider llm.Provider, store memory.Store, windowTurns int) *Session {
	t.Helper()
	sched := scheduler.New(store, scheduler.WithWorkers(1))
	eng := engine.New(provider, tools.NewRegistry(), store, sched)
	s := New("alice", eng, sched, store, core.NewWindow(windowTurns), time.Second, zerolog.Nop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProcessMessageGrowsWindowByOneTurn(t *testing.T) {
	store := newMemStore()
	s := newTestSession(t, &stubProvider{reply: "hello"}, store, 5)

	reply, err := s.ProcessMessage("hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	reply, err = s.ProcessMessage("how are you?")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	// Two turns, four messages.
	require.NoError(t, s.Close())
	assert.Equal(t, 2, store.turnsFor("alice"))
}

// historyLenProvider records how much history each request carried.
type historyLenProvider struct {
	stubProvider
	mu   sync.Mutex
	lens []int
}

func (p *historyLenProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	// The request carries history plus the new user message.
	p.lens = append(p.lens, len(req.Messages)-1)
	p.mu.Unlock()
	return p.stubProvider.Complete(ctx, req)
}

func TestWindowStaysBounded(t *testing.T) {
	const windowTurns = 2
	store := newMemStore()
	provider := &historyLenProvider{stubProvider: stubProvider{reply: "r"}}
	s := newTestSession(t, provider, store, windowTurns)

	for i := 0; i < 10; i++ {
		_, err := s.ProcessMessage("msg")
		require.NoError(t, err)
	}

	for _, n := range provider.lens {
		assert.LessOrEqual(t, n, windowTurns*2, "history handed to the model must stay within the window")
	}
	assert.Equal(t, windowTurns*2, provider.lens[len(provider.lens)-1])

	require.NoError(t, s.Close())
	assert.Equal(t, 10, store.turnsFor("alice"))
}

func TestDegradedTurnLeavesNoTrace(t *testing.T) {
	store := newMemStore()
	s := newTestSession(t, &stubProvider{fail: true}, store, 5)

	reply, err := s.ProcessMessage("hi")
	require.NoError(t, err)
	assert.Contains(t, reply, "trouble")

	require.NoError(t, s.Close())
	assert.Zero(t, store.turnsFor("alice"), "degraded turns are not persisted")
}

func TestEmptyMessageRejected(t *testing.T) {
	s := newTestSession(t, &stubProvider{reply: "r"}, newMemStore(), 5)
	_, err := s.ProcessMessage("   ")
	assert.ErrorIs(t, err, core.ErrEmptyMessage)
}

func TestConcurrentCallRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := newTestSession(t, &stubProvider{reply: "r", release: release, started: started}, newMemStore(), 5)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.ProcessMessage("slow one")
		firstDone <- err
	}()

	// The first call holds the busy flag once the provider is entered.
	<-started
	_, err := s.ProcessMessage("second")
	assert.ErrorIs(t, err, core.ErrSessionBusy)

	close(release)
	require.NoError(t, <-firstDone)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTestSession(t, &stubProvider{reply: "r"}, newMemStore(), 5)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.ProcessMessage("hi")
	assert.ErrorIs(t, err, core.ErrSessionClosed)
}

func TestClearHistory(t *testing.T) {
	store := newMemStore()
	s := newTestSession(t, &stubProvider{reply: "r"}, store, 5)

	_, err := s.ProcessMessage("remember this")
	require.NoError(t, err)
	s.ClearHistory()

	_, err = s.ProcessMessage("fresh start")
	require.NoError(t, err)

	// Persisted memories survive a window clear.
	require.NoError(t, s.Close())
	assert.Equal(t, 2, store.turnsFor("alice"))
}

func TestUserManagement(t *testing.T) {
	store := newMemStore()
	s := newTestSession(t, &stubProvider{reply: "r"}, store, 5)

	_, err := s.ProcessMessage("hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.turnsFor("alice") == 1
	}, time.Second, 5*time.Millisecond)

	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.Contains(t, users, "alice")

	require.NoError(t, s.DeleteUser("alice"))
	assert.Zero(t, store.turnsFor("alice"))
}
