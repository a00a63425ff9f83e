package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/embedder/mock"
)

func commit(t *testing.T, s *Store, owner, user, agent string) {
	t.Helper()
	require.NoError(t, s.CommitTurn(context.Background(), core.NewTurn(owner, user, agent)))
}

func TestCommitThenFetch(t *testing.T) {
	s := New(mock.New())
	commit(t, s, "alice", "I love hiking in the Alps", "That sounds wonderful")

	bundle, err := s.FetchContext(context.Background(), "alice", "hiking", 3)
	require.NoError(t, err)
	require.Len(t, bundle.Snippets, 1)
	assert.Contains(t, bundle.Snippets[0].Text, "hiking in the Alps")
}

func TestFetchEmptyOwner(t *testing.T) {
	s := New(mock.New())
	bundle, err := s.FetchContext(context.Background(), "nobody", "anything", 5)
	require.NoError(t, err)
	assert.True(t, bundle.Empty())
}

func TestOwnerIsolation(t *testing.T) {
	s := New(mock.New())
	commit(t, s, "alice", "my secret is X", "noted")
	commit(t, s, "bob", "I play chess", "nice")

	bundle, err := s.FetchContext(context.Background(), "bob", "secret", 10)
	require.NoError(t, err)
	for _, sn := range bundle.Snippets {
		assert.NotContains(t, sn.Text, "secret is X", "bob must never see alice's memories")
	}
}

func TestLimitClampedToCollectionSize(t *testing.T) {
	s := New(mock.New())
	commit(t, s, "alice", "one", "1")
	commit(t, s, "alice", "two", "2")

	bundle, err := s.FetchContext(context.Background(), "alice", "numbers", 50)
	require.NoError(t, err)
	assert.Len(t, bundle.Snippets, 2)
}

func TestListAndDeleteOwners(t *testing.T) {
	s := New(mock.New())
	commit(t, s, "alice", "hi", "hello")
	commit(t, s, "bob", "hi", "hello")

	owners, err := s.ListOwners(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, owners)

	require.NoError(t, s.DeleteOwner(context.Background(), "alice"))

	owners, err = s.ListOwners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, owners)

	bundle, err := s.FetchContext(context.Background(), "alice", "hi", 5)
	require.NoError(t, err)
	assert.True(t, bundle.Empty())
}
