// Package local implements the knowledge store port on chromem-go, an
// embedded vector database. It exists for offline development and tests:
// the same turn pipeline runs end to end without a graphiti service.
//
// Each owner gets a dedicated collection, so isolation holds by
// construction.
package local

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
	"github.com/adithya1123/cli-agent-w-graphiti/memory/embedder"
)

const collectionPrefix = "owner_"

// Store is an embedded, in-process knowledge store.
type Store struct {
	db       *chromem.DB
	embedder embedder.Embedder

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New creates an empty local store using the given embedder.
func New(emb embedder.Embedder) *Store {
	return &Store{
		db:          chromem.NewDB(),
		embedder:    emb,
		collections: make(map[string]*chromem.Collection),
	}
}

func (s *Store) collection(owner string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[owner]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[owner]; ok {
		return col, nil
	}

	col, err := s.db.CreateCollection(collectionPrefix+owner, nil, nil)
	if err != nil {
		return nil, memory.Permanent("create_collection", err)
	}
	s.collections[owner] = col
	return col, nil
}

// FetchContext embeds the query and returns the owner's nearest episodes.
func (s *Store) FetchContext(ctx context.Context, owner, query string, limit int) (*memory.ContextBundle, error) {
	col, err := s.collection(owner)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults greater than the collection size.
	if n := col.Count(); n < limit {
		limit = n
	}
	if limit == 0 {
		return &memory.ContextBundle{}, nil
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, memory.Transient("embed_query", err)
	}

	results, err := col.QueryEmbedding(ctx, emb, limit, nil, nil)
	if err != nil {
		return nil, memory.Transient("query", err)
	}

	bundle := &memory.ContextBundle{}
	for _, r := range results {
		bundle.Snippets = append(bundle.Snippets, memory.Snippet{Text: r.Content, Score: float64(r.Similarity)})
	}
	return bundle, nil
}

// CommitTurn stores the exchange as one document in the owner's collection.
func (s *Store) CommitTurn(ctx context.Context, turn core.Turn) error {
	col, err := s.collection(turn.Owner)
	if err != nil {
		return err
	}

	body := turn.EpisodeBody()
	emb, err := s.embedder.Embed(ctx, body)
	if err != nil {
		return memory.Transient("embed_episode", err)
	}

	doc := chromem.Document{
		ID:        turn.Name,
		Content:   body,
		Embedding: emb,
		Metadata: map[string]string{
			"owner":          turn.Owner,
			"reference_time": turn.ReferenceTime.Format("2006-01-02T15:04:05Z07:00"),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return memory.Transient("add_document", fmt.Errorf("add document: %w", err))
	}
	return nil
}

// ListOwners returns owners that have at least one committed turn.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners []string
	for name := range s.db.ListCollections() {
		if strings.HasPrefix(name, collectionPrefix) {
			owners = append(owners, strings.TrimPrefix(name, collectionPrefix))
		}
	}
	return owners, nil
}

// DeleteOwner drops the owner's collection.
func (s *Store) DeleteOwner(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(collectionPrefix + owner); err != nil {
		return memory.Permanent("delete_collection", err)
	}
	delete(s.collections, owner)
	return nil
}

// Close implements memory.Store; the embedded database needs no teardown.
func (s *Store) Close() error {
	return nil
}

var _ memory.Store = (*Store)(nil)
