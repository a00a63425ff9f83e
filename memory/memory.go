// Package memory defines the knowledge store port: the typed interface the
// orchestrator and persistence scheduler use to read and write durable,
// per-owner memory.
//
// The store itself is a remote, fallible, latency-variable dependency.
// Implementations:
//   - graphiti: HTTP client for the external temporal knowledge graph service
//   - local: embedded chromem-go store for offline development and tests
//   - memcache: read-through retrieval cache decorator
package memory

import (
	"context"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
)

// Store is the knowledge store port. Every operation is parameterized by
// exactly one owner identity; implementations must never let one owner
// observe or mutate another owner's data.
type Store interface {
	// FetchContext retrieves ranked fact snippets relevant to query for the
	// given owner. Callers bound the call with a context deadline; failures
	// are classified via IsTransient.
	FetchContext(ctx context.Context, owner, query string, limit int) (*ContextBundle, error)

	// CommitTurn durably records a completed turn under turn.Owner. The
	// commit is atomic from the store's perspective.
	CommitTurn(ctx context.Context, turn core.Turn) error

	// ListOwners returns the owner identities known to the store.
	ListOwners(ctx context.Context) ([]string, error)

	// DeleteOwner removes all data committed under the given owner.
	DeleteOwner(ctx context.Context, owner string) error

	// Close releases client resources.
	Close() error
}
