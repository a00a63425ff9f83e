package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Turn is the durable record of one completed user/assistant exchange. It is
// an immutable snapshot, decoupled from the live conversation window:
// ownership transfers to the persistence scheduler once constructed.
type Turn struct {
	// Name is a monotonically distinct identifier for the episode.
	Name string

	// Owner is the isolation key the turn is committed under.
	Owner string

	UserMessage      string
	AssistantMessage string

	// ReferenceTime is the wall-clock time the exchange completed.
	ReferenceTime time.Time
}

// NewTurn builds a Turn for the given owner with a unique name and the
// current time as reference.
func NewTurn(owner, userMessage, assistantMessage string) Turn {
	return Turn{
		Name:             fmt.Sprintf("conversation_%s", uuid.NewString()),
		Owner:            owner,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		ReferenceTime:    time.Now().UTC(),
	}
}

// EpisodeBody renders the exchange in the form the knowledge store ingests.
func (t Turn) EpisodeBody() string {
	return fmt.Sprintf("User: %s\nAgent: %s", t.UserMessage, t.AssistantMessage)
}
