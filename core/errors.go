package core

import "errors"

// Fatal-Input and bridge-misuse errors. These are the only errors that
// surface synchronously to callers of the session's ProcessMessage; every
// other failure mode degrades inside the turn instead of propagating.
var (
	// ErrEmptyMessage rejects a blank user message before any work begins.
	ErrEmptyMessage = errors.New("empty user message")

	// ErrSessionClosed reports use of a session after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSessionBusy reports a concurrent ProcessMessage call on a session,
	// which violates the single-threaded-caller contract.
	ErrSessionBusy = errors.New("session busy: concurrent ProcessMessage call")
)
