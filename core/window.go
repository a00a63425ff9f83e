package core

// DefaultWindowTurns is the default conversation window size in turns.
// One turn is a user/assistant message pair.
const DefaultWindowTurns = 10

// Window is the ordered, size-bounded conversation history owned by a single
// session. It holds at most maxTurns*2 messages and truncates from the front
// when the bound is exceeded.
//
// Window is not safe for concurrent use; it inherits the session's
// single-threaded-caller contract.
type Window struct {
	maxTurns int
	msgs     []Message
}

// NewWindow creates a window bounded at maxTurns turns. Non-positive values
// fall back to DefaultWindowTurns.
func NewWindow(maxTurns int) *Window {
	if maxTurns <= 0 {
		maxTurns = DefaultWindowTurns
	}
	return &Window{maxTurns: maxTurns}
}

// Append adds messages to the window, dropping the oldest entries once the
// bound is exceeded.
func (w *Window) Append(msgs ...Message) {
	w.msgs = append(w.msgs, msgs...)
	if max := w.maxTurns * 2; len(w.msgs) > max {
		w.msgs = w.msgs[len(w.msgs)-max:]
	}
}

// Messages returns a copy of the windowed history, oldest first.
func (w *Window) Messages() []Message {
	out := make([]Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

// Len reports the number of messages currently held.
func (w *Window) Len() int {
	return len(w.msgs)
}

// Clear empties the window.
func (w *Window) Clear() {
	w.msgs = nil
}
