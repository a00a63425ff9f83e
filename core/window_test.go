package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowAppendAndOrder(t *testing.T) {
	w := NewWindow(3)
	w.Append(UserMessage("hi"), AssistantMessage("hello"))

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestWindowTruncatesOldestFirst(t *testing.T) {
	w := NewWindow(2)
	for i := 0; i < 5; i++ {
		w.Append(
			UserMessage(fmt.Sprintf("u%d", i)),
			AssistantMessage(fmt.Sprintf("a%d", i)),
		)
	}

	msgs := w.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "u3", msgs[0].Content)
	assert.Equal(t, "a4", msgs[3].Content)
}

func TestWindowMessagesReturnsCopy(t *testing.T) {
	w := NewWindow(2)
	w.Append(UserMessage("original"))

	snapshot := w.Messages()
	snapshot[0].Content = "mutated"

	assert.Equal(t, "original", w.Messages()[0].Content)
}

func TestWindowClear(t *testing.T) {
	w := NewWindow(2)
	w.Append(UserMessage("hi"), AssistantMessage("hello"))
	w.Clear()
	assert.Zero(t, w.Len())
}

func TestWindowDefaultsOnBadSize(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < DefaultWindowTurns+5; i++ {
		w.Append(UserMessage("u"), AssistantMessage("a"))
	}
	assert.Equal(t, DefaultWindowTurns*2, w.Len())
}
