package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUserID(t *testing.T) {
	for _, id := range []string{"alice", "bob_2", "a-b-c", "X", strings.Repeat("a", 50)} {
		assert.NoError(t, validateUserID(id), id)
	}
	for _, id := range []string{"", "has space", "semi;colon", "slash/", strings.Repeat("a", 51), "émile"} {
		assert.Error(t, validateUserID(id), id)
	}
}

func TestLastUserRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	assert.Empty(t, loadLastUser(), "fresh home has no remembered user")
	require.NoError(t, saveLastUser("alice"))
	assert.Equal(t, "alice", loadLastUser())
}

func TestPromptUserAcceptsInput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	id, err := promptUser(strings.NewReader("bob\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "bob", id)
}

func TestPromptUserDefaultsToLast(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, saveLastUser("alice"))

	var out bytes.Buffer
	id, err := promptUser(strings.NewReader("\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
	assert.Contains(t, out.String(), "[alice]")
}

func TestPromptUserRetriesOnInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	id, err := promptUser(strings.NewReader("bad id!\ncarol\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "carol", id)
}
