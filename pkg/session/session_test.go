package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/session"
	"github.com/corepilot/core/pkg/types"
)

func TestGetOrCreateGeneratesIDWhenEmpty(t *testing.T) {
	store := session.New()
	sess := store.GetOrCreate("")
	require.NotEmpty(t, sess.ID)
}

func TestGetOrCreateReusesExistingSession(t *testing.T) {
	store := session.New()
	first := store.GetOrCreate("s1")
	second := store.GetOrCreate("s1")
	assert.Same(t, first, second)
}

func TestAppendIsOrderedAndAppendOnly(t *testing.T) {
	store := session.New()
	store.GetOrCreate("s1")
	store.Append("s1", types.Message{Role: types.RoleUser, Text: "hello"})
	store.Append("s1", types.Message{Role: types.RoleAssistant, Text: "hi"})

	sess := store.Get("s1")
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "hello", sess.Messages[0].Text)
	assert.Equal(t, "hi", sess.Messages[1].Text)
}
