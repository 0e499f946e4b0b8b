package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clairelabs/claire-server/internal/llm"
	"github.com/clairelabs/claire-server/internal/store"
)

// fakeCompleter records the payloads it receives and returns a canned reply
// or error.
type fakeCompleter struct {
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(t *testing.T, completer llm.Completer) (*ChatService, *store.SQLiteStore) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })
	return NewChatService(dbStore, completer), dbStore
}

func serviceUser(t *testing.T, dbStore *store.SQLiteStore) *store.User {
	t.Helper()
	user, err := dbStore.CreateUser("alex@example.com", "Alex Doe", "hash", "")
	require.NoError(t, err)
	return user
}

func TestResolveActive_CreatesWhenNoneExists(t *testing.T) {
	svc, dbStore := newTestService(t, &fakeCompleter{})
	user := serviceUser(t, dbStore)

	conv, err := svc.ResolveActive(user, "")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.True(t, conv.IsActive)
	assert.Equal(t, "Claire session", conv.Title)
}

func TestResolveActive_PrefersRememberedID(t *testing.T) {
	svc, dbStore := newTestService(t, &fakeCompleter{})
	user := serviceUser(t, dbStore)

	older, err := dbStore.CreateConversation(user.ID, "Claire session")
	require.NoError(t, err)
	newer, err := dbStore.StartNewConversation(user.ID, "Claire session")
	require.NoError(t, err)

	// The remembered conversation wins even though it is no longer active.
	conv, err := svc.ResolveActive(user, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, conv.ID)

	// A stale remembered id falls back to the newest active conversation.
	conv, err = svc.ResolveActive(user, "no-such-conversation")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, conv.ID)
}

func TestResolveActive_IgnoresOtherUsersConversation(t *testing.T) {
	svc, dbStore := newTestService(t, &fakeCompleter{})
	alice := serviceUser(t, dbStore)
	bob, err := dbStore.CreateUser("bob@example.com", "Bob", "hash", "")
	require.NoError(t, err)

	aliceConv, err := dbStore.CreateConversation(alice.ID, "Claire session")
	require.NoError(t, err)

	conv, err := svc.ResolveActive(bob, aliceConv.ID)
	require.NoError(t, err)
	assert.NotEqual(t, aliceConv.ID, conv.ID)
}

func TestStartNew_ThenResolveActiveReturnsNew(t *testing.T) {
	svc, dbStore := newTestService(t, &fakeCompleter{})
	user := serviceUser(t, dbStore)

	a, err := svc.ResolveActive(user, "")
	require.NoError(t, err)

	b, err := svc.StartNew(user)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, b.IsActive)

	reloaded, err := dbStore.GetConversationByID(a.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	resolved, err := svc.ResolveActive(user, "")
	require.NoError(t, err)
	assert.Equal(t, b.ID, resolved.ID)
}

func TestRespond_PersistsBothTurns(t *testing.T) {
	completer := &fakeCompleter{reply: "That sounds hard. Where do you feel it most right now?"}
	svc, dbStore := newTestService(t, completer)
	user := serviceUser(t, dbStore)
	conv, err := svc.ResolveActive(user, "")
	require.NoError(t, err)

	userMsg, assistantMsg, err := svc.Respond(context.Background(), user, conv, "I feel anxious")
	require.NoError(t, err)

	assert.Equal(t, store.RoleUser, userMsg.SenderRole)
	assert.Equal(t, "I feel anxious", userMsg.Content)
	assert.Equal(t, store.RoleAssistant, assistantMsg.SenderRole)
	assert.Equal(t, completer.reply, assistantMsg.Content)

	history, err := svc.History(conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, userMsg.ID, history[0].ID)
	assert.Equal(t, assistantMsg.ID, history[1].ID)
}

func TestRespond_PromptIncludesNewUserTurn(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	svc, dbStore := newTestService(t, completer)
	user := serviceUser(t, dbStore)
	conv, err := svc.ResolveActive(user, "")
	require.NoError(t, err)

	_, _, err = svc.Respond(context.Background(), user, conv, "I feel anxious")
	require.NoError(t, err)

	require.Len(t, completer.calls, 1)
	payload := completer.calls[0]
	require.GreaterOrEqual(t, len(payload), 3)
	last := payload[len(payload)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "I feel anxious", last.Content)
}

func TestRespond_CompletionFailureBecomesFallback(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("timeout")}
	svc, dbStore := newTestService(t, completer)
	user := serviceUser(t, dbStore)
	conv, err := svc.ResolveActive(user, "")
	require.NoError(t, err)

	userMsg, assistantMsg, err := svc.Respond(context.Background(), user, conv, "I feel anxious")
	require.NoError(t, err, "completion failures must not escape the orchestrator")

	assert.Equal(t, "I feel anxious", userMsg.Content)
	assert.True(t, strings.HasPrefix(assistantMsg.Content, "I hit an error while trying to respond."))
	assert.Contains(t, assistantMsg.Content, "timeout")

	// The fallback is persisted like a normal assistant turn.
	history, err := svc.History(conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleAssistant, history[1].SenderRole)
	assert.Equal(t, assistantMsg.Content, history[1].Content)
}

func TestHistory_DefaultLimit(t *testing.T) {
	svc, dbStore := newTestService(t, &fakeCompleter{})
	user := serviceUser(t, dbStore)
	conv, err := svc.ResolveActive(user, "")
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		msg := store.Message{ConversationID: conv.ID, SenderRole: store.RoleUser, Content: fmt.Sprintf("msg %02d", i)}
		require.NoError(t, dbStore.CreateMessage(&msg))
	}

	history, err := svc.History(conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, DefaultHistoryLimit)
	assert.Equal(t, "msg 10", history[0].Content)
}

func TestQuickActionText(t *testing.T) {
	text, ok := QuickActionText("breathing")
	require.True(t, ok)
	assert.Contains(t, text, "breathing exercise")

	_, ok = QuickActionText("make-me-coffee")
	assert.False(t, ok)
}
