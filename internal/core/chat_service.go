package core

import (
	"context"
	"fmt"
	"log"

	"github.com/clairelabs/claire-server/internal/llm"
	"github.com/clairelabs/claire-server/internal/store"
)

const (
	// DefaultHistoryLimit caps how many messages a history fetch returns;
	// the oldest excess messages are dropped from the view, not from storage.
	DefaultHistoryLimit = 50

	defaultConversationTitle = "Claire session"

	fallbackPrefix = "I hit an error while trying to respond. " +
		"Check the server logs or your API configuration and try again."
)

// ChatService resolves conversations, fetches history, and orchestrates the
// persist-call-persist cycle of a chat turn.
type ChatService struct {
	dbStore   *store.SQLiteStore
	completer llm.Completer
}

func NewChatService(db *store.SQLiteStore, completer llm.Completer) *ChatService {
	return &ChatService{
		dbStore:   db,
		completer: completer,
	}
}

// ResolveActive finds the conversation new messages should go to. The
// remembered id (the client's last-known conversation) wins if it still
// belongs to this user; otherwise the newest active conversation; otherwise
// a fresh one is created. A stale or missing remembered id therefore never
// loses history.
func (s *ChatService) ResolveActive(user *store.User, rememberedID string) (*store.Conversation, error) {
	if rememberedID != "" {
		conv, err := s.dbStore.GetConversationByID(rememberedID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up remembered conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
	}

	conv, err := s.dbStore.GetNewestActiveConversation(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	return s.dbStore.CreateConversation(user.ID, defaultConversationTitle)
}

// StartNew deactivates every conversation of the user and opens a fresh
// active one.
func (s *ChatService) StartNew(user *store.User) (*store.Conversation, error) {
	return s.dbStore.StartNewConversation(user.ID, defaultConversationTitle)
}

// History returns the conversation's messages in ascending creation order,
// truncated to the last limit entries.
func (s *ChatService) History(conversationID string, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.dbStore.GetLastNMessages(conversationID, limit)
}

// Respond persists the user's turn, asks the model for a reply, and persists
// that reply. A completion failure never escapes: the assistant turn is
// substituted with a fallback message embedding the error detail, stored and
// returned like any other reply. Storage errors do propagate.
func (s *ChatService) Respond(ctx context.Context, user *store.User, conv *store.Conversation, inputText string) (*store.Message, *store.Message, error) {
	userMsg := store.Message{
		ConversationID: conv.ID,
		SenderRole:     store.RoleUser,
		Content:        inputText,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store user message: %w", err)
	}

	// History including the turn just saved.
	history, err := s.History(conv.ID, DefaultHistoryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}

	replyText, err := s.completer.Complete(ctx, BuildMessages(user, history))
	if err != nil {
		log.Printf("Completion call failed for conversation %s: %v", conv.ID, err)
		replyText = fmt.Sprintf("%s\n\nError: %v", fallbackPrefix, err)
	}

	assistantMsg := store.Message{
		ConversationID: conv.ID,
		SenderRole:     store.RoleAssistant,
		Content:        replyText,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	return &userMsg, &assistantMsg, nil
}

// User passthroughs, so handlers depend on the service alone.

func (s *ChatService) GetUserByEmail(email string) (*store.User, error) {
	return s.dbStore.GetUserByEmail(email)
}

func (s *ChatService) GetUserByID(id int64) (*store.User, error) {
	return s.dbStore.GetUserByID(id)
}

func (s *ChatService) CreateUser(email, fullName, passwordHash, profileNotes string) (*store.User, error) {
	return s.dbStore.CreateUser(email, fullName, passwordHash, profileNotes)
}

func (s *ChatService) UpdateProfileNotes(user *store.User, notes string) (*store.User, error) {
	if err := s.dbStore.UpdateUserProfileNotes(user.ID, notes); err != nil {
		return nil, err
	}
	return s.dbStore.GetUserByID(user.ID)
}

func (s *ChatService) ListConversations(userID int64) ([]store.Conversation, error) {
	return s.dbStore.GetConversationsByUserID(userID)
}

func (s *ChatService) DeleteConversation(conversationID string, userID int64) error {
	return s.dbStore.DeleteConversation(conversationID, userID)
}
