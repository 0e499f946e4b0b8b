package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/clairelabs/claire-server/internal/auth"
	"github.com/clairelabs/claire-server/internal/config"
	"github.com/clairelabs/claire-server/internal/core"
	"github.com/clairelabs/claire-server/internal/store"
)

const minPasswordLength = 8

type APIHandler struct {
	chatService *core.ChatService
}

func NewAPIHandler(cs *core.ChatService) *APIHandler {
	return &APIHandler{chatService: cs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// AuthMiddleware validates the bearer token and loads the authenticated user
// into the request context.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.chatService.GetUserByID(userID)
		if err != nil {
			log.Printf("Error loading user %d in AuthMiddleware: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), "user", user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUser(r *http.Request) *store.User {
	return r.Context().Value("user").(*store.User)
}

type SignupRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	ProfileNotes    string `json:"profile_notes"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if !config.AppConfig.AllowSignup {
		writeError(w, http.StatusForbidden, "Signup is disabled on this deployment")
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	switch {
	case req.FullName == "" || req.Email == "" || req.Password == "" || req.PasswordConfirm == "":
		writeError(w, http.StatusBadRequest, "All fields except profile notes are required")
		return
	case utf8.RuneCountInString(req.Password) < minPasswordLength:
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	case req.Password != req.PasswordConfirm:
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user, err := h.chatService.CreateUser(req.Email, req.FullName, hashedPassword, req.ProfileNotes)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "An account with that email already exists")
			return
		}
		log.Printf("Error creating user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.chatService.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, requestUser(r))
}

type UpdateNotesRequest struct {
	ProfileNotes string `json:"profile_notes"`
}

func (h *APIHandler) UpdateNotesHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.chatService.UpdateProfileNotes(user, req.ProfileNotes)
	if err != nil {
		log.Printf("Error updating profile notes for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile notes")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type ConversationResponse struct {
	Conversation *store.Conversation `json:"conversation"`
	Messages     []store.Message     `json:"messages"`
}

// GetConversationHandler resolves the user's active conversation (honoring an
// optional remembered_id query parameter) and returns it with its history.
func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	conv, err := h.chatService.ResolveActive(user, r.URL.Query().Get("remembered_id"))
	if err != nil {
		log.Printf("Error resolving conversation for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to resolve conversation")
		return
	}

	messages, err := h.chatService.History(conv.ID, core.DefaultHistoryLimit)
	if err != nil {
		log.Printf("Error loading history for conversation %s: %v", conv.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, ConversationResponse{Conversation: conv, Messages: messages})
}

func (h *APIHandler) NewConversationHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	conv, err := h.chatService.StartNew(user)
	if err != nil {
		log.Printf("Error starting conversation for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	convs, err := h.chatService.ListConversations(user.ID)
	if err != nil {
		log.Printf("Error listing conversations for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	conversationID := chi.URLParam(r, "conversationID")

	err := h.chatService.DeleteConversation(conversationID, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("Error deleting conversation %s for user %d: %v", conversationID, user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PostMessageRequest struct {
	Content      string `json:"content"`
	RememberedID string `json:"remembered_id,omitempty"`
}

type ReplyResponse struct {
	Conversation     *store.Conversation `json:"conversation"`
	UserMessage      *store.Message      `json:"user_message"`
	AssistantMessage *store.Message      `json:"assistant_message"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Message content cannot be empty")
		return
	}

	h.respond(w, r, req.Content, req.RememberedID)
}

type QuickActionRequest struct {
	Action       string `json:"action"`
	RememberedID string `json:"remembered_id,omitempty"`
}

// QuickActionHandler feeds a named seed prompt through the normal reply path.
func (h *APIHandler) QuickActionHandler(w http.ResponseWriter, r *http.Request) {
	var req QuickActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	seedText, ok := core.QuickActionText(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown quick action: "+req.Action)
		return
	}

	h.respond(w, r, seedText, req.RememberedID)
}

func (h *APIHandler) respond(w http.ResponseWriter, r *http.Request, content, rememberedID string) {
	user := requestUser(r)

	conv, err := h.chatService.ResolveActive(user, rememberedID)
	if err != nil {
		log.Printf("Error resolving conversation for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to resolve conversation")
		return
	}

	userMsg, assistantMsg, err := h.chatService.Respond(r.Context(), user, conv, content)
	if err != nil {
		log.Printf("Error responding in conversation %s: %v", conv.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to post message")
		return
	}

	writeJSON(w, http.StatusOK, ReplyResponse{
		Conversation:     conv,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}
