package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"furnishai-web/internal/middleware"
	"furnishai-web/internal/models"
)

type chatService interface {
	NewConversation(ctx context.Context) (*models.Conversation, error)
	Conversation(ctx context.Context, sessionID uuid.UUID) (*models.Conversation, error)
	Submit(ctx context.Context, sessionID uuid.UUID, text string) ([]models.Turn, error)
}

type ChatHandler struct {
	chat   chatService
	tokens *middleware.SessionTokens
}

func NewChatHandler(chat chatService, tokens *middleware.SessionTokens) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		tokens: tokens,
	}
}

// CreateSession starts a conversation and hands back its token.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.NewConversation(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(conv.SessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionResponse{
		SessionID: conv.SessionID,
		Token:     token,
		Turns:     conv.Turns,
	})
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	conv, err := h.chat.Conversation(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// SendMessage submits one user message and replies with the user and bot
// turns it produced.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	turns, err := h.chat.Submit(r.Context(), sessionID, req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Submits slide the conversation's TTL; slide the token with it.
	token, err := h.tokens.Issue(sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{Turns: turns, Token: token})
}
