package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Turn is a single message in a conversation log. Turns are never
// modified once appended.
type Turn struct {
	Text      string    `json:"text"`
	Sender    string    `json:"sender"` // "user" or "bot"
	Products  []Product `json:"products,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the turn log behind one Recommend view.
type Conversation struct {
	SessionID uuid.UUID `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendRequest is the body sent to the backend's /rag-recommend.
type RecommendRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// RecommendResponse is the backend's reply to a recommendation request.
type RecommendResponse struct {
	GeneratedDescription string    `json:"generated_description"`
	RetrievedProducts    []Product `json:"retrieved_products"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse carries a re-issued session token so an active
// conversation's token lives as long as the conversation does.
type SendMessageResponse struct {
	Turns []Turn `json:"turns"`
	Token string `json:"token"`
}

type SessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	Turns     []Turn    `json:"turns"`
}
