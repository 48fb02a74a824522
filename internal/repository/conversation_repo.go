package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInFlightLost         = errors.New("in-flight flag no longer held")
)

// ConversationRepository holds the turn logs of live Recommend views. The
// in-flight flag marks a conversation with a recommendation request
// outstanding; at most one holder may own it. AcquireInFlight returns an
// owner token and only that token can refresh or release the flag.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Conversation, error)
	Append(ctx context.Context, sessionID uuid.UUID, turn models.Turn) error
	AcquireInFlight(ctx context.Context, sessionID uuid.UUID) (token string, ok bool, err error)
	RefreshInFlight(ctx context.Context, sessionID uuid.UUID, token string) error
	ReleaseInFlight(ctx context.Context, sessionID uuid.UUID, token string) error
}
