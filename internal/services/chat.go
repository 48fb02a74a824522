package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishai-web/internal/models"
	"furnishai-web/internal/repository"
)

const (
	GreetingText = "Hello! I'm FurnishAI. Describe the kind of furniture you're looking for, and I'll find some recommendations for you."
	FallbackText = "Sorry, I'm having trouble connecting to my brain right now. Please try again later."

	// Bookkeeping after the backend call must finish even when the client
	// has gone away.
	cleanupTimeout = 5 * time.Second

	// InFlightRefreshInterval is how often a running submit renews its
	// in-flight flag. Stores with expiring flags need a TTL well above it.
	InFlightRefreshInterval = 20 * time.Second
)

type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error)
}

// Publisher fans conversation events out to connected browsers.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
}

type ChatService struct {
	repo         repository.ConversationRepository
	recommender  Recommender
	publisher    Publisher
	log          logrus.FieldLogger
	now          func() time.Time
	refreshEvery time.Duration
}

func NewChatService(repo repository.ConversationRepository, recommender Recommender, publisher Publisher, log logrus.FieldLogger) *ChatService {
	return &ChatService{
		repo:         repo,
		recommender:  recommender,
		publisher:    publisher,
		log:          log,
		now:          time.Now,
		refreshEvery: InFlightRefreshInterval,
	}
}

// NewConversation starts a conversation with a fresh session id and the
// greeting turn.
func (s *ChatService) NewConversation(ctx context.Context) (*models.Conversation, error) {
	now := s.now().UTC()
	conv := &models.Conversation{
		SessionID: uuid.New(),
		Turns:     []models.Turn{{Text: GreetingText, Sender: models.SenderBot, CreatedAt: now}},
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	s.log.WithField("session_id", conv.SessionID).Info("conversation started")
	return conv, nil
}

func (s *ChatService) Conversation(ctx context.Context, sessionID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrConversationNotFound) {
		return nil, &NotFoundError{Message: "Conversation not found"}
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Submit appends the user's turn, asks the backend for a recommendation and
// appends exactly one bot turn: the reply, or the fallback message when the
// backend fails for any reason. Blank text is rejected without touching the
// log, and so is a submit while another one is still outstanding.
func (s *ChatService) Submit(ctx context.Context, sessionID uuid.UUID, text string) ([]models.Turn, error) {
	if trimBrowserSpace(text) == "" {
		return nil, &ValidationError{Fields: map[string]string{"text": "Message is required"}}
	}

	lockToken, acquired, err := s.repo.AcquireInFlight(ctx, sessionID)
	if errors.Is(err, repository.ErrConversationNotFound) {
		return nil, &NotFoundError{Message: "Conversation not found"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to check in-flight request")
	}
	if !acquired {
		return nil, &ConflictError{Message: "A recommendation is already in progress for this conversation"}
	}

	log := s.log.WithField("session_id", sessionID)
	bookkeeping := context.WithoutCancel(ctx)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(bookkeeping, cleanupTimeout)
		defer cancel()
		if err := s.repo.ReleaseInFlight(cleanupCtx, sessionID, lockToken); err != nil {
			log.WithField("error", err).Error("failed to release in-flight flag")
		}
		s.publish(cleanupCtx, sessionID, models.EventLoading, models.LoadingUpdate{Loading: false})
	}()

	userTurn := models.Turn{Text: text, Sender: models.SenderUser, CreatedAt: s.now().UTC()}
	if err := s.repo.Append(ctx, sessionID, userTurn); err != nil {
		return nil, errors.Wrap(err, "failed to append user turn")
	}
	s.publish(ctx, sessionID, models.EventTurnAppended, userTurn)
	s.publish(ctx, sessionID, models.EventLoading, models.LoadingUpdate{Loading: true})

	botTurn := models.Turn{Sender: models.SenderBot}
	stopRefresh := s.keepInFlight(bookkeeping, sessionID, lockToken, log)
	resp, err := s.recommender.Recommend(ctx, models.RecommendRequest{Text: text, SessionID: sessionID.String()})
	stopRefresh()
	if err != nil {
		log.WithField("error", err).Warn("failed to get recommendation")
		botTurn.Text = FallbackText
	} else {
		botTurn.Text = resp.GeneratedDescription
		botTurn.Products = resp.RetrievedProducts
		log.WithField("products", len(resp.RetrievedProducts)).Info("recommendation received")
	}
	botTurn.CreatedAt = s.now().UTC()

	if err := s.repo.Append(bookkeeping, sessionID, botTurn); err != nil {
		return nil, errors.Wrap(err, "failed to append bot turn")
	}
	s.publish(bookkeeping, sessionID, models.EventTurnAppended, botTurn)

	return []models.Turn{userTurn, botTurn}, nil
}

// keepInFlight renews the in-flight flag until the returned stop func is
// called, so a slow backend call never outlives its own lock.
func (s *ChatService) keepInFlight(ctx context.Context, sessionID uuid.UUID, token string, log logrus.FieldLogger) func() {
	if s.refreshEvery <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.refreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.repo.RefreshInFlight(ctx, sessionID, token); err != nil {
					log.WithField("error", err).Warn("failed to refresh in-flight flag")
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

func (s *ChatService) publish(ctx context.Context, sessionID uuid.UUID, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, sessionID, models.WSMessage{Type: eventType, Payload: payload})
}
