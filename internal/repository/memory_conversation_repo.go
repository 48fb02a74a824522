package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"furnishai-web/internal/models"
)

type memoryConversation struct {
	conv     models.Conversation
	inFlight string
	lastSeen time.Time
}

// MemoryConversationRepo keeps conversations in process memory. Idle
// conversations are dropped by Sweep.
type MemoryConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*memoryConversation
	now           func() time.Time
}

func NewMemoryConversationRepo() *MemoryConversationRepo {
	return &MemoryConversationRepo{
		conversations: make(map[uuid.UUID]*memoryConversation),
		now:           time.Now,
	}
}

func (r *MemoryConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *conv
	stored.Turns = append([]models.Turn(nil), conv.Turns...)
	r.conversations[conv.SessionID] = &memoryConversation{conv: stored, lastSeen: r.now()}
	return nil
}

func (r *MemoryConversationRepo) Get(ctx context.Context, sessionID uuid.UUID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[sessionID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	c.lastSeen = r.now()

	out := c.conv
	out.Turns = append([]models.Turn(nil), c.conv.Turns...)
	return &out, nil
}

func (r *MemoryConversationRepo) Append(ctx context.Context, sessionID uuid.UUID, turn models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[sessionID]
	if !ok {
		return ErrConversationNotFound
	}
	c.conv.Turns = append(c.conv.Turns, turn)
	c.lastSeen = r.now()
	return nil
}

func (r *MemoryConversationRepo) AcquireInFlight(ctx context.Context, sessionID uuid.UUID) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[sessionID]
	if !ok {
		return "", false, ErrConversationNotFound
	}
	if c.inFlight != "" {
		return "", false, nil
	}
	c.inFlight = uuid.NewString()
	c.lastSeen = r.now()
	return c.inFlight, true, nil
}

// RefreshInFlight only checks ownership; the in-memory flag never expires.
func (r *MemoryConversationRepo) RefreshInFlight(ctx context.Context, sessionID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[sessionID]
	if !ok || c.inFlight != token {
		return ErrInFlightLost
	}
	c.lastSeen = r.now()
	return nil
}

func (r *MemoryConversationRepo) ReleaseInFlight(ctx context.Context, sessionID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conversations[sessionID]; ok && c.inFlight == token {
		c.inFlight = ""
	}
	return nil
}

// Sweep removes conversations idle for longer than ttl and reports how many
// were dropped. Conversations with a request in flight are kept.
func (r *MemoryConversationRepo) Sweep(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.conversations {
		if c.inFlight != "" || now.Sub(c.lastSeen) <= ttl {
			continue
		}
		delete(r.conversations, id)
		removed++
	}
	return removed
}

func (r *MemoryConversationRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations)
}
