package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"furnishai-web/internal/models"
)

// RedisConversationRepo stores each conversation under three keys:
//
//	chat:<id>           hash with created_at
//	chat:<id>:turns     list of JSON-encoded turns
//	chat:<id>:inflight  SETNX lock holding the owner's token
//
// Every write refreshes the TTL so an active conversation never expires.
// The in-flight lock expires after inFlightTTL unless its owner refreshes
// it; refresh and release are compare-and-act on the owner token.
type RedisConversationRepo struct {
	client      *redis.Client
	ttl         time.Duration
	inFlightTTL time.Duration
}

func NewRedisConversationRepo(client *redis.Client, ttl, inFlightTTL time.Duration) *RedisConversationRepo {
	return &RedisConversationRepo{client: client, ttl: ttl, inFlightTTL: inFlightTTL}
}

var (
	releaseInFlightScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

	refreshInFlightScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

func metaKey(id uuid.UUID) string     { return fmt.Sprintf("chat:%s", id) }
func turnsKey(id uuid.UUID) string    { return fmt.Sprintf("chat:%s:turns", id) }
func inFlightKey(id uuid.UUID) string { return fmt.Sprintf("chat:%s:inflight", id) }

func (r *RedisConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	encoded := make([]interface{}, 0, len(conv.Turns))
	for _, t := range conv.Turns {
		data, err := json.Marshal(t)
		if err != nil {
			return errors.Wrap(err, "failed to encode turn")
		}
		encoded = append(encoded, data)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(conv.SessionID), "created_at", conv.CreatedAt.UTC().Format(time.RFC3339Nano))
		pipe.Expire(ctx, metaKey(conv.SessionID), r.ttl)
		if len(encoded) > 0 {
			pipe.RPush(ctx, turnsKey(conv.SessionID), encoded...)
			pipe.Expire(ctx, turnsKey(conv.SessionID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create conversation %s", conv.SessionID)
	}
	return nil
}

func (r *RedisConversationRepo) Get(ctx context.Context, sessionID uuid.UUID) (*models.Conversation, error) {
	createdRaw, err := r.client.HGet(ctx, metaKey(sessionID), "created_at").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load conversation %s", sessionID)
	}

	rawTurns, err := r.client.LRange(ctx, turnsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load turns of %s", sessionID)
	}

	conv := &models.Conversation{SessionID: sessionID, Turns: make([]models.Turn, 0, len(rawTurns))}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	for _, raw := range rawTurns {
		var t models.Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, errors.Wrapf(err, "corrupt turn in conversation %s", sessionID)
		}
		conv.Turns = append(conv.Turns, t)
	}
	return conv, nil
}

func (r *RedisConversationRepo) Append(ctx context.Context, sessionID uuid.UUID, turn models.Turn) error {
	if err := r.ensureExists(ctx, sessionID); err != nil {
		return err
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return errors.Wrap(err, "failed to encode turn")
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, turnsKey(sessionID), data)
		pipe.Expire(ctx, turnsKey(sessionID), r.ttl)
		pipe.Expire(ctx, metaKey(sessionID), r.ttl)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to append turn to %s", sessionID)
	}
	return nil
}

func (r *RedisConversationRepo) AcquireInFlight(ctx context.Context, sessionID uuid.UUID) (string, bool, error) {
	if err := r.ensureExists(ctx, sessionID); err != nil {
		return "", false, err
	}

	token := uuid.NewString()
	locked, err := r.client.SetNX(ctx, inFlightKey(sessionID), token, r.inFlightTTL).Result()
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to lock conversation %s", sessionID)
	}
	if !locked {
		return "", false, nil
	}
	return token, true, nil
}

// RefreshInFlight pushes the lock's expiry out by another inFlightTTL.
func (r *RedisConversationRepo) RefreshInFlight(ctx context.Context, sessionID uuid.UUID, token string) error {
	n, err := refreshInFlightScript.Run(ctx, r.client, []string{inFlightKey(sessionID)},
		token, r.inFlightTTL.Milliseconds()).Int()
	if err != nil {
		return errors.Wrapf(err, "failed to refresh lock of %s", sessionID)
	}
	if n == 0 {
		return ErrInFlightLost
	}
	return nil
}

// ReleaseInFlight deletes the lock only while token still owns it.
func (r *RedisConversationRepo) ReleaseInFlight(ctx context.Context, sessionID uuid.UUID, token string) error {
	err := releaseInFlightScript.Run(ctx, r.client, []string{inFlightKey(sessionID)}, token).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to unlock conversation %s", sessionID)
	}
	return nil
}

func (r *RedisConversationRepo) ensureExists(ctx context.Context, sessionID uuid.UUID) error {
	n, err := r.client.Exists(ctx, metaKey(sessionID)).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to look up conversation %s", sessionID)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}
