package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"furnishai-web/internal/models"
)

func newRedisRepo(t *testing.T) (*RedisConversationRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisConversationRepo(client, time.Hour, time.Minute), mr
}

func TestRedisConversationRepo_CreateAppendGet(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()
	conv := newConversation()

	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	products := []models.Product{{UniqID: "p1", Title: "Lamp", Price: "$30"}}
	if err := repo.Append(ctx, conv.SessionID, models.Turn{Text: "lamp please", Sender: models.SenderUser}); err != nil {
		t.Fatalf("append user failed: %v", err)
	}
	if err := repo.Append(ctx, conv.SessionID, models.Turn{Text: "here", Sender: models.SenderBot, Products: products}); err != nil {
		t.Fatalf("append bot failed: %v", err)
	}

	got, err := repo.Get(ctx, conv.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got.Turns))
	}
	if got.Turns[0].Text != "hello" || got.Turns[1].Sender != models.SenderUser {
		t.Errorf("turns out of order: %+v", got.Turns)
	}
	if len(got.Turns[2].Products) != 1 || got.Turns[2].Products[0].Title != "Lamp" {
		t.Errorf("products not preserved: %+v", got.Turns[2].Products)
	}

	if ttl := mr.TTL(metaKey(conv.SessionID)); ttl <= 0 || ttl > time.Hour {
		t.Errorf("expected meta key ttl within an hour, got %s", ttl)
	}
}

func TestRedisConversationRepo_Expiry(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()
	conv := newConversation()
	repo.Create(ctx, conv)

	mr.FastForward(2 * time.Hour)

	if _, err := repo.Get(ctx, conv.SessionID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected expired conversation to be gone, got %v", err)
	}
	if err := repo.Append(ctx, conv.SessionID, models.Turn{}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected append to expired conversation to fail, got %v", err)
	}
}

func TestRedisConversationRepo_InFlight(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	conv := newConversation()
	repo.Create(ctx, conv)

	token, ok, err := repo.AcquireInFlight(ctx, conv.SessionID)
	if err != nil || !ok || token == "" {
		t.Fatalf("expected first acquire to succeed, got %q %v %v", token, ok, err)
	}
	if _, ok, _ = repo.AcquireInFlight(ctx, conv.SessionID); ok {
		t.Fatal("expected second acquire to fail while held")
	}

	if err := repo.ReleaseInFlight(ctx, conv.SessionID, "someone-else"); err != nil {
		t.Fatalf("foreign release errored: %v", err)
	}
	if _, ok, _ = repo.AcquireInFlight(ctx, conv.SessionID); ok {
		t.Fatal("a foreign token must not release the flag")
	}

	if err := repo.ReleaseInFlight(ctx, conv.SessionID, token); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, ok, _ = repo.AcquireInFlight(ctx, conv.SessionID); !ok {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestRedisConversationRepo_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()
	conv := newConversation()
	repo.Create(ctx, conv)

	first, ok, _ := repo.AcquireInFlight(ctx, conv.SessionID)
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	// A crashed holder that never refreshes loses the flag after the TTL.
	mr.FastForward(2 * time.Minute)
	second, ok, _ := repo.AcquireInFlight(ctx, conv.SessionID)
	if !ok {
		t.Fatal("expected stale in-flight flag to expire")
	}

	if err := repo.ReleaseInFlight(ctx, conv.SessionID, first); err != nil {
		t.Fatalf("stale release errored: %v", err)
	}
	if _, ok, _ := repo.AcquireInFlight(ctx, conv.SessionID); ok {
		t.Fatal("stale holder released the current holder's flag")
	}
	if err := repo.RefreshInFlight(ctx, conv.SessionID, first); !errors.Is(err, ErrInFlightLost) {
		t.Fatalf("expected stale refresh to report ErrInFlightLost, got %v", err)
	}
	if err := repo.RefreshInFlight(ctx, conv.SessionID, second); err != nil {
		t.Fatalf("current holder refresh failed: %v", err)
	}
}

func TestRedisConversationRepo_RefreshKeepsFlagAlive(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()
	conv := newConversation()
	repo.Create(ctx, conv)

	token, _, _ := repo.AcquireInFlight(ctx, conv.SessionID)
	for i := 0; i < 5; i++ {
		mr.FastForward(40 * time.Second)
		if err := repo.RefreshInFlight(ctx, conv.SessionID, token); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}

	if _, ok, _ := repo.AcquireInFlight(ctx, conv.SessionID); ok {
		t.Fatal("a refreshed flag must stay held past the original TTL")
	}
	if ttl := mr.TTL(inFlightKey(conv.SessionID)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected in-flight ttl within a minute, got %s", ttl)
	}
}
