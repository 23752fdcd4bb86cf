package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"toolhub/internal/favorites"
)

func TestPublishAndRead(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewStream(rdb, "test:events", "consumers", 10*time.Millisecond)
	ctx := context.Background()
	if err := s.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}

	ev := favorites.Event{
		Action:       favorites.EventFavoriteAdded,
		Namespace:    "hn",
		CollectionID: "c1",
		ItemID:       "i1",
		At:           time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs, err := s.Read(ctx, "worker-1", 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0].Event
	if got.Action != ev.Action || got.Namespace != "hn" || got.CollectionID != "c1" || got.ItemID != "i1" {
		t.Fatalf("unexpected event %+v", got)
	}
	if err := s.Ack(ctx, msgs[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
}
