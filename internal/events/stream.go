// Package events publishes favorites change events to a redis stream.
// The browser build of this system notified in-page listeners on every
// storage write; the server port exposes the same signal to external
// consumers instead.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"toolhub/internal/favorites"
)

type Stream struct {
	redis  *redis.Client
	stream string
	group  string
	block  time.Duration
}

type Message struct {
	ID    string
	Event favorites.Event
}

func NewStream(rdb *redis.Client, stream, group string, block time.Duration) *Stream {
	if stream == "" {
		stream = "toolhub:favorites-events"
	}
	return &Stream{
		redis:  rdb,
		stream: stream,
		group:  group,
		block:  block,
	}
}

var _ favorites.Publisher = (*Stream)(nil)

func (s *Stream) Publish(ctx context.Context, ev favorites.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"payload": payload},
	}).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (s *Stream) EnsureGroup(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	err := s.redis.XGroupCreateMkStream(ctx, s.stream, s.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create stream group: %w", err)
	}
	return nil
}

func (s *Stream) Read(ctx context.Context, consumer string, count int64) ([]Message, error) {
	res, err := s.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: consumer,
		Streams:  []string{s.stream, ">"},
		Count:    count,
		Block:    s.block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	out := make([]Message, 0)
	for _, str := range res {
		for _, m := range str.Messages {
			raw, ok := m.Values["payload"]
			if !ok {
				continue
			}

			var b []byte
			switch v := raw.(type) {
			case string:
				b = []byte(v)
			case []byte:
				b = v
			default:
				continue
			}

			var ev favorites.Event
			if err := json.Unmarshal(b, &ev); err != nil {
				continue
			}
			out = append(out, Message{ID: m.ID, Event: ev})
		}
	}
	return out, nil
}

func (s *Stream) Ack(ctx context.Context, messageID string) error {
	if err := s.redis.XAck(ctx, s.stream, s.group, messageID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}
