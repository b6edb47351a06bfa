package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// scanStreamMaxLen caps the scan history stream (XADD MAXLEN ~).
const scanStreamMaxLen int64 = 5000

// SignalBus carries scan and opportunity events: Pub/Sub for live fan-out to
// websocket clients, a stream for the recent scan history.
type SignalBus struct {
	rdb *redis.Client
}

func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads that closes when ctx is done.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key(stream),
		MaxLen: scanStreamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID ("0" reads from the
// start). An empty stream yields no entries and no error.
func (sb *SignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	res, err := sb.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{key(stream), lastID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range res {
		for _, m := range s.Messages {
			switch v := m.Values["payload"].(type) {
			case string:
				out = append(out, domain.StreamMessage{ID: m.ID, Payload: []byte(v)})
			case []byte:
				out = append(out, domain.StreamMessage{ID: m.ID, Payload: v})
			}
		}
	}
	return out, nil
}

// Recent returns the newest count scan entries, newest first.
func (sb *SignalBus) Recent(ctx context.Context, stream string, count int) ([]domain.StreamMessage, error) {
	msgs, err := sb.rdb.XRevRangeN(ctx, key(stream), "+", "-", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: stream recent %s: %w", stream, err)
	}
	out := make([]domain.StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		if s, ok := m.Values["payload"].(string); ok {
			out = append(out, domain.StreamMessage{ID: m.ID, Payload: []byte(s)})
		}
	}
	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
