// Package memory provides in-process stand-ins for the Redis-backed bus,
// used when the arb finder runs as a single instance without Redis.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

const (
	subscriberBuffer = 64
	streamCap        = 500
)

// Bus is a SignalBus over channels and capped in-memory streams.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[chan []byte]struct{}
	streams map[string][]domain.StreamMessage
	seq     int64
}

func NewBus() *Bus {
	return &Bus{
		subs:    make(map[string]map[chan []byte]struct{}),
		streams: make(map[string][]domain.StreamMessage),
	}
}

// Publish delivers to current subscribers, dropping for any whose buffer is
// full.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel closed when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

func (b *Bus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatInt(b.seq, 10),
		Payload: append([]byte(nil), payload...),
	})
	if len(msgs) > streamCap {
		msgs = msgs[len(msgs)-streamCap:]
	}
	b.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count entries with an ID greater than lastID.
func (b *Bus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	after, _ := strconv.ParseInt(lastID, 10, 64)
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		id, _ := strconv.ParseInt(m.ID, 10, 64)
		if id <= after {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

// Recent returns the newest count entries, newest first.
func (b *Bus) Recent(_ context.Context, stream string, count int) ([]domain.StreamMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := b.streams[stream]
	out := make([]domain.StreamMessage, 0, min(count, len(msgs)))
	for i := len(msgs) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

var _ domain.SignalBus = (*Bus)(nil)
