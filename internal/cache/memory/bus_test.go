package memory

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBus()
	ch, err := b.Subscribe(ctx, "ch:scan")
	if err != nil {
		t.Fatal(err)
	}
	_ = b.Publish(ctx, "ch:scan", []byte("one"))
	_ = b.Publish(ctx, "ch:arb", []byte("other"))

	select {
	case got := <-ch:
		if string(got) != "one" {
			t.Errorf("got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	for _, p := range []string{"a", "b", "c"} {
		_ = b.StreamAppend(ctx, "s", []byte(p))
	}

	all, _ := b.StreamRead(ctx, "s", "0", 0)
	if len(all) != 3 || string(all[0].Payload) != "a" {
		t.Fatalf("read = %+v", all)
	}
	after, _ := b.StreamRead(ctx, "s", all[0].ID, 1)
	if len(after) != 1 || string(after[0].Payload) != "b" {
		t.Errorf("read after = %+v", after)
	}
	recent, _ := b.Recent(ctx, "s", 2)
	if len(recent) != 2 || string(recent[0].Payload) != "c" || string(recent[1].Payload) != "b" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestStreamCap(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	for range streamCap + 10 {
		_ = b.StreamAppend(ctx, "s", []byte("x"))
	}
	all, _ := b.StreamRead(ctx, "s", "0", 0)
	if len(all) != streamCap || all[0].ID != "11" {
		t.Errorf("len=%d first=%s", len(all), all[0].ID)
	}
}
