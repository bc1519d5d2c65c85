package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: TypeScan, Body: []byte("abc")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != TypeScan || string(msg.Body) != "abc" {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, Message{Type: TypeScan}); err == nil {
		t.Error("want context error on cancelled publish")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg, err := deserialize(serialize(Message{Type: "scan", Body: []byte("x|y")}))
	if err != nil {
		t.Fatalf("deserialize() error = %v", err)
	}
	if msg.Type != "scan" || string(msg.Body) != "x|y" {
		t.Errorf("round trip = %+v", msg)
	}
}
