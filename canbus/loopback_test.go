package canbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopbackDelivery(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()
	a, b := lb.Open(), lb.Open()
	ctx := context.Background()

	if err := a.Send(ctx, MustFrame(0x123, []byte("hi"))); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.ID != 0x123 || string(f.Payload()) != "hi" {
		t.Fatalf("got %v", f)
	}

	// sender never sees its own frame
	rctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if _, err := a.Receive(rctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestLoopbackClose(t *testing.T) {
	lb := NewLoopbackBus()
	a, b := lb.Open(), lb.Open()
	ctx := context.Background()

	_ = b.Close()
	if _, err := b.Receive(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("receive after close: %v", err)
	}
	if err := a.Send(ctx, MustFrame(1, nil)); err != nil {
		t.Fatalf("send with no peers: %v", err)
	}

	_ = lb.Close()
	if err := a.Send(ctx, MustFrame(1, nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after bus close: %v", err)
	}
	if _, err := lb.Open().Receive(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("open after bus close: %v", err)
	}
}

func TestLoopbackRejectsInvalid(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()
	a := lb.Open()
	if err := a.Send(context.Background(), Frame{ID: 0x800}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
