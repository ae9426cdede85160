package liststore

import (
	"context"
	"testing"
)

func TestMemoryListSemantics(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	if n, _ := l.Len(ctx, "q"); n != 0 {
		t.Fatalf("expect empty list, got %d", n)
	}
	if _, ok, _ := l.RPop(ctx, "q"); ok {
		t.Fatalf("rpop on empty list must report not-found")
	}

	// lpush seeds in reverse so rpop drains in seed order
	if err := l.LPush(ctx, "q", "c", "b", "a"); err != nil {
		t.Fatalf("lpush: %v", err)
	}
	if n, _ := l.Len(ctx, "q"); n != 3 {
		t.Fatalf("expect 3 entries, got %d", n)
	}

	v, ok, _ := l.RPop(ctx, "q")
	if !ok || v != "c" {
		t.Errorf("expect first lpushed value c, got %q", v)
	}

	if err := l.RPush(ctx, "q", "d"); err != nil {
		t.Fatalf("rpush: %v", err)
	}
	v, ok, _ = l.RPop(ctx, "q")
	if !ok || v != "d" {
		t.Errorf("rpop should return the rpushed tail, got %q", v)
	}

	for _, want := range []string{"b", "a"} {
		v, ok, _ = l.RPop(ctx, "q")
		if !ok || v != want {
			t.Errorf("expect %q, got %q", want, v)
		}
	}
	if _, ok, _ := l.RPop(ctx, "q"); ok {
		t.Errorf("list should be drained")
	}
}

func TestBadgerListSemantics(t *testing.T) {
	db := newFakeKV()
	ctx := context.Background()
	l := NewBadger(db)

	if err := l.LPush(ctx, "q", "c", "b", "a"); err != nil {
		t.Fatalf("lpush: %v", err)
	}
	if err := l.RPush(ctx, "q", "d", "e"); err != nil {
		t.Fatalf("rpush: %v", err)
	}
	if n, _ := l.Len(ctx, "q"); n != 5 {
		t.Fatalf("expect 5 entries, got %d", n)
	}

	// right side drains rpushed values first, then the lpush seed order
	for _, want := range []string{"e", "d", "c", "b", "a"} {
		v, ok, err := l.RPop(ctx, "q")
		if err != nil {
			t.Fatalf("rpop: %v", err)
		}
		if !ok || v != want {
			t.Errorf("expect %q, got %q", want, v)
		}
	}

	if _, ok, _ := l.RPop(ctx, "q"); ok {
		t.Errorf("list should be empty")
	}
	if n, _ := l.Len(ctx, "q"); n != 0 {
		t.Errorf("length should be 0 after drain, got %d", n)
	}
}
