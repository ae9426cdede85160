// Package liststore abstracts the redis-style list primitive the shared
// wallet queue is built on: llen, rpop, rpush, lpush. Backends exist for a
// real redis deployment (multi-host), a badger-backed list (single host) and
// an in-memory list (tests).
package liststore

import (
	"context"
)

// List is a named FIFO/deque primitive with redis list semantics: LPush adds
// at the head, RPush appends at the tail, RPop removes from the tail.
type List interface {
	Len(ctx context.Context, name string) (int64, error)

	// RPop returns (value, true) or ("", false) when the list is empty.
	RPop(ctx context.Context, name string) (string, bool, error)

	RPush(ctx context.Context, name string, values ...string) error
	LPush(ctx context.Context, name string, values ...string) error
}
