package liststore

import (
	"context"
	"fmt"
	"sync"

	"github.com/octanelabs/bolt/storage"
)

// counterBase leaves room for LPush to grow the list leftwards without the
// index ever going negative.
const counterBase = uint64(1) << 32

// BadgerList is a list primitive on the embedded KV store. It serves
// single-host deployments where several bundler workers share one database
// but no redis is available. Entries live under l:<name>:i:<index> with head
// and tail counters bounding the occupied index range: head points at the
// leftmost element, tail one past the rightmost.
type BadgerList struct {
	db   storage.Storage
	lock sync.Mutex
}

func NewBadger(db storage.Storage) *BadgerList {
	return &BadgerList{db: db}
}

func (b *BadgerList) itemKey(name string, index uint64) []byte {
	return []byte(fmt.Sprintf("l:%s:i:%020d", name, index))
}

func (b *BadgerList) bounds(name string) (head, tail uint64, err error) {
	head, err = b.db.GetCounter([]byte("l:"+name+":head"), counterBase)
	if err != nil {
		return 0, 0, err
	}
	tail, err = b.db.GetCounter([]byte("l:"+name+":tail"), counterBase)
	if err != nil {
		return 0, 0, err
	}
	return head, tail, nil
}

func (b *BadgerList) Len(ctx context.Context, name string) (int64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	head, tail, err := b.bounds(name)
	if err != nil {
		return 0, err
	}
	return int64(tail - head), nil
}

func (b *BadgerList) RPop(ctx context.Context, name string) (string, bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	head, tail, err := b.bounds(name)
	if err != nil {
		return "", false, err
	}
	if head == tail {
		return "", false, nil
	}

	key := b.itemKey(name, tail-1)
	value, err := b.db.GetKey(key)
	if err != nil {
		return "", false, err
	}
	if err := b.db.Delete(key); err != nil {
		return "", false, err
	}
	if err := b.db.SetCounter([]byte("l:"+name+":tail"), tail-1); err != nil {
		return "", false, err
	}

	return string(value), true, nil
}

func (b *BadgerList) RPush(ctx context.Context, name string, values ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	_, tail, err := b.bounds(name)
	if err != nil {
		return err
	}

	for _, v := range values {
		if err := b.db.Set(b.itemKey(name, tail), []byte(v)); err != nil {
			return err
		}
		tail++
	}
	return b.db.SetCounter([]byte("l:"+name+":tail"), tail)
}

func (b *BadgerList) LPush(ctx context.Context, name string, values ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	head, _, err := b.bounds(name)
	if err != nil {
		return err
	}

	for _, v := range values {
		head--
		if err := b.db.Set(b.itemKey(name, head), []byte(v)); err != nil {
			return err
		}
	}
	return b.db.SetCounter([]byte("l:"+name+":head"), head)
}
