package liststore

import (
	"context"
	"sync"
)

// MemoryList keeps lists in process memory. Only suitable for tests and
// single-worker development runs.
type MemoryList struct {
	lock  sync.Mutex
	lists map[string][]string
}

func NewMemory() *MemoryList {
	return &MemoryList{lists: make(map[string][]string)}
}

func (m *MemoryList) Len(ctx context.Context, name string) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return int64(len(m.lists[name])), nil
}

func (m *MemoryList) RPop(ctx context.Context, name string) (string, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	l := m.lists[name]
	if len(l) == 0 {
		return "", false, nil
	}

	v := l[len(l)-1]
	m.lists[name] = l[:len(l)-1]
	return v, true, nil
}

func (m *MemoryList) RPush(ctx context.Context, name string, values ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lists[name] = append(m.lists[name], values...)
	return nil
}

func (m *MemoryList) LPush(ctx context.Context, name string, values ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	l := m.lists[name]
	for _, v := range values {
		l = append([]string{v}, l...)
	}
	m.lists[name] = l
	return nil
}
