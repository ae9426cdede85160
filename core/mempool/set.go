package mempool

import (
	"github.com/ethereum/go-ethereum/common"
)

// orderedSet is hash-indexed storage with a parallel admission-order index,
// so lookup by hash is O(1) and dumps come back in insertion order. Removal
// also drops the hash from the order index with a linear scan.
type orderedSet[T any] struct {
	byHash map[common.Hash]T
	order  []common.Hash
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{byHash: make(map[common.Hash]T)}
}

func (s *orderedSet[T]) len() int {
	return len(s.byHash)
}

func (s *orderedSet[T]) has(hash common.Hash) bool {
	_, ok := s.byHash[hash]
	return ok
}

// add appends the entry. Returns false when the hash is already present; the
// existing entry is kept.
func (s *orderedSet[T]) add(hash common.Hash, entry T) bool {
	if s.has(hash) {
		return false
	}
	s.byHash[hash] = entry
	s.order = append(s.order, hash)
	return true
}

// remove deletes the entry, returning false when it was absent.
func (s *orderedSet[T]) remove(hash common.Hash) bool {
	if !s.has(hash) {
		return false
	}
	delete(s.byHash, hash)

	for i, h := range s.order {
		if h == hash {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// dump returns the entries in admission order.
func (s *orderedSet[T]) dump() []T {
	out := make([]T, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, s.byHash[h])
	}
	return out
}

func (s *orderedSet[T]) clear() {
	s.byHash = make(map[common.Hash]T)
	s.order = nil
}
