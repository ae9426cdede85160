package gasprice

import (
	"math/big"
	"testing"
)

func TestHistorySliceUpdate(t *testing.T) {
	// window size 3, slice 1000ms: (10, t=0), (8, t=500), (9, t=1500)
	h := newHistory(3, 1000, false)

	h.save(big.NewInt(10), 0)
	h.save(big.NewInt(8), 500)
	h.save(big.NewInt(9), 1500)

	if h.len() != 2 {
		t.Fatalf("expect 2 entries, got %d", h.len())
	}
	if h.entries[0].val.Int64() != 8 || h.entries[0].at != 500 {
		t.Errorf("expect (8, 500), got (%s, %d)", h.entries[0].val, h.entries[0].at)
	}
	if h.entries[1].val.Int64() != 9 || h.entries[1].at != 1500 {
		t.Errorf("expect (9, 1500), got (%s, %d)", h.entries[1].val, h.entries[1].at)
	}
}

func TestHistoryDiscardsHigherWithinSlice(t *testing.T) {
	h := newHistory(3, 1000, false)

	h.save(big.NewInt(10), 0)
	h.save(big.NewInt(12), 500)

	if h.len() != 1 {
		t.Fatalf("expect 1 entry, got %d", h.len())
	}
	if h.entries[0].val.Int64() != 10 || h.entries[0].at != 0 {
		t.Errorf("higher value within the slice must be discarded")
	}
}

func TestHistoryEviction(t *testing.T) {
	h := newHistory(3, 1000, false)

	for i := int64(0); i < 5; i++ {
		h.save(big.NewInt(i+1), i*1000)
	}

	if h.len() != 3 {
		t.Fatalf("expect bounded window of 3, got %d", h.len())
	}
	if h.entries[0].val.Int64() != 3 {
		t.Errorf("oldest entries should be evicted, head is %s", h.entries[0].val)
	}

	// timestamps strictly non-decreasing
	for i := 1; i < h.len(); i++ {
		if h.entries[i].at < h.entries[i-1].at {
			t.Errorf("timestamps must not decrease: %d then %d", h.entries[i-1].at, h.entries[i].at)
		}
	}
}

func TestHistoryMinMaxLatest(t *testing.T) {
	h := newHistory(5, 1000, false)

	if h.min() != nil || h.max() != nil || h.latest() != nil {
		t.Fatalf("empty history aggregates must be nil")
	}

	h.save(big.NewInt(7), 0)
	h.save(big.NewInt(3), 1000)
	h.save(big.NewInt(5), 2000)

	if h.min().Int64() != 3 {
		t.Errorf("expect min 3, got %s", h.min())
	}
	if h.max().Int64() != 7 {
		t.Errorf("expect max 7, got %s", h.max())
	}
	if h.latest().Int64() != 5 {
		t.Errorf("expect latest 5, got %s", h.latest())
	}
}

func TestHistorySkipZero(t *testing.T) {
	h := newHistory(3, 1000, true)

	h.save(big.NewInt(0), 0)
	if h.len() != 0 {
		t.Errorf("zero must be ignored when skipZero is set")
	}

	main := newHistory(3, 1000, false)
	main.save(big.NewInt(0), 0)
	if main.len() != 1 {
		t.Errorf("main queues accept zero")
	}
}
