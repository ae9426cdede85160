package gasprice

import (
	"math/big"
)

type entry struct {
	at  int64 // unix ms
	val *big.Int
}

// history is a bounded sliding window of fee observations. At most one entry
// exists per slice window; a lower value observed inside the current slice
// overwrites the tail so the window tracks the per-slice minimum. Timestamps
// are monotonically non-decreasing.
type history struct {
	maxSize  int
	sliceMs  int64
	skipZero bool

	entries []entry
}

func newHistory(maxSize int, sliceMs int64, skipZero bool) *history {
	return &history{
		maxSize: maxSize,
		sliceMs: sliceMs,

		skipZero: skipZero,
	}
}

// save applies the insertion rule for a new observation at nowMs.
func (h *history) save(val *big.Int, nowMs int64) {
	if val == nil {
		return
	}
	if h.skipZero && val.Sign() == 0 {
		return
	}

	if len(h.entries) == 0 || nowMs-h.entries[len(h.entries)-1].at >= h.sliceMs {
		if len(h.entries) == h.maxSize {
			h.entries = h.entries[1:]
		}
		h.entries = append(h.entries, entry{at: nowMs, val: new(big.Int).Set(val)})
		return
	}

	last := &h.entries[len(h.entries)-1]
	if val.Cmp(last.val) < 0 {
		last.val = new(big.Int).Set(val)
		last.at = nowMs
	}
}

func (h *history) len() int {
	return len(h.entries)
}

// latest returns the most recent value, or nil when the window is empty.
func (h *history) latest() *big.Int {
	if len(h.entries) == 0 {
		return nil
	}
	return new(big.Int).Set(h.entries[len(h.entries)-1].val)
}

func (h *history) min() *big.Int {
	var m *big.Int
	for _, e := range h.entries {
		if m == nil || e.val.Cmp(m) < 0 {
			m = e.val
		}
	}
	if m == nil {
		return nil
	}
	return new(big.Int).Set(m)
}

func (h *history) max() *big.Int {
	var m *big.Int
	for _, e := range h.entries {
		if m == nil || e.val.Cmp(m) > 0 {
			m = e.val
		}
	}
	if m == nil {
		return nil
	}
	return new(big.Int).Set(m)
}
