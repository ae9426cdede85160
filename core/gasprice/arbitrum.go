package gasprice

import (
	"math/big"
	"sync"
)

const arbitrumSliceMs = 15_000

var (
	// maxUint128 is returned by the max accessors when the window is empty:
	// callers treat it as "no observed upper bound".
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// ArbitrumManager tracks the L1 and L2 base-fee components Arbitrum reports
// separately. Zero observations are discarded; the sequencer reports zero
// while it has no estimate.
type ArbitrumManager struct {
	lock       sync.Mutex
	l1BaseFees *history
	l2BaseFees *history
}

func newArbitrumManager(maxQueueSize int) *ArbitrumManager {
	return &ArbitrumManager{
		l1BaseFees: newHistory(maxQueueSize, arbitrumSliceMs, true),
		l2BaseFees: newHistory(maxQueueSize, arbitrumSliceMs, true),
	}
}

func (a *ArbitrumManager) SaveL1BaseFee(fee *big.Int, nowMs int64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.l1BaseFees.save(fee, nowMs)
}

func (a *ArbitrumManager) SaveL2BaseFee(fee *big.Int, nowMs int64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.l2BaseFees.save(fee, nowMs)
}

// GetMinL1BaseFee returns 1 when nothing has been observed yet.
func (a *ArbitrumManager) GetMinL1BaseFee() *big.Int {
	a.lock.Lock()
	defer a.lock.Unlock()

	if min := a.l1BaseFees.min(); min != nil {
		return min
	}
	return big.NewInt(1)
}

func (a *ArbitrumManager) GetMaxL1BaseFee() *big.Int {
	a.lock.Lock()
	defer a.lock.Unlock()

	if max := a.l1BaseFees.max(); max != nil {
		return max
	}
	return new(big.Int).Set(maxUint128)
}

func (a *ArbitrumManager) GetMaxL2BaseFee() *big.Int {
	a.lock.Lock()
	defer a.lock.Unlock()

	if max := a.l2BaseFees.max(); max != nil {
		return max
	}
	return new(big.Int).Set(maxUint128)
}
