// Package mempool tracks every user operation the bundler has admitted,
// through the four lifecycle sets: outstanding, available-outstanding,
// processing and submitted. Availability is derived by reconciling pending
// nonces against the EntryPoint's on-chain state.
package mempool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/octanelabs/bolt/core/chainio/entrypoint"
	"github.com/octanelabs/bolt/pkg/logger"
	"github.com/octanelabs/bolt/pkg/userop"
)

// Set names accepted by Clear and reported to metrics.
const (
	SetOutstanding = "outstanding"
	SetProcessing  = "processing"
	SetSubmitted   = "submitted"
	setAvailable   = "available_outstanding"
)

// ErrUnknownClearTarget rejects a Clear call that names no known set.
var ErrUnknownClearTarget = errors.New("unknown mempool clear target")

// NonceReader is the on-chain nonce oracle, batched. Implemented by
// entrypoint.Caller.
type NonceReader interface {
	GetNonces(ctx context.Context, entryPoint common.Address, pairs []userop.SenderNonceKey) ([]entrypoint.NonceResult, error)
}

// Metrics is the sink for set sizes and reconciliation outcomes. A nil sink
// disables it.
type Metrics interface {
	SetMempoolSize(set string, n int)
	IncReconciliation(status string)
}

type noopMetrics struct{}

func (noopMetrics) SetMempoolSize(set string, n int) {}
func (noopMetrics) IncReconciliation(status string)  {}

// outstandingEntry tags an admitted op with a monotonic admission ID used in
// logs. Dump order comes from the set's insertion order, not from this ID.
type outstandingEntry struct {
	info      userop.UserOperationInfo
	admission ulid.ULID
}

// Mempool owns its sets exclusively; all access goes through its methods.
// One mutex serializes every mutation so observers never see a partial
// transition.
type Mempool struct {
	logger  logger.Logger
	metrics Metrics

	lock        sync.Mutex
	outstanding *orderedSet[outstandingEntry]
	processing  *orderedSet[userop.UserOperationInfo]
	submitted   *orderedSet[userop.SubmittedUserOperation]

	// available is the derived bundleable view, replaced wholesale by
	// UpdateAvailableUserOperations and filtered by RemoveOutstanding.
	available []userop.UserOperationInfo
}

func New(lgr logger.Logger, m Metrics) *Mempool {
	if m == nil {
		m = noopMetrics{}
	}

	return &Mempool{
		logger:  logger.EnsureLogger(lgr),
		metrics: m,

		outstanding: newOrderedSet[outstandingEntry](),
		processing:  newOrderedSet[userop.UserOperationInfo](),
		submitted:   newOrderedSet[userop.SubmittedUserOperation](),
	}
}

// AddOutstanding admits an op. Callers are expected to have checked for
// duplicates via DumpOutstanding; a double-add is reported and ignored.
func (m *Mempool) AddOutstanding(info userop.UserOperationInfo) {
	m.lock.Lock()
	defer m.lock.Unlock()

	entry := outstandingEntry{info: info, admission: ulid.Make()}
	if !m.outstanding.add(info.UserOpHash, entry) {
		m.logger.Errorf("user operation %s added to outstanding twice", info.UserOpHash)
		return
	}
	m.logger.Debugf("admitted user operation %s (admission %s)", info.UserOpHash, entry.admission)
	m.metrics.SetMempoolSize(SetOutstanding, m.outstanding.len())
}

func (m *Mempool) AddProcessing(info userop.UserOperationInfo) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.processing.add(info.UserOpHash, info) {
		m.logger.Errorf("user operation %s added to processing twice", info.UserOpHash)
		return
	}
	m.metrics.SetMempoolSize(SetProcessing, m.processing.len())
}

func (m *Mempool) AddSubmitted(sub userop.SubmittedUserOperation) {
	m.lock.Lock()
	defer m.lock.Unlock()

	hash := sub.UserOperation.UserOpHash
	if !m.submitted.add(hash, sub) {
		m.logger.Errorf("user operation %s added to submitted twice", hash)
		return
	}
	m.metrics.SetMempoolSize(SetSubmitted, m.submitted.len())
}

// RemoveOutstanding drops the op from outstanding and, when present, from
// the derived available view as well.
func (m *Mempool) RemoveOutstanding(hash common.Hash) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.outstanding.remove(hash) {
		m.logger.Warnf("tried to remove %s from outstanding but it is not present", hash)
		return
	}

	for i, info := range m.available {
		if info.UserOpHash == hash {
			m.available = append(m.available[:i], m.available[i+1:]...)
			m.metrics.SetMempoolSize(setAvailable, len(m.available))
			break
		}
	}
	m.metrics.SetMempoolSize(SetOutstanding, m.outstanding.len())
}

func (m *Mempool) RemoveProcessing(hash common.Hash) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.processing.remove(hash) {
		m.logger.Warnf("tried to remove %s from processing but it is not present", hash)
		return
	}
	m.metrics.SetMempoolSize(SetProcessing, m.processing.len())
}

func (m *Mempool) RemoveSubmitted(hash common.Hash) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.submitted.remove(hash) {
		m.logger.Warnf("tried to remove %s from submitted but it is not present", hash)
		return
	}
	m.metrics.SetMempoolSize(SetSubmitted, m.submitted.len())
}

func (m *Mempool) DumpOutstanding() []userop.UserOperationInfo {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.dumpOutstandingLocked()
}

func (m *Mempool) dumpOutstandingLocked() []userop.UserOperationInfo {
	entries := m.outstanding.dump()
	infos := make([]userop.UserOperationInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}
	return infos
}

func (m *Mempool) DumpAvailableOutstanding() []userop.UserOperationInfo {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]userop.UserOperationInfo{}, m.available...)
}

func (m *Mempool) DumpProcessing() []userop.UserOperationInfo {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.processing.dump()
}

func (m *Mempool) DumpSubmitted() []userop.SubmittedUserOperation {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.submitted.dump()
}

// Clear drops every entry from the named set. Clearing outstanding leaves
// the available view alone; the next reconciliation rebuilds it.
func (m *Mempool) Clear(target string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch target {
	case SetOutstanding:
		m.outstanding.clear()
		m.metrics.SetMempoolSize(SetOutstanding, 0)
	case SetProcessing:
		m.processing.clear()
		m.metrics.SetMempoolSize(SetProcessing, 0)
	case SetSubmitted:
		m.submitted.clear()
		m.metrics.SetMempoolSize(SetSubmitted, 0)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownClearTarget, target)
	}
	return nil
}

// UpdateAvailableUserOperations recomputes the available view: an
// outstanding op is bundleable iff the EntryPoint's current nonce for its
// (sender, key) sequence equals the op's nonce value. A batch-level oracle
// failure aborts and keeps the previous view; per-pair failures only leave
// those ops unavailable.
func (m *Mempool) UpdateAvailableUserOperations(ctx context.Context, reader NonceReader, entryPoint common.Address) error {
	m.lock.Lock()
	snapshot := m.dumpOutstandingLocked()
	m.lock.Unlock()

	// one (sender, key) pair per distinct sequence, first-seen order
	seen := make(map[userop.SenderNonceKey]bool)
	pairs := make([]userop.SenderNonceKey, 0, len(snapshot))
	for _, info := range snapshot {
		seq, _ := info.MempoolOp.Derive().NonceSequence()
		if !seen[seq] {
			seen[seq] = true
			pairs = append(pairs, seq)
		}
	}

	if len(pairs) == 0 {
		m.lock.Lock()
		m.available = nil
		m.metrics.SetMempoolSize(setAvailable, 0)
		m.lock.Unlock()
		m.metrics.IncReconciliation("ok")
		return nil
	}

	results, err := reader.GetNonces(ctx, entryPoint, pairs)
	if err != nil {
		m.metrics.IncReconciliation("error")
		return fmt.Errorf("nonce reconciliation: %w", err)
	}

	// sequences whose oracle call succeeded, mapped to the current value
	current := make(map[userop.SenderNonceKey]uint64, len(results))
	for _, res := range results {
		if res.Err != nil {
			m.logger.Errorf("getNonce failed for sender %s key %s: %v",
				res.Account.Sender, res.Account.Key, res.Err)
			continue
		}
		_, value := userop.SplitNonce(res.Nonce)
		current[res.Account] = value
	}

	available := make([]userop.UserOperationInfo, 0, len(snapshot))
	for _, info := range snapshot {
		seq, value := info.MempoolOp.Derive().NonceSequence()
		if want, ok := current[seq]; ok && want == value {
			available = append(available, info)
		}
	}

	m.lock.Lock()
	m.available = available
	m.metrics.SetMempoolSize(setAvailable, len(available))
	m.lock.Unlock()

	m.metrics.IncReconciliation("ok")
	return nil
}
