package userop

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ReferencedContracts records the contracts an op touched during validation,
// with a hash over their combined code so a redeploy invalidates the op.
type ReferencedContracts struct {
	Addresses []common.Address
	CodeHash  common.Hash
}

// UserOperationInfo is a mempool entry: the op plus its identity and
// bookkeeping timestamps. Hashes are unique within the mempool.
type UserOperationInfo struct {
	MempoolOp           MempoolUserOperation
	UserOpHash          common.Hash
	EntryPoint          common.Address
	FirstSubmitted      time.Time
	LastReplaced        time.Time
	ReferencedContracts *ReferencedContracts
}

// TransactionInfo describes the bundle transaction an op was broadcast in.
type TransactionInfo struct {
	TxHash               common.Hash
	PreviousTxHashes     []common.Hash
	ExecutorAddress      common.Address
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	FirstSubmitted       time.Time
	LastReplaced         time.Time

	// TimesPotentiallyIncluded counts sightings in not-yet-final blocks.
	TimesPotentiallyIncluded int
}

// SubmittedUserOperation pairs a mempool entry with the transaction that
// carries it.
type SubmittedUserOperation struct {
	UserOperation UserOperationInfo
	Transaction   TransactionInfo
}
