package userop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserOperation is the ERC-4337 payload an account-abstraction client submits
// to the bundler. Field layout mirrors EntryPoint v0.6.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             []byte         `json:"initCode"`
	CallData             []byte         `json:"callData"`
	CallGasLimit         *big.Int       `json:"callGasLimit"`
	VerificationGasLimit *big.Int       `json:"verificationGasLimit"`
	PreVerificationGas   *big.Int       `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     []byte         `json:"paymasterAndData"`
	Signature            []byte         `json:"signature"`
}

// CompressedUserOperation wraps an inflated op together with the calldata blob
// an on-chain inflator expands into it.
type CompressedUserOperation struct {
	CompressedCalldata []byte         `json:"compressedCalldata"`
	Inflator           common.Address `json:"inflator"`
	Inflated           *UserOperation `json:"inflatedOp"`
}

// MempoolUserOperation holds either a plain or a compressed op. Exactly one of
// the two fields is set.
type MempoolUserOperation struct {
	Op         *UserOperation
	Compressed *CompressedUserOperation
}

func FromOp(op *UserOperation) MempoolUserOperation {
	return MempoolUserOperation{Op: op}
}

func FromCompressed(c *CompressedUserOperation) MempoolUserOperation {
	return MempoolUserOperation{Compressed: c}
}

// Derive projects the underlying UserOperation regardless of representation.
func (m MempoolUserOperation) Derive() *UserOperation {
	if m.Compressed != nil {
		return m.Compressed.Inflated
	}
	return m.Op
}

// nonceValueMask selects the low 64 bits of a 256-bit nonce.
var nonceValueMask = new(big.Int).SetUint64(^uint64(0))

// SplitNonce splits a 256-bit nonce into its 192-bit key and 64-bit value.
func SplitNonce(nonce *big.Int) (key *big.Int, value uint64) {
	key = new(big.Int).Rsh(nonce, 64)
	value = new(big.Int).And(nonce, nonceValueMask).Uint64()
	return key, value
}

// PackNonce is the inverse of SplitNonce: (key << 64) | value.
func PackNonce(key *big.Int, value uint64) *big.Int {
	n := new(big.Int).Lsh(key, 64)
	return n.Or(n, new(big.Int).SetUint64(value))
}

// SenderNonceKey identifies one per-sender nonce sequence. The 192-bit key is
// stored in canonical decimal so the struct stays map-comparable.
type SenderNonceKey struct {
	Sender common.Address
	Key    string
}

func NewSenderNonceKey(sender common.Address, key *big.Int) SenderNonceKey {
	return SenderNonceKey{Sender: sender, Key: key.String()}
}

func (k SenderNonceKey) KeyBig() *big.Int {
	n, _ := new(big.Int).SetString(k.Key, 10)
	return n
}

// NonceSequence returns the sequence identifier and the 64-bit value of the
// op's nonce.
func (op *UserOperation) NonceSequence() (SenderNonceKey, uint64) {
	key, value := SplitNonce(op.Nonce)
	return NewSenderNonceKey(op.Sender, key), value
}
