// Package sender arbitrates access to the bundler's signing accounts. Every
// in-flight bundle holds exactly one wallet; the managers here hand wallets
// out and take them back without ever double-leasing one.
package sender

import (
	"context"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrWalletPoolExhausted fires on the unreachable release-before-acquire
// path: the semaphore said a wallet was free but the pool was empty.
var ErrWalletPoolExhausted = errors.New("wallet pool exhausted")

// QueueName is the well-known shared-queue key every bundler process
// coordinates on.
const QueueName = "sender-manager"

// Account is one signing executor.
type Account struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
}

// Manager leases wallets from a bounded pool. GetWallet blocks until a
// wallet is free or the context is done.
type Manager interface {
	GetAllWallets() []Account
	GetWallet(ctx context.Context) (Account, error)
	PushWallet(account Account) error
}

// Metrics is the availability gauge sink. A nil sink disables it.
type Metrics interface {
	SetWalletsAvailable(n int)
}

type noopMetrics struct{}

func (noopMetrics) SetWalletsAvailable(n int) {}

// NewAccounts derives executor accounts from hex private keys, truncating to
// maxExecutors when it is positive.
func NewAccounts(privateKeys []string, maxExecutors int) ([]Account, error) {
	if maxExecutors > 0 && len(privateKeys) > maxExecutors {
		privateKeys = privateKeys[:maxExecutors]
	}

	accounts := make([]Account, 0, len(privateKeys))
	for _, hexKey := range privateKeys {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, Account{
			Address:    crypto.PubkeyToAddress(key.PublicKey),
			PrivateKey: key,
		})
	}

	return accounts, nil
}
