package sender

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/octanelabs/bolt/pkg/liststore"
	"github.com/octanelabs/bolt/pkg/logger"
)

const defaultPollInterval = 100 * time.Millisecond

// SharedManager coordinates the pool across bundler processes through a
// shared list. The list holds the addresses of currently-free wallets; each
// process resolves a popped address back to its locally configured key.
type SharedManager struct {
	all       []Account
	byAddress map[common.Address]Account

	list      liststore.List
	queueName string
	poll      time.Duration

	logger  logger.Logger
	metrics Metrics
}

// NewShared seeds the queue with every wallet address when it is empty, so
// the first process to boot populates it and later ones join in.
func NewShared(ctx context.Context, accounts []Account, list liststore.List, lgr logger.Logger, m Metrics) (*SharedManager, error) {
	if m == nil {
		m = noopMetrics{}
	}

	mgr := &SharedManager{
		all:       append([]Account{}, accounts...),
		byAddress: make(map[common.Address]Account, len(accounts)),
		list:      list,
		queueName: QueueName,
		poll:      defaultPollInterval,
		logger:    logger.EnsureLogger(lgr),
		metrics:   m,
	}
	for _, a := range accounts {
		mgr.byAddress[a.Address] = a
	}

	n, err := list.Len(ctx, mgr.queueName)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		addresses := make([]string, len(accounts))
		for i, a := range accounts {
			addresses[i] = a.Address.Hex()
		}
		if err := list.LPush(ctx, mgr.queueName, addresses...); err != nil {
			return nil, err
		}
		n = int64(len(addresses))
	}
	m.SetWalletsAvailable(int(n))

	return mgr, nil
}

func (s *SharedManager) GetAllWallets() []Account {
	return append([]Account{}, s.all...)
}

// GetWallet polls the tail of the shared list until a wallet belonging to
// this process's configuration comes off it.
func (s *SharedManager) GetWallet(ctx context.Context) (Account, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		addr, ok, err := s.list.RPop(ctx, s.queueName)
		if err != nil {
			s.logger.Errorf("wallet queue pop failed: %v", err)
		} else if ok {
			account, known := s.byAddress[common.HexToAddress(addr)]
			if !known {
				// queue entry from a different configuration; drop it
				s.logger.Errorf("popped unknown wallet address %s, discarding", addr)
			} else {
				s.updateAvailableGauge(ctx)
				return account, nil
			}
		}

		select {
		case <-ctx.Done():
			return Account{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PushWallet enqueues at the head while GetWallet pops the tail, so wallets
// come back out FIFO across every process on the queue.
func (s *SharedManager) PushWallet(account Account) error {
	ctx := context.Background()
	if err := s.list.LPush(ctx, s.queueName, account.Address.Hex()); err != nil {
		return err
	}

	s.updateAvailableGauge(ctx)
	return nil
}

func (s *SharedManager) updateAvailableGauge(ctx context.Context) {
	if n, err := s.list.Len(ctx, s.queueName); err == nil {
		s.metrics.SetWalletsAvailable(int(n))
	}
}
