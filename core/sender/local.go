package sender

import (
	"context"
	"sync"

	"github.com/octanelabs/bolt/pkg/logger"
)

// LocalManager keeps the pool in process memory: a counting semaphore sized
// to the pool guards a stack of free accounts. Acquire pops the head and
// release pushes the head, so the most recently returned wallet is leased
// next.
type LocalManager struct {
	all []Account

	sem  chan struct{}
	lock sync.Mutex
	free []Account

	logger  logger.Logger
	metrics Metrics
}

func NewLocal(accounts []Account, lgr logger.Logger, m Metrics) *LocalManager {
	if m == nil {
		m = noopMetrics{}
	}

	sem := make(chan struct{}, len(accounts))
	for range accounts {
		sem <- struct{}{}
	}

	mgr := &LocalManager{
		all:     append([]Account{}, accounts...),
		sem:     sem,
		free:    append([]Account{}, accounts...),
		logger:  logger.EnsureLogger(lgr),
		metrics: m,
	}
	m.SetWalletsAvailable(len(accounts))

	return mgr
}

func (s *LocalManager) GetAllWallets() []Account {
	return append([]Account{}, s.all...)
}

func (s *LocalManager) GetWallet(ctx context.Context) (Account, error) {
	select {
	case <-ctx.Done():
		return Account{}, ctx.Err()
	case <-s.sem:
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.free) == 0 {
		// semaphore and deque disagree; give the permit back
		s.sem <- struct{}{}
		return Account{}, ErrWalletPoolExhausted
	}

	wallet := s.free[0]
	s.free = s.free[1:]
	s.metrics.SetWalletsAvailable(len(s.free))

	return wallet, nil
}

func (s *LocalManager) PushWallet(account Account) error {
	s.lock.Lock()

	for _, a := range s.free {
		if a.Address == account.Address {
			s.lock.Unlock()
			s.logger.Warnf("wallet %s pushed while already free", account.Address)
			return nil
		}
	}

	s.free = append([]Account{account}, s.free...)
	s.metrics.SetWalletsAvailable(len(s.free))
	s.lock.Unlock()

	s.sem <- struct{}{}
	return nil
}
