package gasprice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/octanelabs/bolt/pkg/logger"
)

var (
	// ErrBaseFeeUnavailable means the chain is legacy-only or the latest
	// block carried no base fee.
	ErrBaseFeeUnavailable = errors.New("base fee unavailable")

	// ErrGasPriceTooLow rejects a user-supplied fee under the window minimum.
	ErrGasPriceTooLow = errors.New("gas price too low")
)

const (
	mainSliceMs = 1_000

	// feeHistory fallback parameters for deriving a priority fee
	feeHistoryBlockCount = 10
	feeHistoryPercentile = 20
)

// GasPrice is an EIP-1559 fee pair. On legacy chains both fields carry the
// same scalar.
type GasPrice struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// BlockInfo is the slice of a block header fee derivation needs.
type BlockInfo struct {
	BaseFee  *big.Int
	GasUsed  uint64
	GasLimit uint64
}

// FeeEstimate is what the chain's fee estimator produced; any field may be
// nil when the node doesn't supply it.
type FeeEstimate struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// ChainReader is the RPC capability the manager consumes.
type ChainReader interface {
	LatestBlock(ctx context.Context) (*BlockInfo, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateFeesPerGas(ctx context.Context, legacy bool) (*FeeEstimate, error)

	// FeeHistory returns per-block reward rows for the given percentile.
	FeeHistory(ctx context.Context, blockCount uint64, percentile float64) ([][]*big.Int, error)
}

// Metrics is the sink for gas-price observability. A nil sink disables it.
type Metrics interface {
	SetGasPrice(maxFeeWei, maxPriorityWei float64)
	IncRefresh(status string)
}

type noopMetrics struct{}

func (noopMetrics) SetGasPrice(maxFeeWei, maxPriorityWei float64) {}
func (noopMetrics) IncRefresh(status string)                      {}

// Options carries the chain- and config-derived knobs.
type Options struct {
	ChainID            *big.Int
	ChainType          string // "hedera" scales validation minima by 1e9
	LegacyTransactions bool

	GasPriceBump    int64         // percent, >= 100
	GasPriceExpiry  int           // max fee-window entries
	RefreshInterval time.Duration // 0 disables caching

	// GasStationURL overrides the default Polygon endpoint; ignored on
	// chains without a station.
	GasStationURL string
}

// Manager tracks fee histories for one chain and derives the pair a bundle
// should be priced at.
type Manager struct {
	opts    Options
	reader  ChainReader
	station *GasStationClient
	logger  logger.Logger
	metrics Metrics

	lock            sync.Mutex
	baseFees        *history
	maxFees         *history
	maxPriorityFees *history

	// Arbitrum is non-nil on Arbitrum chains only.
	Arbitrum *ArbitrumManager

	scheduler gocron.Scheduler

	now func() time.Time
}

func New(reader ChainReader, opts Options, lgr logger.Logger, m Metrics) (*Manager, error) {
	if opts.GasPriceBump < 100 {
		return nil, fmt.Errorf("gasPriceBump must be >= 100, got %d", opts.GasPriceBump)
	}
	if opts.GasPriceExpiry < 1 {
		return nil, fmt.Errorf("gasPriceExpiry must be >= 1, got %d", opts.GasPriceExpiry)
	}
	if m == nil {
		m = noopMetrics{}
	}

	mgr := &Manager{
		opts:    opts,
		reader:  reader,
		logger:  logger.EnsureLogger(lgr),
		metrics: m,

		baseFees:        newHistory(opts.GasPriceExpiry, mainSliceMs, false),
		maxFees:         newHistory(opts.GasPriceExpiry, mainSliceMs, false),
		maxPriorityFees: newHistory(opts.GasPriceExpiry, mainSliceMs, false),

		now: time.Now,
	}

	if isArbitrum(opts.ChainID) {
		mgr.Arbitrum = newArbitrumManager(opts.GasPriceExpiry)
	}

	if isPolygon(opts.ChainID) {
		url := opts.GasStationURL
		if url == "" {
			url = GasStationURL(opts.ChainID)
		}
		station, err := NewGasStationClient(url, mgr.logger)
		if err != nil {
			return nil, err
		}
		mgr.station = station
	}

	return mgr, nil
}

// Start launches the periodic refresher when a refresh interval is
// configured. Stop shuts it down.
func (m *Manager) Start() error {
	if m.opts.RefreshInterval <= 0 {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(m.opts.RefreshInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), m.opts.RefreshInterval)
			defer cancel()

			if _, err := m.RefreshAndSave(ctx); err != nil {
				m.logger.Errorf("periodic gas price refresh failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	m.scheduler = scheduler
	scheduler.Start()
	return nil
}

func (m *Manager) Stop() error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Shutdown()
}

// GetGasPrice returns the fee pair a new bundle should use. With caching
// disabled it recomputes from the chain; otherwise it serves the stored
// window, refreshing once when the window is still empty.
func (m *Manager) GetGasPrice(ctx context.Context) (*GasPrice, error) {
	if m.opts.RefreshInterval <= 0 {
		return m.RefreshAndSave(ctx)
	}

	m.lock.Lock()
	maxFee := m.maxFees.latest()
	maxPriority := m.maxPriorityFees.latest()
	m.lock.Unlock()

	if maxFee == nil || maxPriority == nil {
		return m.RefreshAndSave(ctx)
	}

	return &GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority}, nil
}

// GetBaseFee returns the chain's current base fee.
func (m *Manager) GetBaseFee(ctx context.Context) (*big.Int, error) {
	if m.opts.LegacyTransactions {
		return nil, ErrBaseFeeUnavailable
	}

	if m.opts.RefreshInterval <= 0 {
		return m.refreshBaseFee(ctx)
	}

	m.lock.Lock()
	latest := m.baseFees.latest()
	m.lock.Unlock()

	if latest == nil {
		return m.refreshBaseFee(ctx)
	}
	return latest, nil
}

// GetMaxBaseFeePerGas aggregates the base-fee window.
func (m *Manager) GetMaxBaseFeePerGas(ctx context.Context) (*big.Int, error) {
	if m.opts.LegacyTransactions {
		return nil, ErrBaseFeeUnavailable
	}

	m.lock.Lock()
	max := m.baseFees.max()
	m.lock.Unlock()

	if max == nil {
		if _, err := m.refreshBaseFee(ctx); err != nil {
			return nil, err
		}
		m.lock.Lock()
		max = m.baseFees.max()
		m.lock.Unlock()
	}
	if max == nil {
		return nil, ErrBaseFeeUnavailable
	}
	return max, nil
}

func (m *Manager) GetMinMaxFeePerGas(ctx context.Context) (*big.Int, error) {
	min, _, err := m.windowMinima(ctx)
	return min, err
}

func (m *Manager) GetMinMaxPriorityFeePerGas(ctx context.Context) (*big.Int, error) {
	_, min, err := m.windowMinima(ctx)
	return min, err
}

// windowMinima returns the minimum maxFee and maxPriorityFee currently in
// the window, refreshing once when the window is empty.
func (m *Manager) windowMinima(ctx context.Context) (*big.Int, *big.Int, error) {
	m.lock.Lock()
	minMaxFee := m.maxFees.min()
	minMaxPriority := m.maxPriorityFees.min()
	m.lock.Unlock()

	if minMaxFee == nil || minMaxPriority == nil {
		if _, err := m.RefreshAndSave(ctx); err != nil {
			return nil, nil, err
		}
		m.lock.Lock()
		minMaxFee = m.maxFees.min()
		minMaxPriority = m.maxPriorityFees.min()
		m.lock.Unlock()
	}
	if minMaxFee == nil || minMaxPriority == nil {
		return nil, nil, fmt.Errorf("gas price window is empty after refresh")
	}

	return minMaxFee, minMaxPriority, nil
}

// ValidateGasPrice rejects a proposed fee pair below the window minima. On
// Hedera the stored minima are scaled down by 1e9 before comparison; the
// chain reports tinybar-denominated fees.
func (m *Manager) ValidateGasPrice(ctx context.Context, proposed *GasPrice) error {
	minMaxFee, minMaxPriority, err := m.windowMinima(ctx)
	if err != nil {
		return err
	}

	if m.opts.ChainType == "hedera" {
		scale := big.NewInt(gwei)
		minMaxFee = new(big.Int).Div(minMaxFee, scale)
		minMaxPriority = new(big.Int).Div(minMaxPriority, scale)
	}

	if proposed.MaxFeePerGas.Cmp(minMaxFee) < 0 {
		return fmt.Errorf("%w: maxFeePerGas %s is below minimum %s",
			ErrGasPriceTooLow, proposed.MaxFeePerGas, minMaxFee)
	}
	if proposed.MaxPriorityFeePerGas.Cmp(minMaxPriority) < 0 {
		return fmt.Errorf("%w: maxPriorityFeePerGas %s is below minimum %s",
			ErrGasPriceTooLow, proposed.MaxPriorityFeePerGas, minMaxPriority)
	}

	return nil
}

// RefreshAndSave recomputes the fee pair, stores it in the windows, and on
// EIP-1559 chains also records the latest base fee.
func (m *Manager) RefreshAndSave(ctx context.Context) (*GasPrice, error) {
	price, err := m.computeGasPrice(ctx)
	if err != nil {
		m.metrics.IncRefresh("error")
		return nil, err
	}

	nowMs := m.now().UnixMilli()
	m.lock.Lock()
	m.maxFees.save(price.MaxFeePerGas, nowMs)
	m.maxPriorityFees.save(price.MaxPriorityFeePerGas, nowMs)
	m.lock.Unlock()

	if !m.opts.LegacyTransactions {
		if _, err := m.refreshBaseFee(ctx); err != nil {
			m.logger.Warnf("base fee refresh failed: %v", err)
		}
	}

	m.metrics.IncRefresh("ok")
	maxFee, _ := new(big.Float).SetInt(price.MaxFeePerGas).Float64()
	maxPriority, _ := new(big.Float).SetInt(price.MaxPriorityFeePerGas).Float64()
	m.metrics.SetGasPrice(maxFee, maxPriority)

	return price, nil
}

func (m *Manager) refreshBaseFee(ctx context.Context) (*big.Int, error) {
	block, err := m.reader.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	if block.BaseFee == nil {
		return nil, ErrBaseFeeUnavailable
	}

	m.lock.Lock()
	m.baseFees.save(block.BaseFee, m.now().UnixMilli())
	m.lock.Unlock()

	return new(big.Int).Set(block.BaseFee), nil
}

// computeGasPrice walks the fee-source precedence: gas station, legacy
// estimator, then the EIP-1559 path with its derivation fallbacks.
func (m *Manager) computeGasPrice(ctx context.Context) (*GasPrice, error) {
	if m.station != nil {
		quote, err := m.station.FetchFast(ctx)
		if err == nil {
			return m.bump(quote), nil
		}
		m.logger.Errorf("gas station quote failed, falling back to node estimate: %v", err)
	}

	if m.opts.LegacyTransactions {
		scalar, err := m.legacyGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return m.bump(&GasPrice{
			MaxFeePerGas:         new(big.Int).Set(scalar),
			MaxPriorityFeePerGas: new(big.Int).Set(scalar),
		}), nil
	}

	return m.eip1559GasPrice(ctx)
}

func (m *Manager) legacyGasPrice(ctx context.Context) (*big.Int, error) {
	est, err := m.reader.EstimateFeesPerGas(ctx, true)
	if err == nil && est.GasPrice != nil {
		return est.GasPrice, nil
	}
	if err != nil {
		m.logger.Errorf("legacy fee estimate failed, falling back to eth_gasPrice: %v", err)
	}

	return m.reader.GasPrice(ctx)
}

func (m *Manager) eip1559GasPrice(ctx context.Context) (*GasPrice, error) {
	var maxFee, maxPriority *big.Int

	est, err := m.reader.EstimateFeesPerGas(ctx, false)
	if err != nil {
		m.logger.Errorf("eip-1559 fee estimate failed, deriving from chain state: %v", err)
	} else {
		maxFee = est.MaxFeePerGas
		maxPriority = est.MaxPriorityFeePerGas
	}

	if maxPriority == nil {
		maxPriority, err = m.fallbackPriorityFee(ctx, maxFee)
		if err != nil {
			return nil, fmt.Errorf("cannot derive maxPriorityFeePerGas: %w", err)
		}
	}

	if maxFee == nil {
		nextBase, err := m.nextBaseFee(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot derive maxFeePerGas: %w", err)
		}
		maxFee = new(big.Int).Add(nextBase, maxPriority)
	}

	if maxPriority.Sign() == 0 {
		maxPriority = new(big.Int).Div(maxFee, big.NewInt(200))
	}

	return m.bump(&GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority}), nil
}

// fallbackPriorityFee averages the 20th-percentile rewards of the last 10
// blocks, capped at maxFee when known.
func (m *Manager) fallbackPriorityFee(ctx context.Context, maxFee *big.Int) (*big.Int, error) {
	rewards, err := m.reader.FeeHistory(ctx, feeHistoryBlockCount, feeHistoryPercentile)
	if err != nil {
		return nil, err
	}

	sum := new(big.Int)
	count := int64(0)
	for _, row := range rewards {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		sum.Add(sum, row[0])
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("fee history returned no rewards")
	}

	mean := sum.Div(sum, big.NewInt(count))
	if maxFee != nil && mean.Cmp(maxFee) > 0 {
		mean = new(big.Int).Set(maxFee)
	}
	return mean, nil
}

// nextBaseFee predicts the next block's base fee from the latest header.
func (m *Manager) nextBaseFee(ctx context.Context) (*big.Int, error) {
	block, err := m.reader.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	if block.BaseFee == nil {
		return nil, ErrBaseFeeUnavailable
	}

	return NextBaseFee(block.BaseFee, block.GasUsed, block.GasLimit), nil
}

// NextBaseFee applies the EIP-1559 base-fee update rule with the protocol's
// 1/8 change denominator and a half-limit gas target.
func NextBaseFee(baseFee *big.Int, gasUsed, gasLimit uint64) *big.Int {
	target := gasLimit / 2

	switch {
	case gasUsed == target:
		return new(big.Int).Set(baseFee)

	case gasUsed > target:
		delta := new(big.Int).Mul(baseFee, new(big.Int).SetUint64(gasUsed-target))
		delta.Div(delta, new(big.Int).SetUint64(target))
		delta.Div(delta, big.NewInt(8))
		if delta.Cmp(big.NewInt(1)) < 0 {
			delta = big.NewInt(1)
		}
		return new(big.Int).Add(baseFee, delta)

	default:
		delta := new(big.Int).Mul(baseFee, new(big.Int).SetUint64(target-gasUsed))
		delta.Div(delta, new(big.Int).SetUint64(target))
		delta.Div(delta, big.NewInt(8))
		return new(big.Int).Sub(baseFee, delta)
	}
}

// bump scales both fees by the configured percentage and applies per-chain
// floors and overrides.
func (m *Manager) bump(p *GasPrice) *GasPrice {
	factor := big.NewInt(m.opts.GasPriceBump)
	hundred := big.NewInt(100)

	maxFee := new(big.Int).Mul(p.MaxFeePerGas, factor)
	maxFee.Div(maxFee, hundred)
	maxPriority := new(big.Int).Mul(p.MaxPriorityFeePerGas, factor)
	maxPriority.Div(maxPriority, hundred)

	if floor := priorityFeeFloor(m.opts.ChainID); maxPriority.Cmp(floor) < 0 {
		maxPriority = new(big.Int).Set(floor)
	}
	if maxFee.Cmp(maxPriority) < 0 {
		maxFee = new(big.Int).Set(maxPriority)
	}

	switch {
	case isCelo(m.opts.ChainID):
		// Celo wants both fields equal to the larger of the two
		higher := maxFee
		if maxPriority.Cmp(higher) > 0 {
			higher = maxPriority
		}
		maxFee = new(big.Int).Set(higher)
		maxPriority = new(big.Int).Set(higher)

	case m.opts.ChainID.Int64() == ChainDFK:
		if maxFee.Cmp(dfkFeeFloor) < 0 {
			maxFee = new(big.Int).Set(dfkFeeFloor)
		}
		if maxPriority.Cmp(dfkFeeFloor) < 0 {
			maxPriority = new(big.Int).Set(dfkFeeFloor)
		}

	case m.opts.ChainID.Int64() == ChainAvalanche:
		if maxFee.Cmp(avalancheFeeFloor) < 0 {
			maxFee = new(big.Int).Set(avalancheFeeFloor)
		}
		if maxPriority.Cmp(avalancheFeeFloor) < 0 {
			maxPriority = new(big.Int).Set(avalancheFeeFloor)
		}
	}

	return &GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority}
}
