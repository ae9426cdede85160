package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const boltNamespace = "bolt"

// BundlerMetrics instruments the mempool, the gas-price manager and the
// sender manager. It satisfies each subsystem's metrics interface.
type BundlerMetrics struct {
	mempoolSize        *prometheus.GaugeVec
	reconciliationsRun *prometheus.CounterVec
	walletsAvailable   prometheus.Gauge
	gasMaxFeePerGas    prometheus.Gauge
	gasMaxPriorityFee  prometheus.Gauge
	gasPriceRefreshes  *prometheus.CounterVec
}

func NewBundlerMetrics(reg prometheus.Registerer) *BundlerMetrics {
	return &BundlerMetrics{
		mempoolSize: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: boltNamespace,
				Name:      "mempool_size",
				Help:      "The number of user operations currently in each mempool set",
			}, []string{"set"}),

		reconciliationsRun: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: boltNamespace,
				Name:      "nonce_reconciliations_total",
				Help:      "The number of mempool nonce reconciliations, by outcome",
			}, []string{"status"}),

		walletsAvailable: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: boltNamespace,
				Name:      "executor_wallets_available",
				Help:      "The number of executor wallets currently free in the pool",
			}),

		gasMaxFeePerGas: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: boltNamespace,
				Name:      "gas_max_fee_per_gas_wei",
				Help:      "The most recently derived maxFeePerGas",
			}),

		gasMaxPriorityFee: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: boltNamespace,
				Name:      "gas_max_priority_fee_per_gas_wei",
				Help:      "The most recently derived maxPriorityFeePerGas",
			}),

		gasPriceRefreshes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: boltNamespace,
				Name:      "gas_price_refreshes_total",
				Help:      "The number of gas price refreshes, by outcome. If it isn't increasing, the refresher is stuck",
			}, []string{"status"}),
	}
}

func (m *BundlerMetrics) SetMempoolSize(set string, n int) {
	m.mempoolSize.WithLabelValues(set).Set(float64(n))
}

func (m *BundlerMetrics) IncReconciliation(status string) {
	m.reconciliationsRun.WithLabelValues(status).Inc()
}

func (m *BundlerMetrics) SetWalletsAvailable(n int) {
	m.walletsAvailable.Set(float64(n))
}

func (m *BundlerMetrics) SetGasPrice(maxFeeWei, maxPriorityWei float64) {
	m.gasMaxFeePerGas.Set(maxFeeWei)
	m.gasMaxPriorityFee.Set(maxPriorityWei)
}

func (m *BundlerMetrics) IncRefresh(status string) {
	m.gasPriceRefreshes.WithLabelValues(status).Inc()
}
