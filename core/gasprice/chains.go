package gasprice

import (
	"math/big"
)

// Chain IDs with special fee handling.
const (
	ChainPolygon         = 137
	ChainPolygonMumbai   = 80001
	ChainCelo            = 42220
	ChainCeloAlfajores   = 44787
	ChainDFK             = 53935
	ChainAvalanche       = 43114
	ChainArbitrum        = 42161
	ChainArbitrumNova    = 42170
	ChainArbitrumSepolia = 421614
)

const gwei = 1_000_000_000

var (
	polygonPriorityFloor = big.NewInt(31 * gwei)
	mumbaiPriorityFloor  = big.NewInt(1 * gwei)
	dfkFeeFloor          = big.NewInt(5 * gwei)
	avalancheFeeFloor    = big.NewInt(1_500_000_000) // 1.5 gwei
)

func isPolygon(chainID *big.Int) bool {
	return chainID.Int64() == ChainPolygon || chainID.Int64() == ChainPolygonMumbai
}

func isCelo(chainID *big.Int) bool {
	return chainID.Int64() == ChainCelo || chainID.Int64() == ChainCeloAlfajores
}

func isArbitrum(chainID *big.Int) bool {
	switch chainID.Int64() {
	case ChainArbitrum, ChainArbitrumNova, ChainArbitrumSepolia:
		return true
	}
	return false
}

// priorityFeeFloor is the minimum tip enforced after bumping.
func priorityFeeFloor(chainID *big.Int) *big.Int {
	switch chainID.Int64() {
	case ChainPolygon:
		return polygonPriorityFloor
	case ChainPolygonMumbai:
		return mumbaiPriorityFloor
	}
	return big.NewInt(0)
}

// GasStationURL returns the default Polygon gas-station endpoint for the
// chain, or "" when the chain has none.
func GasStationURL(chainID *big.Int) string {
	switch chainID.Int64() {
	case ChainPolygon:
		return "https://gasstation.polygon.technology/v2"
	case ChainPolygonMumbai:
		return "https://gasstation-testnet.polygon.technology/v2"
	}
	return ""
}
