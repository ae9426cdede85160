package bundler

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/octanelabs/bolt/core/gasprice"
)

// chainReader adapts ethclient to the gas-price manager's ChainReader.
type chainReader struct {
	client *ethclient.Client
}

func newChainReader(client *ethclient.Client) *chainReader {
	return &chainReader{client: client}
}

func (r *chainReader) LatestBlock(ctx context.Context) (*gasprice.BlockInfo, error) {
	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &gasprice.BlockInfo{
		BaseFee:  header.BaseFee,
		GasUsed:  header.GasUsed,
		GasLimit: header.GasLimit,
	}, nil
}

func (r *chainReader) GasPrice(ctx context.Context) (*big.Int, error) {
	return r.client.SuggestGasPrice(ctx)
}

// EstimateFeesPerGas mirrors what a wallet RPC would return. On 1559 chains
// the max fee gets 2x base-fee headroom over the suggested tip, so the
// bundle stays includable across base-fee swings.
func (r *chainReader) EstimateFeesPerGas(ctx context.Context, legacy bool) (*gasprice.FeeEstimate, error) {
	if legacy {
		price, err := r.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return &gasprice.FeeEstimate{GasPrice: price}, nil
	}

	tipCap, err := r.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, err
	}

	estimate := &gasprice.FeeEstimate{MaxPriorityFeePerGas: tipCap}

	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	if header.BaseFee != nil {
		estimate.MaxFeePerGas = new(big.Int).Add(
			new(big.Int).Mul(header.BaseFee, big.NewInt(2)),
			tipCap,
		)
	}

	return estimate, nil
}

func (r *chainReader) FeeHistory(ctx context.Context, blockCount uint64, percentile float64) ([][]*big.Int, error) {
	history, err := r.client.FeeHistory(ctx, blockCount, nil, []float64{percentile})
	if err != nil {
		return nil, err
	}
	return history.Reward, nil
}
