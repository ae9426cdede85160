// Package entrypoint reads EntryPoint contract state needed by the mempool.
// The only call the core consumes is getNonce(sender, key), batched through
// Multicall3 so one reconciliation costs a single eth_call.
package entrypoint

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/octanelabs/bolt/pkg/userop"
)

var (
	// Multicall3 is deployed at the same address on every chain we serve.
	Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

	entryPointABIJSON = `[{"inputs":[{"internalType":"address","name":"sender","type":"address"},{"internalType":"uint192","name":"key","type":"uint192"}],"name":"getNonce","outputs":[{"internalType":"uint256","name":"nonce","type":"uint256"}],"stateMutability":"view","type":"function"}]`

	multicall3ABIJSON = `[{"inputs":[{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"bool","name":"allowFailure","type":"bool"},{"internalType":"bytes","name":"callData","type":"bytes"}],"internalType":"struct Multicall3.Call3[]","name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"internalType":"bool","name":"success","type":"bool"},{"internalType":"bytes","name":"returnData","type":"bytes"}],"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

	abiOnce       sync.Once
	entryPointABI abi.ABI
	multicall3ABI abi.ABI
)

func buildABIs() {
	abiOnce.Do(func() {
		var err error
		entryPointABI, err = abi.JSON(strings.NewReader(entryPointABIJSON))
		if err != nil {
			panic(fmt.Errorf("invalid entrypoint ABI: %w", err))
		}
		multicall3ABI, err = abi.JSON(strings.NewReader(multicall3ABIJSON))
		if err != nil {
			panic(fmt.Errorf("invalid multicall3 ABI: %w", err))
		}
	})
}

// Call3 mirrors Multicall3.Call3.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result3 mirrors Multicall3.Result.
type Result3 struct {
	Success    bool
	ReturnData []byte
}

// NonceResult carries the outcome of one getNonce call. Nonce is the full
// 256-bit value the EntryPoint returns, (key << 64) | sequence.
type NonceResult struct {
	Account userop.SenderNonceKey
	Nonce   *big.Int
	Err     error
}

// ContractCaller is the slice of ethclient the batch reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Caller batches EntryPoint reads over Multicall3.
type Caller struct {
	client    ContractCaller
	multicall common.Address
}

func NewCaller(client ContractCaller) *Caller {
	buildABIs()
	return &Caller{client: client, multicall: Multicall3Address}
}

// NewCallerAt uses a non-canonical multicall deployment, for chains that
// predate the standard address.
func NewCallerAt(client ContractCaller, multicall common.Address) *Caller {
	buildABIs()
	return &Caller{client: client, multicall: multicall}
}

// GetNonces fetches the current EntryPoint nonce for every (sender, key)
// pair in one aggregate3 call. A transport or decode error fails the whole
// batch; per-pair revert is reported in the entry's Err.
func (c *Caller) GetNonces(ctx context.Context, entryPoint common.Address, pairs []userop.SenderNonceKey) ([]NonceResult, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	calls := make([]Call3, 0, len(pairs))
	for _, pair := range pairs {
		calldata, err := entryPointABI.Pack("getNonce", pair.Sender, pair.KeyBig())
		if err != nil {
			return nil, fmt.Errorf("pack getNonce(%s, %s): %w", pair.Sender, pair.Key, err)
		}
		calls = append(calls, Call3{
			Target:       entryPoint,
			AllowFailure: true,
			CallData:     calldata,
		})
	}

	input, err := multicall3ABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.multicall,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall eth_call: %w", err)
	}

	out, err := multicall3ABI.Unpack("aggregate3", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	results := *abi.ConvertType(out[0], new([]Result3)).(*[]Result3)
	if len(results) != len(pairs) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(results), len(pairs))
	}

	nonces := make([]NonceResult, len(pairs))
	for i, res := range results {
		nonces[i].Account = pairs[i]

		if !res.Success {
			nonces[i].Err = fmt.Errorf("getNonce(%s, %s) reverted", pairs[i].Sender, pairs[i].Key)
			continue
		}

		decoded, err := entryPointABI.Unpack("getNonce", res.ReturnData)
		if err != nil {
			nonces[i].Err = fmt.Errorf("decode getNonce return: %w", err)
			continue
		}
		nonces[i].Nonce = decoded[0].(*big.Int)
	}

	return nonces, nil
}
