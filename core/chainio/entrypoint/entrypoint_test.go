package entrypoint

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/octanelabs/bolt/pkg/userop"
)

var testEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

// fakeContractCaller decodes the aggregate3 request and answers each
// getNonce sub-call from a map.
type fakeContractCaller struct {
	nonces  map[common.Address]*big.Int
	revert  map[common.Address]bool
	callErr error

	lastTo common.Address
}

func (f *fakeContractCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.lastTo = *msg.To

	args, err := multicall3ABI.Methods["aggregate3"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	calls := *abi.ConvertType(args[0], new([]Call3)).(*[]Call3)

	results := make([]Result3, len(calls))
	for i, call := range calls {
		sub, err := entryPointABI.Methods["getNonce"].Inputs.Unpack(call.CallData[4:])
		if err != nil {
			return nil, err
		}
		sender := sub[0].(common.Address)

		if f.revert[sender] {
			results[i] = Result3{Success: false}
			continue
		}

		ret, err := entryPointABI.Methods["getNonce"].Outputs.Pack(f.nonces[sender])
		if err != nil {
			return nil, err
		}
		results[i] = Result3{Success: true, ReturnData: ret}
	}

	return multicall3ABI.Methods["aggregate3"].Outputs.Pack(results)
}

func TestGetNoncesBatch(t *testing.T) {
	senderA := common.HexToAddress("0xA0")
	senderB := common.HexToAddress("0xB0")

	caller := NewCaller(&fakeContractCaller{
		nonces: map[common.Address]*big.Int{
			senderA: userop.PackNonce(big.NewInt(0), 5),
			senderB: userop.PackNonce(big.NewInt(2), 9),
		},
	})

	pairs := []userop.SenderNonceKey{
		userop.NewSenderNonceKey(senderA, big.NewInt(0)),
		userop.NewSenderNonceKey(senderB, big.NewInt(2)),
	}

	results, err := caller.GetNonces(context.Background(), testEntryPoint, pairs)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expect 2 results, got %d", len(results))
	}

	_, valueA := userop.SplitNonce(results[0].Nonce)
	if results[0].Err != nil || valueA != 5 {
		t.Errorf("expect sender A nonce value 5, got %d (%v)", valueA, results[0].Err)
	}
	_, valueB := userop.SplitNonce(results[1].Nonce)
	if results[1].Err != nil || valueB != 9 {
		t.Errorf("expect sender B nonce value 9, got %d (%v)", valueB, results[1].Err)
	}
}

func TestGetNoncesPerEntryRevert(t *testing.T) {
	senderA := common.HexToAddress("0xA0")
	senderB := common.HexToAddress("0xB0")

	caller := NewCaller(&fakeContractCaller{
		nonces: map[common.Address]*big.Int{senderA: big.NewInt(1)},
		revert: map[common.Address]bool{senderB: true},
	})

	pairs := []userop.SenderNonceKey{
		userop.NewSenderNonceKey(senderA, big.NewInt(0)),
		userop.NewSenderNonceKey(senderB, big.NewInt(0)),
	}

	results, err := caller.GetNonces(context.Background(), testEntryPoint, pairs)
	if err != nil {
		t.Fatalf("a reverting sub-call must not fail the batch: %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("healthy sub-call must succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Errorf("reverting sub-call must carry an error")
	}
}

func TestGetNoncesBatchError(t *testing.T) {
	caller := NewCaller(&fakeContractCaller{callErr: errors.New("rpc down")})

	pairs := []userop.SenderNonceKey{
		userop.NewSenderNonceKey(common.HexToAddress("0xA0"), big.NewInt(0)),
	}
	if _, err := caller.GetNonces(context.Background(), testEntryPoint, pairs); err == nil {
		t.Fatalf("transport failure must fail the batch")
	}
}

func TestGetNoncesEmptyPairs(t *testing.T) {
	fake := &fakeContractCaller{}
	caller := NewCaller(fake)

	results, err := caller.GetNonces(context.Background(), testEntryPoint, nil)
	if err != nil || results != nil {
		t.Fatalf("empty batch must be a no-op, got %v / %v", results, err)
	}
}

func TestCallerTargetsMulticall(t *testing.T) {
	fake := &fakeContractCaller{
		nonces: map[common.Address]*big.Int{
			common.HexToAddress("0xA0"): big.NewInt(0),
		},
	}
	caller := NewCaller(fake)

	pairs := []userop.SenderNonceKey{
		userop.NewSenderNonceKey(common.HexToAddress("0xA0"), big.NewInt(0)),
	}
	if _, err := caller.GetNonces(context.Background(), testEntryPoint, pairs); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if fake.lastTo != Multicall3Address {
		t.Errorf("batch must go through the multicall contract, went to %s", fake.lastTo)
	}
}
