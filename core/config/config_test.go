package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bundler.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("cannot write config: %v", err)
	}
	return path
}

const validConfig = `
environment: development
eth_rpc_url: http://localhost:8545
entrypoint_address: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
chain_id: 137
executor_private_keys:
  - ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80
`

func TestLoadRawDefaults(t *testing.T) {
	raw, err := LoadRaw(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if raw.GasPriceBump != defaultGasPriceBump {
		t.Errorf("expect default bump %d, got %d", defaultGasPriceBump, raw.GasPriceBump)
	}
	if raw.GasPriceExpiry != defaultGasPriceExpiry {
		t.Errorf("expect default expiry %d, got %d", defaultGasPriceExpiry, raw.GasPriceExpiry)
	}
	if raw.WalletQueueMode != "local" {
		t.Errorf("expect local queue mode without redis, got %q", raw.WalletQueueMode)
	}
}

func TestLoadRawRedisSelectsSharedMode(t *testing.T) {
	raw, err := LoadRaw(writeConfig(t, validConfig+`
redis_queue_endpoint: redis://localhost:6379/0
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if raw.WalletQueueMode != "shared" {
		t.Errorf("redis endpoint must select the shared queue, got %q", raw.WalletQueueMode)
	}
}

func TestLoadRawEnvExpansion(t *testing.T) {
	t.Setenv("BOLT_TEST_RPC", "http://rpc.internal:8545")

	raw, err := LoadRaw(writeConfig(t, `
eth_rpc_url: ${BOLT_TEST_RPC}
entrypoint_address: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
chain_id: 1
executor_private_keys:
  - ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if raw.EthRpcUrl != "http://rpc.internal:8545" {
		t.Errorf("environment variable not expanded, got %q", raw.EthRpcUrl)
	}
}

func TestLoadRawRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing rpc url", `
entrypoint_address: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
chain_id: 1
executor_private_keys: [ab]
`},
		{"bump under 100", validConfig + "gas_price_bump: 90\n"},
		{"no executor keys", `
eth_rpc_url: http://localhost:8545
entrypoint_address: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
chain_id: 1
executor_private_keys: []
`},
		{"bad queue mode", validConfig + "wallet_queue_mode: weird\n"},
		{"bad entrypoint address", `
eth_rpc_url: http://localhost:8545
entrypoint_address: "not-an-address"
chain_id: 1
executor_private_keys: [ab]
`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadRaw(writeConfig(t, tc.body)); err == nil {
				t.Errorf("expect validation failure")
			}
		})
	}
}
