// Package chain adapts the PredictHub contract and its ERC-20 token to the
// domain read/write interfaces using go-ethereum.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds RPC connection parameters.
type ClientConfig struct {
	RPCURL  string
	ChainID int64
}

// Dial connects to the RPC endpoint and verifies it serves the expected
// chain. A ChainID of zero skips the check.
func Dial(ctx context.Context, cfg ClientConfig) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial: %w", err)
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID != 0 && id.Int64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain: rpc serves chain %s, want %d", id, cfg.ChainID)
	}
	return client, nil
}
