package domain

import (
	"context"
	"math/big"
)

// TxHandle identifies a submitted transaction. Confirmation tracking is left
// to the chain client; the handle only carries what was sent.
type TxHandle struct {
	Hash     string  `json:"hash"`
	Method   string  `json:"method"`
	From     string  `json:"from"`
	MarketID *uint64 `json:"market_id,omitempty"`
}

// MarketReader reads prediction-market state from the chain.
type MarketReader interface {
	MarketCount(ctx context.Context) (uint64, error)
	// ReadBatch returns exactly 3*count results ordered as
	// (market tuple, weightedYes, weightedNo) per market index.
	ReadBatch(ctx context.Context, count uint64) ([]ReadResult, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	UserBet(ctx context.Context, marketID uint64, account string) (UserBet, error)
}

// MarketWriter submits prediction-market transactions from the operator
// wallet.
type MarketWriter interface {
	Address() string
	Approve(ctx context.Context, amount *big.Int) (TxHandle, error)
	PlaceBet(ctx context.Context, marketID uint64, side Side, amount *big.Int) (TxHandle, error)
	ResolveMarket(ctx context.Context, marketID uint64, side Side) (TxHandle, error)
	Withdraw(ctx context.Context, marketID uint64) (TxHandle, error)
}
