package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/predicthub/predicthub/internal/domain"
)

// ContractCaller executes read-only contract calls. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	MarketAddress string
	TokenAddress  string
	// Concurrency bounds in-flight eth_calls during ReadBatch.
	Concurrency int
	// MaxMarkets caps how many markets ReadBatch will fetch.
	MaxMarkets uint64
}

// Reader implements domain.MarketReader over eth_call.
type Reader struct {
	caller      ContractCaller
	market      common.Address
	token       common.Address
	concurrency int
	maxMarkets  uint64
	logger      *slog.Logger
}

// NewReader validates the contract addresses and returns a Reader.
func NewReader(caller ContractCaller, cfg ReaderConfig, logger *slog.Logger) (*Reader, error) {
	market, err := parseAddress(cfg.MarketAddress)
	if err != nil {
		return nil, fmt.Errorf("chain: market address: %w", err)
	}
	token, err := parseAddress(cfg.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("chain: token address: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.MaxMarkets == 0 {
		cfg.MaxMarkets = 1000
	}
	return &Reader{
		caller:      caller,
		market:      market,
		token:       token,
		concurrency: cfg.Concurrency,
		maxMarkets:  cfg.MaxMarkets,
		logger:      logger.With(slog.String("component", "chain_reader")),
	}, nil
}

// MarketCount returns getMarketCount().
func (r *Reader) MarketCount(ctx context.Context) (uint64, error) {
	out, err := r.call(ctx, r.market, marketABI, methodMarketCount)
	if err != nil {
		return 0, err
	}
	n, err := decodeUint(marketABI, methodMarketCount, out)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("chain: market count %s overflows uint64", n)
	}
	return n.Uint64(), nil
}

// ReadBatch issues markets(i), getTotalWeightedYes(i) and
// getTotalWeightedNo(i) for every index below count and returns the results
// flattened in that order. A failing call becomes an Absent entry; only
// context cancellation fails the batch. count is capped at MaxMarkets.
func (r *Reader) ReadBatch(ctx context.Context, count uint64) ([]domain.ReadResult, error) {
	if count > r.maxMarkets {
		r.logger.WarnContext(ctx, "market count exceeds read cap; trailing markets omitted",
			slog.Uint64("count", count),
			slog.Uint64("max_markets", r.maxMarkets),
		)
		count = r.maxMarkets
	}

	results := make([]domain.ReadResult, 3*count)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := uint64(0); i < count; i++ {
		id := new(big.Int).SetUint64(i)
		base := 3 * i
		g.Go(func() error {
			results[base] = r.readMarket(ctx, id)
			return nil
		})
		g.Go(func() error {
			results[base+1] = r.readUint(ctx, methodWeightedYes, id)
			return nil
		})
		g.Go(func() error {
			results[base+2] = r.readUint(ctx, methodWeightedNo, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chain: read batch: %w", err)
	}
	return results, nil
}

// Allowance returns token.allowance(owner, market).
func (r *Reader) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, r.token, tokenABI, methodAllowance, addr, r.market)
	if err != nil {
		return nil, err
	}
	return decodeUint(tokenABI, methodAllowance, out)
}

// UserBet returns getUserBet(marketID, account).
func (r *Reader) UserBet(ctx context.Context, marketID uint64, account string) (domain.UserBet, error) {
	addr, err := parseAddress(account)
	if err != nil {
		return domain.UserBet{}, err
	}
	out, err := r.call(ctx, r.market, marketABI, methodUserBet, new(big.Int).SetUint64(marketID), addr)
	if err != nil {
		return domain.UserBet{}, err
	}
	return decodeUserBet(out)
}

func (r *Reader) readMarket(ctx context.Context, id *big.Int) domain.ReadResult {
	out, err := r.call(ctx, r.market, marketABI, methodMarkets, id)
	if err == nil {
		var m domain.RawMarket
		if m, err = decodeMarket(out); err == nil {
			return domain.Present(m)
		}
	}
	r.logger.DebugContext(ctx, "market read failed",
		slog.String("market_id", id.String()),
		slog.String("error", err.Error()),
	)
	return domain.Absent(err)
}

func (r *Reader) readUint(ctx context.Context, method string, id *big.Int) domain.ReadResult {
	out, err := r.call(ctx, r.market, marketABI, method, id)
	if err == nil {
		var n *big.Int
		if n, err = decodeUint(marketABI, method, out); err == nil {
			return domain.Present(n)
		}
	}
	r.logger.DebugContext(ctx, "weighted total read failed",
		slog.String("method", method),
		slog.String("market_id", id.String()),
		slog.String("error", err.Error()),
	)
	return domain.Absent(err)
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.MarketReader = (*Reader)(nil)
