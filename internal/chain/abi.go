package chain

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/predicthub/predicthub/internal/domain"
)

//go:embed abi/PredictionMarket.json
var marketABIJSON string

//go:embed abi/ERC20.json
var tokenABIJSON string

var (
	marketABI = mustParseABI("PredictionMarket", marketABIJSON)
	tokenABI  = mustParseABI("ERC20", tokenABIJSON)
)

// Contract method names.
const (
	methodMarketCount   = "getMarketCount"
	methodMarkets       = "markets"
	methodWeightedYes   = "getTotalWeightedYes"
	methodWeightedNo    = "getTotalWeightedNo"
	methodUserBet       = "getUserBet"
	methodPlaceBet      = "placeBet"
	methodResolveMarket = "resolveMarket"
	methodWithdraw      = "withdraw"
	methodAllowance     = "allowance"
	methodApprove       = "approve"
)

func mustParseABI(name, js string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(fmt.Sprintf("chain: parse %s abi: %v", name, err))
	}
	return parsed
}

// decodeUint unpacks a single uint256 return value.
func decodeUint(parsed abi.ABI, method string, out []byte) (*big.Int, error) {
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("chain: unpack %s: got %d values, want 1", method, len(vals))
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unpack %s: unexpected type %T", method, vals[0])
	}
	return n, nil
}

// decodeMarket unpacks the markets(i) tuple.
func decodeMarket(out []byte) (domain.RawMarket, error) {
	vals, err := marketABI.Unpack(methodMarkets, out)
	if err != nil {
		return domain.RawMarket{}, fmt.Errorf("chain: unpack markets: %w", err)
	}
	if len(vals) != 8 {
		return domain.RawMarket{}, fmt.Errorf("chain: unpack markets: got %d values, want 8", len(vals))
	}

	var (
		m    domain.RawMarket
		ok   = true
		take = func(v any) *big.Int {
			n, isInt := v.(*big.Int)
			ok = ok && isInt
			return n
		}
	)
	m.ID = take(vals[0])
	m.Question, _ = vals[1].(string)
	arb, isAddr := vals[2].(common.Address)
	m.Arbitrator = arb.Hex()
	m.CreatedAt = take(vals[3])
	m.EndTime = take(vals[4])
	m.YesBets = take(vals[5])
	m.NoBets = take(vals[6])
	outcome, isU8 := vals[7].(uint8)
	m.Outcome = outcome

	if !ok || !isAddr || !isU8 {
		return domain.RawMarket{}, fmt.Errorf("chain: unpack markets: unexpected tuple types")
	}
	return m, nil
}

// decodeUserBet unpacks getUserBet(id, account).
func decodeUserBet(out []byte) (domain.UserBet, error) {
	vals, err := marketABI.Unpack(methodUserBet, out)
	if err != nil {
		return domain.UserBet{}, fmt.Errorf("chain: unpack getUserBet: %w", err)
	}
	if len(vals) != 2 {
		return domain.UserBet{}, fmt.Errorf("chain: unpack getUserBet: got %d values, want 2", len(vals))
	}
	yes, ok1 := vals[0].(*big.Int)
	no, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return domain.UserBet{}, fmt.Errorf("chain: unpack getUserBet: unexpected types")
	}
	return domain.UserBet{YesAmount: yes, NoAmount: no}, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("chain: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
