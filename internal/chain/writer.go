package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/predicthub/predicthub/internal/crypto"
	"github.com/predicthub/predicthub/internal/domain"
)

// TxBackend is the subset of *ethclient.Client needed to build and send
// transactions.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Writer implements domain.MarketWriter by signing EIP-1559 transactions
// with the operator key.
type Writer struct {
	backend TxBackend
	signer  *crypto.TxSigner
	market  common.Address
	token   common.Address
	logger  *slog.Logger
}

// NewWriter returns a Writer that submits to the given contracts.
func NewWriter(backend TxBackend, signer *crypto.TxSigner, marketAddr, tokenAddr string, logger *slog.Logger) (*Writer, error) {
	market, err := parseAddress(marketAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: market address: %w", err)
	}
	token, err := parseAddress(tokenAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: token address: %w", err)
	}
	return &Writer{
		backend: backend,
		signer:  signer,
		market:  market,
		token:   token,
		logger:  logger.With(slog.String("component", "chain_writer")),
	}, nil
}

// Address returns the operator wallet address.
func (w *Writer) Address() string { return w.signer.Address().Hex() }

// Approve grants the market contract an allowance of amount on the token.
func (w *Writer) Approve(ctx context.Context, amount *big.Int) (domain.TxHandle, error) {
	data, err := tokenABI.Pack(methodApprove, w.market, amount)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: pack approve: %w", err)
	}
	return w.send(ctx, w.token, methodApprove, data, nil)
}

// PlaceBet stakes amount on side of marketID.
func (w *Writer) PlaceBet(ctx context.Context, marketID uint64, side domain.Side, amount *big.Int) (domain.TxHandle, error) {
	data, err := marketABI.Pack(methodPlaceBet, new(big.Int).SetUint64(marketID), bool(side), amount)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: pack placeBet: %w", err)
	}
	return w.send(ctx, w.market, methodPlaceBet, data, &marketID)
}

// ResolveMarket settles marketID to side. Only the arbitrator may call it.
func (w *Writer) ResolveMarket(ctx context.Context, marketID uint64, side domain.Side) (domain.TxHandle, error) {
	data, err := marketABI.Pack(methodResolveMarket, new(big.Int).SetUint64(marketID), bool(side))
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: pack resolveMarket: %w", err)
	}
	return w.send(ctx, w.market, methodResolveMarket, data, &marketID)
}

// Withdraw claims winnings from a resolved market.
func (w *Writer) Withdraw(ctx context.Context, marketID uint64) (domain.TxHandle, error) {
	data, err := marketABI.Pack(methodWithdraw, new(big.Int).SetUint64(marketID))
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: pack withdraw: %w", err)
	}
	return w.send(ctx, w.market, methodWithdraw, data, &marketID)
}

func (w *Writer) send(ctx context.Context, to common.Address, method string, data []byte, marketID *uint64) (domain.TxHandle, error) {
	from := w.signer.Address()

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: nonce: %w", method, err)
	}
	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: gas tip: %w", method, err)
	}
	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: latest header: %w", method, err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      from,
		To:        &to,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Data:      data,
	})
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: estimate gas: %w", method, err)
	}
	gas += gas / 5

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	})
	signed, err := w.signer.Sign(tx)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: %w", method, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return domain.TxHandle{}, fmt.Errorf("chain: %s: send: %w", method, err)
	}

	w.logger.InfoContext(ctx, "transaction submitted",
		slog.String("method", method),
		slog.String("hash", signed.Hash().Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas", gas),
	)
	return domain.TxHandle{
		Hash:     signed.Hash().Hex(),
		Method:   method,
		From:     from.Hex(),
		MarketID: marketID,
	}, nil
}

var _ domain.MarketWriter = (*Writer)(nil)
