package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/notify"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// MarketLookup resolves a market from the current snapshot.
type MarketLookup interface {
	Get(id uint64) (domain.MarketView, error)
}

// BetService submits operator-wallet transactions after checking the same
// preconditions the market card uses to enable each action. A failed
// precondition returns a domain error and submits nothing.
type BetService struct {
	markets  MarketLookup
	reader   domain.MarketReader
	writer   domain.MarketWriter
	audit    domain.AuditStore
	notifier Notifier
	logger   *slog.Logger
}

// NewBetService creates a BetService. writer may be nil, in which case every
// write returns domain.ErrNoWallet; audit and notifier are optional.
func NewBetService(
	markets MarketLookup,
	reader domain.MarketReader,
	writer domain.MarketWriter,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		markets:  markets,
		reader:   reader,
		writer:   writer,
		audit:    audit,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "bet_service")),
	}
}

// Wallet returns the operator address, or "" when running read-only.
func (s *BetService) Wallet() string {
	if s.writer == nil {
		return ""
	}
	return s.writer.Address()
}

// Approve lets the market contract spend amount of the operator's tokens.
func (s *BetService) Approve(ctx context.Context, amount string) (domain.TxHandle, error) {
	if s.writer == nil {
		return domain.TxHandle{}, domain.ErrNoWallet
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return domain.TxHandle{}, err
	}

	h, err := s.writer.Approve(ctx, amt)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: approve: %w", err)
	}
	s.record(ctx, h, map[string]any{"amount": amt.String()})
	return h, nil
}

// PlaceBet stakes amount on side of market id. The market must be open and
// the operator's allowance must cover amount.
func (s *BetService) PlaceBet(ctx context.Context, id uint64, side domain.Side, amount string) (domain.TxHandle, error) {
	if s.writer == nil {
		return domain.TxHandle{}, domain.ErrNoWallet
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return domain.TxHandle{}, err
	}
	m, err := s.markets.Get(id)
	if err != nil {
		return domain.TxHandle{}, err
	}
	if !m.Outcome.IsOpen() {
		return domain.TxHandle{}, fmt.Errorf("bet_service: place bet on market %d: %w", id, domain.ErrMarketClosed)
	}

	allowance, err := s.reader.Allowance(ctx, s.writer.Address())
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: place bet: allowance: %w", err)
	}
	if allowance.Cmp(amt) < 0 {
		return domain.TxHandle{}, fmt.Errorf("bet_service: place bet of %s with allowance %s: %w",
			domain.FormatUnits(amt), domain.FormatUnits(allowance), domain.ErrInsufficientAllowance)
	}

	h, err := s.writer.PlaceBet(ctx, id, side, amt)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: place bet: %w", err)
	}
	s.record(ctx, h, map[string]any{"side": side.String(), "amount": amt.String()})
	return h, nil
}

// Resolve settles open market id to side. Only the market's arbitrator may
// resolve.
func (s *BetService) Resolve(ctx context.Context, id uint64, side domain.Side) (domain.TxHandle, error) {
	if s.writer == nil {
		return domain.TxHandle{}, domain.ErrNoWallet
	}
	m, err := s.markets.Get(id)
	if err != nil {
		return domain.TxHandle{}, err
	}
	if !m.Outcome.IsOpen() {
		return domain.TxHandle{}, fmt.Errorf("bet_service: resolve market %d: %w", id, domain.ErrMarketClosed)
	}
	if !viewmodel.SameAddress(s.writer.Address(), m.Arbitrator) {
		return domain.TxHandle{}, fmt.Errorf("bet_service: resolve market %d: wallet is not the arbitrator: %w", id, domain.ErrUnauthorized)
	}

	h, err := s.writer.ResolveMarket(ctx, id, side)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: resolve: %w", err)
	}
	s.record(ctx, h, map[string]any{"side": side.String()})
	return h, nil
}

// Withdraw claims the operator's winnings from resolved market id.
func (s *BetService) Withdraw(ctx context.Context, id uint64) (domain.TxHandle, error) {
	if s.writer == nil {
		return domain.TxHandle{}, domain.ErrNoWallet
	}
	m, err := s.markets.Get(id)
	if err != nil {
		return domain.TxHandle{}, err
	}
	if !m.Outcome.IsResolved() {
		return domain.TxHandle{}, fmt.Errorf("bet_service: withdraw from market %d: %w", id, domain.ErrMarketOpen)
	}

	bet, err := s.reader.UserBet(ctx, id, s.writer.Address())
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: withdraw: user bet: %w", err)
	}
	card := viewmodel.DeriveCard(viewmodel.CardInput{Market: m, Viewer: s.writer.Address(), Bet: bet})
	if !card.CanWithdraw {
		return domain.TxHandle{}, fmt.Errorf("bet_service: withdraw from market %d: %w", id, domain.ErrNothingToWithdraw)
	}

	h, err := s.writer.Withdraw(ctx, id)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("bet_service: withdraw: %w", err)
	}
	s.record(ctx, h, nil)
	return h, nil
}

// record writes the audit row and the operator alert for a submitted
// transaction. Neither failure is returned since the transaction is
// already in the mempool.
func (s *BetService) record(ctx context.Context, h domain.TxHandle, detail map[string]any) {
	s.logger.InfoContext(ctx, "transaction submitted",
		slog.String("method", h.Method),
		slog.String("hash", h.Hash),
	)

	if s.audit != nil {
		if detail == nil {
			detail = map[string]any{}
		}
		detail["method"] = h.Method
		detail["hash"] = h.Hash
		detail["from"] = h.From
		if h.MarketID != nil {
			detail["market_id"] = *h.MarketID
		}
		if err := s.audit.Log(ctx, notify.EventTxSubmitted, detail); err != nil {
			s.logger.WarnContext(ctx, "audit log failed",
				slog.String("hash", h.Hash),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		title, msg := notify.TxSubmittedMessage(h)
		if err := s.notifier.Notify(ctx, notify.EventTxSubmitted, title, msg); err != nil {
			s.logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
		}
	}
}

func positiveAmount(s string) (*big.Int, error) {
	amt, err := domain.ParseUnits(s)
	if err != nil {
		return nil, err
	}
	if amt.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	return amt, nil
}
