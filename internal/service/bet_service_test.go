package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/notify"
)

type staticLookup map[uint64]domain.MarketView

func (s staticLookup) Get(id uint64) (domain.MarketView, error) {
	m, ok := s[id]
	if !ok {
		return domain.MarketView{}, domain.ErrNotFound
	}
	return m, nil
}

type betFixture struct {
	svc      *BetService
	reader   *fakeReader
	writer   *fakeWriter
	audit    *memAudit
	notifier *recordingNotifier
}

func newBetFixture(wallet string) betFixture {
	f := betFixture{
		reader:   &fakeReader{allowance: big.NewInt(5_000_000)},
		writer:   &fakeWriter{address: wallet},
		audit:    &memAudit{},
		notifier: &recordingNotifier{},
	}
	markets := staticLookup{
		0: view(0, domain.OutcomeOpen),
		1: view(1, domain.OutcomeResolvedYes),
	}
	f.svc = NewBetService(markets, f.reader, f.writer, f.audit, f.notifier, quietLogger())
	return f
}

func TestBetServicePlaceBet(t *testing.T) {
	f := newBetFixture(operator)

	h, err := f.svc.PlaceBet(context.Background(), 0, domain.SideYes, "1.5")
	require.NoError(t, err)
	assert.Equal(t, "placeBet", h.Method)
	assert.Equal(t, []string{"placeBet"}, f.writer.calls)

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, notify.EventTxSubmitted, f.audit.events[0])
	assert.Equal(t, "1500000", f.audit.detail[0]["amount"])
	assert.Equal(t, "yes", f.audit.detail[0]["side"])
	assert.Equal(t, uint64(0), f.audit.detail[0]["market_id"])
	assert.Equal(t, []string{notify.EventTxSubmitted}, f.notifier.events)
}

func TestBetServicePlaceBetPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		id      uint64
		amount  string
		wantErr error
	}{
		{name: "zero amount", id: 0, amount: "0", wantErr: domain.ErrInvalidAmount},
		{name: "empty amount", id: 0, amount: "", wantErr: domain.ErrInvalidAmount},
		{name: "garbage amount", id: 0, amount: "ten", wantErr: domain.ErrInvalidAmount},
		{name: "allowance too low", id: 0, amount: "5.000001", wantErr: domain.ErrInsufficientAllowance},
		{name: "market resolved", id: 1, amount: "1", wantErr: domain.ErrMarketClosed},
		{name: "unknown market", id: 9, amount: "1", wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBetFixture(operator)
			_, err := f.svc.PlaceBet(context.Background(), tt.id, domain.SideNo, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.writer.calls)
			assert.Empty(t, f.audit.events)
		})
	}
}

func TestBetServiceApprove(t *testing.T) {
	f := newBetFixture(operator)

	_, err := f.svc.Approve(context.Background(), "0")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	h, err := f.svc.Approve(context.Background(), "100")
	require.NoError(t, err)
	assert.Nil(t, h.MarketID)
	assert.Equal(t, "100000000", f.audit.detail[0]["amount"])
}

func TestBetServiceResolve(t *testing.T) {
	t.Run("arbitrator", func(t *testing.T) {
		f := newBetFixture("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
		_, err := f.svc.Resolve(context.Background(), 0, domain.SideNo)
		require.NoError(t, err)
		assert.Equal(t, []string{"resolveMarket"}, f.writer.calls)
	})

	t.Run("not arbitrator", func(t *testing.T) {
		f := newBetFixture(operator)
		_, err := f.svc.Resolve(context.Background(), 0, domain.SideNo)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("already resolved", func(t *testing.T) {
		f := newBetFixture(arbitrator)
		_, err := f.svc.Resolve(context.Background(), 1, domain.SideYes)
		assert.ErrorIs(t, err, domain.ErrMarketClosed)
	})
}

func TestBetServiceWithdraw(t *testing.T) {
	t.Run("winner", func(t *testing.T) {
		f := newBetFixture(operator)
		f.reader.bet = domain.UserBet{YesAmount: big.NewInt(1), NoAmount: big.NewInt(0)}
		_, err := f.svc.Withdraw(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"withdraw"}, f.writer.calls)
	})

	t.Run("loser", func(t *testing.T) {
		f := newBetFixture(operator)
		f.reader.bet = domain.UserBet{YesAmount: big.NewInt(0), NoAmount: big.NewInt(7)}
		_, err := f.svc.Withdraw(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)
	})

	t.Run("still open", func(t *testing.T) {
		f := newBetFixture(operator)
		_, err := f.svc.Withdraw(context.Background(), 0)
		assert.ErrorIs(t, err, domain.ErrMarketOpen)
	})
}

func TestBetServiceWithoutWallet(t *testing.T) {
	svc := NewBetService(staticLookup{}, &fakeReader{}, nil, nil, nil, quietLogger())
	assert.Empty(t, svc.Wallet())

	_, err := svc.Approve(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNoWallet)
	_, err = svc.Withdraw(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrNoWallet)
}

func TestBetServiceWriterError(t *testing.T) {
	f := newBetFixture(operator)
	f.writer.err = errBoom

	_, err := f.svc.PlaceBet(context.Background(), 0, domain.SideYes, "1")
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.audit.events)
}
