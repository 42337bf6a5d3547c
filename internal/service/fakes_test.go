package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/predicthub/predicthub/internal/domain"
)

const (
	operator   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	arbitrator = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func view(id uint64, outcome domain.Outcome) domain.MarketView {
	return domain.MarketView{
		ID:          id,
		Question:    "Question?",
		Arbitrator:  arbitrator,
		YesBets:     big.NewInt(3_000_000),
		NoBets:      big.NewInt(1_000_000),
		Outcome:     outcome,
		WeightedYes: big.NewInt(3),
		WeightedNo:  big.NewInt(1),
	}
}

type fakeReader struct {
	allowance *big.Int
	bet       domain.UserBet
	err       error
}

func (f *fakeReader) MarketCount(context.Context) (uint64, error) { return 0, f.err }

func (f *fakeReader) ReadBatch(context.Context, uint64) ([]domain.ReadResult, error) {
	return nil, f.err
}

func (f *fakeReader) Allowance(context.Context, string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.allowance, nil
}

func (f *fakeReader) UserBet(context.Context, uint64, string) (domain.UserBet, error) {
	return f.bet, f.err
}

type fakeWriter struct {
	address string
	calls   []string
	err     error
}

func (f *fakeWriter) Address() string { return f.address }

func (f *fakeWriter) submit(method string, id *uint64) (domain.TxHandle, error) {
	if f.err != nil {
		return domain.TxHandle{}, f.err
	}
	f.calls = append(f.calls, method)
	return domain.TxHandle{Hash: "0x" + strings.Repeat("ab", 32), Method: method, From: f.address, MarketID: id}, nil
}

func (f *fakeWriter) Approve(context.Context, *big.Int) (domain.TxHandle, error) {
	return f.submit("approve", nil)
}

func (f *fakeWriter) PlaceBet(_ context.Context, id uint64, _ domain.Side, _ *big.Int) (domain.TxHandle, error) {
	return f.submit("placeBet", &id)
}

func (f *fakeWriter) ResolveMarket(_ context.Context, id uint64, _ domain.Side) (domain.TxHandle, error) {
	return f.submit("resolveMarket", &id)
}

func (f *fakeWriter) Withdraw(_ context.Context, id uint64) (domain.TxHandle, error) {
	return f.submit("withdraw", &id)
}

type memCache struct {
	mu   sync.Mutex
	snap *domain.Snapshot
	err  error
}

func (m *memCache) Set(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snap = &snap
	return nil
}

func (m *memCache) Get(context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return *m.snap, nil
}

type memBus struct {
	mu        sync.Mutex
	published [][]byte
	subs      []chan []byte
}

func (b *memBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, payload)
	for _, s := range b.subs {
		s <- payload
	}
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-ch:
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type memStore struct {
	saved  []domain.Snapshot
	latest []domain.MarketView
	err    error
}

func (m *memStore) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memStore) Latest(context.Context) ([]domain.MarketView, error) { return m.latest, m.err }

func (m *memStore) ListRuns(context.Context, domain.ListOpts) ([]domain.SnapshotRun, error) {
	return nil, m.err
}

type memAudit struct {
	events []string
	detail []map[string]any
}

func (m *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	m.events = append(m.events, event)
	m.detail = append(m.detail, detail)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	titles []string
}

func (r *recordingNotifier) Notify(_ context.Context, event, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.titles = append(r.titles, title)
	return nil
}

var errBoom = errors.New("boom")
