package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventMarketResolved, " "}, quietLogger())

	require.NoError(t, n.Notify(context.Background(), EventTxSubmitted, "tx", ""))
	require.NoError(t, n.Notify(context.Background(), EventMarketResolved, "resolved", ""))
	assert.Equal(t, []string{"resolved"}, s.titles)
	assert.False(t, n.Enabled(EventError))
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, quietLogger())

	require.NoError(t, n.Notify(context.Background(), EventError, "boom", ""))
	assert.Len(t, s.titles, 1)
	assert.False(t, NewNotifier(nil, nil, quietLogger()).Enabled(EventError))
}

func TestNotifierTriesEverySender(t *testing.T) {
	failing := &recordingSender{name: "bad", err: errors.New("offline")}
	ok := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{failing, ok}, nil, quietLogger())

	err := n.Notify(context.Background(), EventError, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: offline")
	assert.Len(t, ok.titles, 1)
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.baseURL = srv.URL
	require.NoError(t, s.Send(context.Background(), "Title", "body"))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Title*\nbody", got["text"])
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestMessages(t *testing.T) {
	title, msg := MarketResolvedMessage(domain.MarketView{
		ID:       3,
		Question: "Will it rain?",
		YesBets:  big.NewInt(1_500_000),
		NoBets:   big.NewInt(0),
		Outcome:  domain.OutcomeResolvedNo,
	})
	assert.Equal(t, "Market #3 resolved NO", title)
	assert.Equal(t, "Will it rain?\nPool: 1.5 yes / 0 no", msg)

	id := uint64(3)
	title, msg = TxSubmittedMessage(domain.TxHandle{Hash: "0xabc", Method: "withdraw", MarketID: &id})
	assert.Equal(t, "Transaction submitted: withdraw", title)
	assert.Equal(t, "Hash: 0xabc\nMarket: #3", msg)
}
