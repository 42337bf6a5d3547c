package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// MarketService defines the methods that the market handler requires from the
// service layer.
type MarketService interface {
	List(subset viewmodel.Subset, page int) service.MarketPage
	Get(id uint64) (domain.MarketView, error)
	Card(ctx context.Context, id uint64, account, amount string) (viewmodel.Card, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logHandler(logger, "market"),
	}
}

// ListMarkets returns one page of open or resolved markets.
// GET /api/markets?status=open&page=1
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	subset, err := viewmodel.ParseSubset(q.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "status must be open or resolved")
		return
	}

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		page = n
	}

	writeJSON(w, http.StatusOK, h.markets.List(subset, page))
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	market, err := h.markets.Get(id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// GetCard returns the action state of a market for one account.
// GET /api/markets/{id}/card?account=0x...&amount=1.5
func (h *MarketHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	account := strings.TrimSpace(q.Get("account"))
	if account != "" && !common.IsHexAddress(account) {
		writeError(w, http.StatusBadRequest, "account must be a hex address")
		return
	}

	card, err := h.markets.Card(r.Context(), id, account, q.Get("amount"))
	if err != nil {
		writeServiceError(w, r, h.logger, "market card", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
