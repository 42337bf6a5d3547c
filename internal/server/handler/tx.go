package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/predicthub/predicthub/internal/domain"
)

// BetService defines the operator-wallet writes exposed over HTTP.
type BetService interface {
	Approve(ctx context.Context, amount string) (domain.TxHandle, error)
	PlaceBet(ctx context.Context, id uint64, side domain.Side, amount string) (domain.TxHandle, error)
	Resolve(ctx context.Context, id uint64, side domain.Side) (domain.TxHandle, error)
	Withdraw(ctx context.Context, id uint64) (domain.TxHandle, error)
}

type approveRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type betRequest struct {
	Side   string `json:"side" validate:"required,oneof=yes no"`
	Amount string `json:"amount" validate:"required,numeric"`
}

type resolveRequest struct {
	Side string `json:"side" validate:"required,oneof=yes no"`
}

// TxHandler serves the transaction-submitting endpoints. Every successful
// call answers 202 with the submitted transaction hash.
type TxHandler struct {
	bets      BetService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTxHandler creates a TxHandler.
func NewTxHandler(bets BetService, logger *slog.Logger) *TxHandler {
	return &TxHandler{
		bets:      bets,
		validator: newValidator(),
		logger:    logHandler(logger, "tx"),
	}
}

// Approve grants the market contract a token allowance.
// POST /api/approvals
func (h *TxHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if status, err := decodeBody(w, r, h.validator, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}

	tx, err := h.bets.Approve(r.Context(), req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "approve", err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

// PlaceBet stakes on one side of an open market.
// POST /api/markets/{id}/bets
func (h *TxHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req betRequest
	if status, err := decodeBody(w, r, h.validator, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	side, _ := parseSide(req.Side)

	tx, err := h.bets.PlaceBet(r.Context(), id, side, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "place bet", err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

// Resolve settles an open market. Only its arbitrator may call it.
// POST /api/markets/{id}/resolve
func (h *TxHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if status, err := decodeBody(w, r, h.validator, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	side, _ := parseSide(req.Side)

	tx, err := h.bets.Resolve(r.Context(), id, side)
	if err != nil {
		writeServiceError(w, r, h.logger, "resolve market", err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

// Withdraw claims the operator's winnings from a resolved market.
// POST /api/markets/{id}/withdraw
func (h *TxHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.bets.Withdraw(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}
