package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/interfaces/http/middleware"
	"chama-ledger.backend/internal/interfaces/http/response"
	"chama-ledger.backend/internal/usecases"
)

// TransferService moves money between wallets and out of the system
type TransferService interface {
	Transfer(ctx context.Context, in usecases.TransferInput) (*entities.Transaction, error)
	Withdraw(ctx context.Context, walletID uuid.UUID, req *entities.WithdrawRequest, actor entities.Actor, idempotencyKey string) (*entities.Transaction, error)
}

// TransferHandler handles transfer endpoints
type TransferHandler struct {
	engine TransferService
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(engine TransferService) *TransferHandler {
	return &TransferHandler{engine: engine}
}

// Transfer moves funds between two wallets
// POST /api/v1/transfers
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req entities.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	toWalletID := req.ToWalletID
	tx, err := h.engine.Transfer(c.Request.Context(), usecases.TransferInput{
		FromWalletID:   req.FromWalletID,
		ToWalletID:     &toWalletID,
		Amount:         req.Amount,
		Type:           req.Type,
		IdempotencyKey: c.GetHeader(middleware.IdempotencyHeader),
		Actor:          actor,
		AdminOverride:  req.AdminOverride,
		Pin:            req.Pin,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"transaction": tx})
}

// Withdraw moves funds out of a wallet to an external destination
// POST /api/v1/wallets/:id/withdraw
func (h *TransferHandler) Withdraw(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}

	var req entities.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tx, err := h.engine.Withdraw(c.Request.Context(), walletID, &req, actor, c.GetHeader(middleware.IdempotencyHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"transaction": tx})
}
