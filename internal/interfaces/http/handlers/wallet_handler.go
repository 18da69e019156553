package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/interfaces/http/response"
	"chama-ledger.backend/pkg/utils"
)

// WalletService administers wallets and their history
type WalletService interface {
	CreateWallet(ctx context.Context, input *entities.CreateWalletInput, actor entities.Actor) (*entities.Wallet, error)
	ListWallets(ctx context.Context, actor entities.Actor) ([]*entities.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID, actor entities.Actor) (*entities.Wallet, error)
	UpdatePermissions(ctx context.Context, walletID uuid.UUID, perms entities.WalletPermissions, actor entities.Actor) (*entities.Wallet, error)
	SetPin(ctx context.Context, walletID uuid.UUID, input *entities.SetPinInput, actor entities.Actor) error
	Deactivate(ctx context.Context, walletID uuid.UUID, actor entities.Actor) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams, actor entities.Actor) ([]*entities.TransactionView, int64, error)
	GetTransaction(ctx context.Context, id uuid.UUID, actor entities.Actor) (*entities.TransactionView, error)
}

// BalanceService reads balances and toggles fund locks
type BalanceService interface {
	GetBalanceFor(ctx context.Context, walletID uuid.UUID, actor entities.Actor) (*entities.Wallet, error)
	SetLock(ctx context.Context, walletID uuid.UUID, locked bool, actor entities.Actor) (*entities.Wallet, error)
}

// WalletHandler handles wallet endpoints
type WalletHandler struct {
	wallets  WalletService
	balances BalanceService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(wallets WalletService, balances BalanceService) *WalletHandler {
	return &WalletHandler{wallets: wallets, balances: balances}
}

// CreateWallet opens a wallet
// POST /api/v1/wallets
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var input entities.CreateWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallet, err := h.wallets.CreateWallet(c.Request.Context(), &input, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"wallet": wallet})
}

// ListWallets lists wallets for the current user
// GET /api/v1/wallets
func (h *WalletHandler) ListWallets(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallets, err := h.wallets.ListWallets(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if wallets == nil {
		wallets = []*entities.Wallet{}
	}

	response.Success(c, http.StatusOK, gin.H{"wallets": wallets})
}

// GetWallet returns one wallet
// GET /api/v1/wallets/:id
func (h *WalletHandler) GetWallet(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), walletID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet})
}

// GetBalance returns the current balance
// GET /api/v1/wallets/:id/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallet, err := h.balances.GetBalanceFor(c.Request.Context(), walletID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"walletId": wallet.ID,
		"balance":  wallet.Balance,
		"currency": wallet.Currency,
		"isLocked": wallet.IsLocked,
	})
}

// SetLock locks or unlocks outbound movement
// PUT /api/v1/wallets/:id/lock
func (h *WalletHandler) SetLock(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}

	var input entities.SetLockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallet, err := h.balances.SetLock(c.Request.Context(), walletID, *input.Locked, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet})
}

// UpdatePermissions replaces sub-account permissions
// PUT /api/v1/wallets/:id/permissions
func (h *WalletHandler) UpdatePermissions(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}

	var perms entities.WalletPermissions
	if err := c.ShouldBindJSON(&perms); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	wallet, err := h.wallets.UpdatePermissions(c.Request.Context(), walletID, perms, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet})
}

// SetPin sets or rotates the transaction PIN
// PUT /api/v1/wallets/:id/pin
func (h *WalletHandler) SetPin(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}

	var input entities.SetPinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.wallets.SetPin(c.Request.Context(), walletID, &input, actor); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "PIN updated"})
}

// Deactivate retires an empty wallet
// DELETE /api/v1/wallets/:id
func (h *WalletHandler) Deactivate(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.wallets.Deactivate(c.Request.Context(), walletID, actor); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Wallet deactivated"})
}

// ListTransactions pages through a wallet's history
// GET /api/v1/wallets/:id/transactions
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, ok := parseIDParam(c, "id", "wallet")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	pagination := paginationFromQuery(c)
	txs, total, err := h.wallets.ListTransactions(c.Request.Context(), walletID, pagination, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if txs == nil {
		txs = []*entities.TransactionView{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"transactions": txs,
		"pagination":   utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// GetTransaction returns one movement
// GET /api/v1/transactions/:id
func (h *WalletHandler) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "transaction")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tx, err := h.wallets.GetTransaction(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": tx})
}
