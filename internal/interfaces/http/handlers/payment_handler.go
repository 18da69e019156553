package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/interfaces/http/response"
	"chama-ledger.backend/internal/usecases"
	"chama-ledger.backend/pkg/logger"
)

// PaystackSignatureHeader carries the HMAC of the raw webhook body
const PaystackSignatureHeader = "x-paystack-signature"

// SettlementService starts and confirms gateway deposits
type SettlementService interface {
	Initialize(ctx context.Context, in usecases.InitializePaymentInput) (*entities.InitializePaymentResult, error)
	Verify(ctx context.Context, reference string, actor entities.Actor) (*entities.TransactionView, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// PaymentHandler handles gateway deposit endpoints
type PaymentHandler struct {
	settlement SettlementService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(settlement SettlementService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

// InitializePayment starts a deposit
// POST /api/v1/payments/initialize
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req entities.InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := h.settlement.Initialize(c.Request.Context(), usecases.InitializePaymentInput{
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Email:    req.Email,
		Actor:    actor,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// VerifyPayment asks the gateway about a reference and reconciles it
// GET /api/v1/payments/verify/:reference
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		response.Error(c, domainerrors.BadRequest("reference is required"))
		return
	}

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	view, err := h.settlement.Verify(c.Request.Context(), reference, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": view})
}

// HandlePaystackWebhook applies a signed gateway callback
// POST /api/v1/webhooks/paystack
func (h *PaymentHandler) HandlePaystackWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		response.Error(c, domainerrors.BadRequest("empty webhook body"))
		return
	}

	err = h.settlement.HandleWebhook(c.Request.Context(), payload, c.GetHeader(PaystackSignatureHeader))
	if err != nil {
		if !errors.Is(err, domainerrors.ErrInvalidSignature) {
			logger.Error(c.Request.Context(), "Webhook processing failed", zap.Error(err))
		}
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}
