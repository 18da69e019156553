package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/utils"
)

const (
	gatewayEventChargeSuccess = "charge.success"
	gatewayEventChargeFailed  = "charge.failed"

	referencePrefix = "CHM"
)

// PaymentGateway is the external card/mobile-money processor
type PaymentGateway interface {
	Initialize(ctx context.Context, req entities.GatewayChargeRequest) (*entities.GatewayInitialization, error)
	Verify(ctx context.Context, reference string) (*entities.GatewayResult, error)
	VerifySignature(payload []byte, signature string) bool
	ParseWebhook(payload []byte) (*entities.WebhookEvent, error)
}

// InitializePaymentInput starts an external deposit into WalletID
type InitializePaymentInput struct {
	WalletID uuid.UUID
	Amount   entities.Money
	Email    string
	Actor    entities.Actor
	Metadata map[string]string
}

// SettlementOptions configures the settlement adapter
type SettlementOptions struct {
	PlatformWalletID uuid.UUID
	CallbackURL      string
	PendingWindow    time.Duration
	Observer         LedgerObserver
}

// SettlementUsecase reconciles deposits confirmed by the payment gateway
type SettlementUsecase struct {
	uow        repositories.UnitOfWork
	walletRepo repositories.WalletRepository
	txRepo     repositories.TransactionRepository
	store      *WalletStore
	fees       *FeeCalculator
	gateway    PaymentGateway
	policy     accessPolicy
	opts       SettlementOptions
	observer   LedgerObserver
}

// NewSettlementUsecase creates a new settlement usecase
func NewSettlementUsecase(
	uow repositories.UnitOfWork,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	memberRepo repositories.ChamaMemberRepository,
	store *WalletStore,
	fees *FeeCalculator,
	gateway PaymentGateway,
	opts SettlementOptions,
) *SettlementUsecase {
	return &SettlementUsecase{
		uow:        uow,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		store:      store,
		fees:       fees,
		gateway:    gateway,
		policy:     accessPolicy{members: memberRepo},
		opts:       opts,
		observer:   observerOrNoop(opts.Observer),
	}
}

// Initialize records a pending deposit and opens a gateway checkout for it
func (u *SettlementUsecase) Initialize(ctx context.Context, in InitializePaymentInput) (*entities.InitializePaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", domainerrors.ErrInvalidInput)
	}

	wallet, err := u.walletRepo.GetByID(ctx, in.WalletID)
	if err != nil {
		return nil, err
	}
	if err := u.policy.canView(ctx, in.Actor, wallet); err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, domainerrors.ErrWalletInactive
	}
	if !wallet.EffectivePermissions().CanReceive {
		return nil, domainerrors.ErrPermissionDenied
	}

	fee, err := u.fees.ComputeFee(entities.TransactionTypeDeposit, in.Amount)
	if err != nil {
		return nil, err
	}
	rule, err := u.fees.Rule(entities.TransactionTypeDeposit)
	if err != nil {
		return nil, err
	}
	_, credit, err := split(rule, in.Amount, fee)
	if err != nil {
		return nil, err
	}

	reference := utils.GenerateReference(referencePrefix)
	tx := &entities.Transaction{
		ID:                utils.GenerateUUIDv7(),
		IdempotencyKey:    reference,
		ToWalletID:        &wallet.ID,
		Amount:            in.Amount,
		Fee:               fee,
		NetAmount:         credit,
		Currency:          wallet.Currency,
		Type:              entities.TransactionTypeDeposit,
		Status:            entities.TransactionStatusPending,
		ExternalReference: null.StringFrom(reference),
		InitiatedBy:       &in.Actor.UserID,
		Metadata:          in.Metadata,
		CreatedAt:         time.Now(),
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.ErrDuplicateExternalReference
		}
		return nil, err
	}

	init, err := u.gateway.Initialize(ctx, entities.GatewayChargeRequest{
		Reference:   reference,
		Email:       in.Email,
		Amount:      in.Amount,
		Currency:    wallet.Currency,
		CallbackURL: u.opts.CallbackURL,
		Metadata:    map[string]string{"wallet_id": wallet.ID.String(), "transaction_id": tx.ID.String()},
	})
	if err != nil {
		// the customer never received a checkout URL, so nothing can settle
		if _, terr := u.txRepo.Transition(ctx, tx.ID, entities.TransactionStatusPending, entities.TransactionStatusFailed,
			repositories.TransactionTransition{FailureReason: "gateway initialization failed", At: time.Now()}); terr != nil {
			logger.Error(ctx, "Failed to mark deposit failed", zap.String("reference", reference), zap.Error(terr))
		}
		logger.Error(ctx, "Gateway initialization failed", zap.String("reference", reference), zap.Error(err))
		if errors.Is(err, domainerrors.ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrGatewayUnavailable, err)
	}

	logger.Info(ctx, "Deposit initialized",
		zap.String("reference", reference),
		zap.String("wallet_id", wallet.ID.String()),
		zap.Int64("amount", int64(in.Amount)),
	)

	return &entities.InitializePaymentResult{
		Reference:        reference,
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
		Transaction:      tx,
	}, nil
}

// Reconcile applies a gateway verdict to the pending row for reference.
// Terminal rows are returned untouched, so callbacks may be repeated safely.
// Only GatewayStatusSuccess credits the wallet; an unknown status is rejected.
func (u *SettlementUsecase) Reconcile(ctx context.Context, reference string, result entities.GatewayResult) (*entities.Transaction, error) {
	if result.Status != "" && !result.Status.Known() {
		return nil, fmt.Errorf("%w: unknown gateway status %q", domainerrors.ErrInvalidInput, result.Status)
	}
	current, err := u.txRepo.GetByExternalReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		u.duplicate(ctx, current, result)
		return current, nil
	}
	if result.Status == entities.GatewayStatusPending || result.Status == "" {
		return current, nil
	}

	var lockIDs []uuid.UUID
	if current.ToWalletID != nil {
		lockIDs = append(lockIDs, *current.ToWalletID)
	}
	lockIDs = append(lockIDs, u.opts.PlatformWalletID)
	unlock := u.store.lockWallets(lockIDs...)
	defer unlock()

	var (
		out       *entities.Transaction
		duplicate bool
	)
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)
		tx, err := u.txRepo.GetByExternalReference(lockCtx, reference)
		if err != nil {
			return err
		}
		if tx.Status.IsTerminal() {
			out, duplicate = tx, true
			return nil
		}

		now := time.Now()
		if reason := mismatch(tx, result); result.Status != entities.GatewayStatusSuccess || reason != "" {
			if reason == "" {
				reason = failureReason(result)
			}
			ok, err := u.txRepo.Transition(txCtx, tx.ID, entities.TransactionStatusPending, entities.TransactionStatusFailed,
				repositories.TransactionTransition{FailureReason: reason, At: now})
			if err != nil {
				return err
			}
			if !ok {
				duplicate = true
				out, err = u.txRepo.GetByExternalReference(txCtx, reference)
				return err
			}
			tx.Status = entities.TransactionStatusFailed
			tx.FailureReason = null.StringFrom(reason)
			tx.CompletedAt = &now
			out = tx
			return nil
		}

		rule, err := u.fees.Rule(entities.TransactionTypeDeposit)
		if err != nil {
			return err
		}
		fee, err := u.fees.ComputeFee(entities.TransactionTypeDeposit, tx.Amount)
		if err != nil {
			return err
		}
		_, credit, err := split(rule, tx.Amount, fee)
		if err != nil {
			return err
		}

		ok, err := u.txRepo.Transition(txCtx, tx.ID, entities.TransactionStatusPending, entities.TransactionStatusCompleted,
			repositories.TransactionTransition{Fee: fee, NetAmount: credit, At: now})
		if err != nil {
			return err
		}
		if !ok {
			duplicate = true
			out, err = u.txRepo.GetByExternalReference(txCtx, reference)
			return err
		}

		if err := u.creditDeposit(txCtx, lockCtx, tx, credit, fee); err != nil {
			return err
		}

		tx.Status = entities.TransactionStatusCompleted
		tx.Fee = fee
		tx.NetAmount = credit
		tx.CompletedAt = &now
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	if duplicate {
		u.duplicate(ctx, out, result)
		return out, nil
	}
	u.observer.ObserveSettlement(string(out.Status))
	logger.Info(ctx, "Deposit reconciled",
		zap.String("reference", reference),
		zap.String("transaction_id", out.ID.String()),
		zap.String("status", string(out.Status)),
		zap.Int64("net_amount", int64(out.NetAmount)),
		zap.Int64("fee", int64(out.Fee)),
	)
	return out, nil
}

func (u *SettlementUsecase) creditDeposit(txCtx, lockCtx context.Context, tx *entities.Transaction, credit, fee entities.Money) error {
	if tx.ToWalletID == nil {
		return fmt.Errorf("%w: deposit has no destination wallet", domainerrors.ErrTransferFailed)
	}

	ids := sortedWalletIDs(*tx.ToWalletID, u.opts.PlatformWalletID)
	wallets := make(map[uuid.UUID]*entities.Wallet, len(ids))
	for _, id := range ids {
		wallet, err := u.walletRepo.GetByID(lockCtx, id)
		if err != nil {
			if id == u.opts.PlatformWalletID && errors.Is(err, domainerrors.ErrWalletNotFound) {
				continue
			}
			return err
		}
		wallets[id] = wallet
	}

	if credit > 0 {
		if _, err := u.store.Credit(txCtx, wallets[*tx.ToWalletID], credit, tx.ID); err != nil {
			return err
		}
	}
	if platform := wallets[u.opts.PlatformWalletID]; fee > 0 && platform != nil {
		if _, err := u.store.Credit(txCtx, platform, fee, tx.ID); err != nil {
			return err
		}
	}
	return nil
}

func (u *SettlementUsecase) duplicate(ctx context.Context, tx *entities.Transaction, result entities.GatewayResult) {
	u.observer.ObserveDuplicateCallback()
	logger.Warn(ctx, "Duplicate gateway callback ignored",
		zap.String("reference", tx.ExternalReference.String),
		zap.String("status", string(tx.Status)),
		zap.String("gateway_status", string(result.Status)),
	)
}

// Verify asks the gateway about reference and reconciles the answer
func (u *SettlementUsecase) Verify(ctx context.Context, reference string, actor entities.Actor) (*entities.TransactionView, error) {
	tx, err := u.txRepo.GetByExternalReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := u.canSee(ctx, actor, tx); err != nil {
		return nil, err
	}

	if !tx.Status.IsTerminal() {
		result, err := u.gateway.Verify(ctx, reference)
		if err != nil {
			// unknown is not failure: the row stays pending and is re-verified later
			logger.Warn(ctx, "Gateway verify failed", zap.String("reference", reference), zap.Error(err))
		} else if tx, err = u.Reconcile(ctx, reference, *result); err != nil {
			return nil, err
		}
	}
	return u.view(tx), nil
}

// HandleWebhook verifies and applies a gateway callback
func (u *SettlementUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !u.gateway.VerifySignature(payload, signature) {
		return domainerrors.ErrInvalidSignature
	}
	event, err := u.gateway.ParseWebhook(payload)
	if err != nil {
		return err
	}

	result := event.Result
	switch event.Event {
	case gatewayEventChargeSuccess:
	case gatewayEventChargeFailed:
		result.Status = entities.GatewayStatusFailed
	default:
		logger.Debug(ctx, "Ignoring gateway event", zap.String("event", event.Event))
		return nil
	}

	if _, err := u.Reconcile(ctx, result.Reference, result); err != nil {
		if errors.Is(err, domainerrors.ErrTransactionNotFound) {
			logger.Warn(ctx, "Gateway callback for unknown reference", zap.String("reference", result.Reference))
			return nil
		}
		return err
	}
	return nil
}

// ReverifyPending re-checks deposits that stayed pending past the window.
// Rows the gateway still reports as pending are left alone.
func (u *SettlementUsecase) ReverifyPending(ctx context.Context, limit int) (int, error) {
	stale, err := u.txRepo.ListStalePending(ctx, time.Now().Add(-u.opts.PendingWindow), limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, tx := range stale {
		if ctx.Err() != nil {
			break
		}
		reference := tx.ExternalReference.String
		result, err := u.gateway.Verify(ctx, reference)
		if err != nil {
			logger.Warn(ctx, "Re-verify failed", zap.String("reference", reference), zap.Error(err))
			continue
		}
		updated, err := u.Reconcile(ctx, reference, *result)
		if err != nil {
			logger.Error(ctx, "Re-verify reconcile failed", zap.String("reference", reference), zap.Error(err))
			continue
		}
		if updated.Status.IsTerminal() {
			resolved++
		}
	}
	u.observer.ObservePendingReverified(resolved)
	return resolved, nil
}

// view decorates tx with the status clients should render
func (u *SettlementUsecase) view(tx *entities.Transaction) *entities.TransactionView {
	return newTransactionView(tx, u.opts.PendingWindow)
}

func (u *SettlementUsecase) canSee(ctx context.Context, actor entities.Actor, tx *entities.Transaction) error {
	if actor.IsAdmin() || (tx.InitiatedBy != nil && *tx.InitiatedBy == actor.UserID) {
		return nil
	}
	if tx.ToWalletID == nil {
		return domainerrors.ErrForbidden
	}
	wallet, err := u.walletRepo.GetByID(ctx, *tx.ToWalletID)
	if err != nil {
		return err
	}
	return u.policy.canView(ctx, actor, wallet)
}

func newTransactionView(tx *entities.Transaction, window time.Duration) *entities.TransactionView {
	return &entities.TransactionView{
		Transaction:   tx,
		DisplayStatus: tx.DisplayStatus(time.Now(), window),
	}
}

func mismatch(tx *entities.Transaction, result entities.GatewayResult) string {
	if result.Status != entities.GatewayStatusSuccess {
		return ""
	}
	if result.Amount != tx.Amount {
		return fmt.Sprintf("amount mismatch: gateway reported %s, expected %s", result.Amount, tx.Amount)
	}
	if result.Currency != "" && !strings.EqualFold(result.Currency, tx.Currency) {
		return fmt.Sprintf("currency mismatch: gateway reported %s, expected %s", result.Currency, tx.Currency)
	}
	return ""
}

func failureReason(result entities.GatewayResult) string {
	if result.GatewayResponse != "" {
		return result.GatewayResponse
	}
	return "payment failed at gateway"
}
