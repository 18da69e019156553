package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/crypto"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/utils"
)

// TransferInput describes one internal money movement
type TransferInput struct {
	FromWalletID   uuid.UUID
	ToWalletID     *uuid.UUID
	Amount         entities.Money
	Type           entities.TransactionType
	Method         string
	IdempotencyKey string
	Actor          entities.Actor
	AdminOverride  bool
	Pin            string
	Metadata       map[string]string
}

// TransferOptions configures the engine
type TransferOptions struct {
	// PlatformWalletID receives fees; uuid.Nil sends fees out of the ledger.
	PlatformWalletID   uuid.UUID
	AllowAdminOverride bool
	RetryDelay         time.Duration
	Observer           LedgerObserver
}

// TransferEngine moves money between wallets atomically
type TransferEngine struct {
	uow        repositories.UnitOfWork
	walletRepo repositories.WalletRepository
	txRepo     repositories.TransactionRepository
	memberRepo repositories.ChamaMemberRepository
	store      *WalletStore
	fees       *FeeCalculator
	policy     accessPolicy
	opts       TransferOptions
	observer   LedgerObserver
}

var sleepWithContext = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewTransferEngine creates a new transfer engine
func NewTransferEngine(
	uow repositories.UnitOfWork,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	memberRepo repositories.ChamaMemberRepository,
	store *WalletStore,
	fees *FeeCalculator,
	opts TransferOptions,
) *TransferEngine {
	return &TransferEngine{
		uow:        uow,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		memberRepo: memberRepo,
		store:      store,
		fees:       fees,
		policy:     accessPolicy{members: memberRepo},
		opts:       opts,
		observer:   observerOrNoop(opts.Observer),
	}
}

// Transfer applies in exactly once per idempotency key
func (e *TransferEngine) Transfer(ctx context.Context, in TransferInput) (*entities.Transaction, error) {
	started := time.Now()
	if in.Type == "" {
		in.Type = entities.TransactionTypeTransfer
	}
	tx, err := e.transfer(ctx, in)

	outcome := "completed"
	var fee int64
	switch {
	case err == nil:
		fee = int64(tx.Fee)
	case domainerrors.IsValidationError(err):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	e.observer.ObserveMovement(string(in.Type), outcome, fee, started)

	fields := []zap.Field{
		zap.String("type", string(in.Type)),
		zap.String("from_wallet_id", in.FromWalletID.String()),
		zap.Int64("amount", int64(in.Amount)),
		zap.String("idempotency_key", in.IdempotencyKey),
		zap.String("outcome", outcome),
	}
	if in.ToWalletID != nil {
		fields = append(fields, zap.String("to_wallet_id", in.ToWalletID.String()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		if outcome == "rejected" {
			logger.Info(ctx, "Transfer rejected", fields...)
		} else {
			logger.Error(ctx, "Transfer failed", fields...)
		}
		return nil, err
	}
	fields = append(fields, zap.String("transaction_id", tx.ID.String()), zap.Int64("fee", fee))
	logger.Info(ctx, "Transfer completed", fields...)
	return tx, nil
}

// Withdraw moves funds out of the system through method
func (e *TransferEngine) Withdraw(ctx context.Context, walletID uuid.UUID, req *entities.WithdrawRequest, actor entities.Actor, idempotencyKey string) (*entities.Transaction, error) {
	metadata := map[string]string{}
	if req.Destination != "" {
		metadata["destination"] = req.Destination
	}
	return e.Transfer(ctx, TransferInput{
		FromWalletID:   walletID,
		Amount:         req.Amount,
		Type:           entities.TransactionTypeWithdrawal,
		Method:         req.Method,
		IdempotencyKey: idempotencyKey,
		Actor:          actor,
		Pin:            req.Pin,
		Metadata:       metadata,
	})
}

func (e *TransferEngine) transfer(ctx context.Context, in TransferInput) (*entities.Transaction, error) {
	if err := validateTransferInput(&in); err != nil {
		return nil, err
	}

	existing, err := e.lookup(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
	}
	if existing != nil {
		return replay(existing, in)
	}

	lockIDs := []uuid.UUID{in.FromWalletID, e.opts.PlatformWalletID}
	if in.ToWalletID != nil {
		lockIDs = append(lockIDs, *in.ToWalletID)
	}
	unlock := e.store.lockWallets(lockIDs...)
	defer unlock()

	tx, err := e.apply(ctx, in)
	if err == nil || domainerrors.IsValidationError(err) {
		return tx, err
	}

	// The row may have committed even though we saw an error; never move twice.
	existing, lookupErr := e.lookup(ctx, in.IdempotencyKey)
	if lookupErr != nil {
		return nil, fmt.Errorf("%w: outcome unknown: %v", domainerrors.ErrTransferFailed, err)
	}
	if existing != nil {
		return replay(existing, in)
	}

	e.observer.ObserveTransientRetry()
	logger.Warn(ctx, "Retrying transfer after transient failure",
		zap.String("idempotency_key", in.IdempotencyKey),
		zap.Error(err),
	)
	if err := sleepWithContext(ctx, e.opts.RetryDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
	}

	tx, retryErr := e.apply(ctx, in)
	if retryErr == nil || domainerrors.IsValidationError(retryErr) {
		return tx, retryErr
	}

	existing, lookupErr = e.lookup(ctx, in.IdempotencyKey)
	if lookupErr == nil && existing != nil {
		return replay(existing, in)
	}
	return nil, fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, retryErr)
}

func validateTransferInput(in *TransferInput) error {
	if !in.Amount.IsPositive() {
		return domainerrors.ErrInvalidAmount
	}
	if in.Type == "" {
		in.Type = entities.TransactionTypeTransfer
	}
	switch in.Type {
	case entities.TransactionTypeTransfer, entities.TransactionTypeContribution, entities.TransactionTypeConversion:
		if in.ToWalletID == nil {
			return fmt.Errorf("%w: destination wallet is required", domainerrors.ErrInvalidInput)
		}
		if *in.ToWalletID == in.FromWalletID {
			return domainerrors.ErrSameWallet
		}
	case entities.TransactionTypeWithdrawal:
		if in.ToWalletID != nil {
			return fmt.Errorf("%w: withdrawals have no destination wallet", domainerrors.ErrInvalidInput)
		}
		if in.Method == "" {
			return fmt.Errorf("%w: withdrawal method is required", domainerrors.ErrInvalidInput)
		}
	case entities.TransactionTypeDeposit:
		return fmt.Errorf("%w: deposits enter through the payment gateway", domainerrors.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown transaction type %q", domainerrors.ErrInvalidInput, in.Type)
	}
	if in.FromWalletID == uuid.Nil {
		return fmt.Errorf("%w: source wallet is required", domainerrors.ErrInvalidInput)
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = utils.GenerateUUIDv7().String()
	}
	return nil
}

// replay returns the stored outcome for a reused key, refusing a different request
func replay(existing *entities.Transaction, in TransferInput) (*entities.Transaction, error) {
	sameDest := (existing.ToWalletID == nil && in.ToWalletID == nil) ||
		(existing.ToWalletID != nil && in.ToWalletID != nil && *existing.ToWalletID == *in.ToWalletID)
	if existing.Type != in.Type || existing.Amount != in.Amount || !sameDest ||
		existing.FromWalletID == nil || *existing.FromWalletID != in.FromWalletID {
		return nil, domainerrors.Conflict("idempotency key was already used for a different request")
	}
	return existing, nil
}

func (e *TransferEngine) lookup(ctx context.Context, key string) (*entities.Transaction, error) {
	tx, err := e.txRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, domainerrors.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

// apply runs one attempt inside a single database transaction
func (e *TransferEngine) apply(ctx context.Context, in TransferInput) (*entities.Transaction, error) {
	var result *entities.Transaction
	err := e.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := e.uow.WithLock(txCtx)

		wallets, err := e.loadWallets(lockCtx, in)
		if err != nil {
			return err
		}
		from := wallets[in.FromWalletID]
		if from == nil {
			return domainerrors.ErrWalletNotFound
		}
		var to *entities.Wallet
		if in.ToWalletID != nil {
			if to = wallets[*in.ToWalletID]; to == nil {
				return domainerrors.ErrWalletNotFound
			}
		}

		if err := e.checkWallets(from, to); err != nil {
			return err
		}
		if err := e.authorize(txCtx, in, from, to); err != nil {
			return err
		}

		rule, fee, err := e.fee(in, from, to)
		if err != nil {
			return err
		}
		debit, credit, err := split(rule, in.Amount, fee)
		if err != nil {
			return err
		}

		allowLocked := in.AdminOverride && in.Actor.IsAdmin() && e.opts.AllowAdminOverride
		if from.IsLocked && !allowLocked {
			return domainerrors.ErrWalletLocked
		}
		if err := e.checkPin(in, from, to); err != nil {
			return err
		}
		if debit > from.Balance {
			return domainerrors.ErrInsufficientFunds
		}

		now := time.Now()
		tx := &entities.Transaction{
			ID:             utils.GenerateUUIDv7(),
			IdempotencyKey: in.IdempotencyKey,
			FromWalletID:   &from.ID,
			ToWalletID:     in.ToWalletID,
			Amount:         in.Amount,
			Fee:            fee,
			NetAmount:      credit,
			Currency:       from.Currency,
			Type:           in.Type,
			Status:         entities.TransactionStatusCompleted,
			InitiatedBy:    &in.Actor.UserID,
			Metadata:       in.Metadata,
			CreatedAt:      now,
			CompletedAt:    &now,
		}
		if in.Method != "" {
			tx.Method = null.StringFrom(in.Method)
		}
		if err := e.txRepo.Create(txCtx, tx); err != nil {
			return err
		}

		if _, err := e.store.Debit(txCtx, from, debit, tx.ID, allowLocked); err != nil {
			return err
		}
		if to != nil {
			if _, err := e.store.Credit(txCtx, to, credit, tx.ID); err != nil {
				return err
			}
		}
		if fee > 0 {
			if platform := wallets[e.opts.PlatformWalletID]; platform != nil {
				if _, err := e.store.Credit(txCtx, platform, fee, tx.ID); err != nil {
					return err
				}
			}
		}

		if in.Type == entities.TransactionTypeContribution {
			if err := e.memberRepo.RecordContribution(txCtx, *to.ChamaID, contributorID(in, from), credit, now); err != nil {
				return err
			}
		}

		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadWallets reads every wallet the movement touches with row locks, in id order
func (e *TransferEngine) loadWallets(lockCtx context.Context, in TransferInput) (map[uuid.UUID]*entities.Wallet, error) {
	ids := []uuid.UUID{in.FromWalletID}
	if in.ToWalletID != nil {
		ids = append(ids, *in.ToWalletID)
	}
	platformID := e.opts.PlatformWalletID
	if platformID != uuid.Nil {
		ids = append(ids, platformID)
	}

	wallets := make(map[uuid.UUID]*entities.Wallet, len(ids))
	for _, id := range sortedWalletIDs(ids...) {
		wallet, err := e.walletRepo.GetByID(lockCtx, id)
		if err != nil {
			if id == platformID && errors.Is(err, domainerrors.ErrWalletNotFound) {
				logger.Warn(lockCtx, "Platform fee wallet not found, fee leaves the ledger",
					zap.String("wallet_id", id.String()))
				continue
			}
			return nil, err
		}
		wallets[id] = wallet
	}
	return wallets, nil
}

func (e *TransferEngine) checkWallets(from, to *entities.Wallet) error {
	if !from.IsActive {
		return domainerrors.ErrWalletInactive
	}
	if to == nil {
		return nil
	}
	if !to.IsActive {
		return domainerrors.ErrWalletInactive
	}
	if to.Currency != from.Currency {
		return domainerrors.ErrCurrencyMismatch
	}
	return nil
}

func (e *TransferEngine) authorize(ctx context.Context, in TransferInput, from, to *entities.Wallet) error {
	if err := e.policy.canMove(ctx, in.Actor, from); err != nil {
		return err
	}

	perms := from.EffectivePermissions()
	if in.Type == entities.TransactionTypeConversion {
		if !perms.CanConvert {
			return domainerrors.ErrPermissionDenied
		}
	} else if !perms.CanSend {
		return domainerrors.ErrPermissionDenied
	}
	if to != nil && !to.EffectivePermissions().CanReceive {
		return domainerrors.ErrPermissionDenied
	}

	if in.Type != entities.TransactionTypeContribution {
		return nil
	}
	if to.Type != entities.WalletTypeChamaCentral || to.ChamaID == nil {
		return fmt.Errorf("%w: contributions must target a chama central wallet", domainerrors.ErrInvalidInput)
	}
	member, err := e.policy.activeMember(ctx, *to.ChamaID, contributorID(in, from))
	if err != nil {
		return err
	}
	if member == nil {
		return domainerrors.ErrPermissionDenied
	}
	return nil
}

func (e *TransferEngine) fee(in TransferInput, from, to *entities.Wallet) (entities.FeeRule, entities.Money, error) {
	if in.Type == entities.TransactionTypeWithdrawal {
		rule, err := e.fees.WithdrawalRule(in.Method)
		if err != nil {
			return rule, 0, err
		}
		fee, err := e.fees.ComputeWithdrawalFee(in.Method, in.Amount)
		return rule, fee, err
	}
	if in.Type == entities.TransactionTypeTransfer && sameOwner(from, to) {
		return entities.NoFee(), 0, nil
	}
	rule, err := e.fees.Rule(in.Type)
	if err != nil {
		return rule, 0, err
	}
	fee, err := e.fees.ComputeFee(in.Type, in.Amount)
	return rule, fee, err
}

// checkPin guards movements that leave the owner's hands
func (e *TransferEngine) checkPin(in TransferInput, from, to *entities.Wallet) error {
	if !from.HasPin() {
		return nil
	}
	leavesOwner := in.Type == entities.TransactionTypeWithdrawal ||
		(in.Type == entities.TransactionTypeTransfer && !sameOwner(from, to))
	if !leavesOwner {
		return nil
	}
	if in.Actor.IsAdmin() && in.Actor.UserID != from.OwnerID {
		return nil
	}
	if !crypto.CheckPin(in.Pin, from.PinHash) {
		return domainerrors.ErrInvalidPin
	}
	return nil
}

func sameOwner(a, b *entities.Wallet) bool {
	return a != nil && b != nil && a.OwnerType == b.OwnerType && a.OwnerID == b.OwnerID
}

func contributorID(in TransferInput, from *entities.Wallet) uuid.UUID {
	if from.OwnerType == entities.OwnerTypeUser {
		return from.OwnerID
	}
	return in.Actor.UserID
}
