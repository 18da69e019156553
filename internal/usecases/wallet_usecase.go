package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/crypto"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/utils"
)

// WalletUsecase handles wallet administration and history
type WalletUsecase struct {
	uow             repositories.UnitOfWork
	walletRepo      repositories.WalletRepository
	txRepo          repositories.TransactionRepository
	policy          accessPolicy
	defaultCurrency string
	pendingWindow   time.Duration
}

// NewWalletUsecase creates a new wallet usecase
func NewWalletUsecase(
	uow repositories.UnitOfWork,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	memberRepo repositories.ChamaMemberRepository,
	defaultCurrency string,
	pendingWindow time.Duration,
) *WalletUsecase {
	return &WalletUsecase{
		uow:             uow,
		walletRepo:      walletRepo,
		txRepo:          txRepo,
		policy:          accessPolicy{members: memberRepo},
		defaultCurrency: defaultCurrency,
		pendingWindow:   pendingWindow,
	}
}

// CreateWallet opens a wallet for the actor (or for a chama the actor administers)
func (u *WalletUsecase) CreateWallet(ctx context.Context, input *entities.CreateWalletInput, actor entities.Actor) (*entities.Wallet, error) {
	if !input.Type.Valid() {
		return nil, domainerrors.BadRequest("unknown wallet type")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = u.defaultCurrency
	}
	if len(currency) != 3 {
		return nil, domainerrors.BadRequest("currency must be a 3-letter code")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = string(input.Type)
	}

	wallet := &entities.Wallet{
		ID:          utils.GenerateUUIDv7(),
		OwnerID:     actor.UserID,
		OwnerType:   entities.OwnerTypeUser,
		Name:        name,
		Type:        input.Type,
		Currency:    currency,
		IsActive:    true,
		Permissions: entities.FullPermissions(),
	}

	switch input.Type {
	case entities.WalletTypeChamaCentral:
		if input.ChamaID == nil {
			return nil, domainerrors.BadRequest("chamaId is required")
		}
		ok, err := u.policy.isChamaAdmin(ctx, actor, *input.ChamaID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domainerrors.ErrForbidden
		}
		wallet.OwnerID = *input.ChamaID
		wallet.OwnerType = entities.OwnerTypeChama
		wallet.ChamaID = input.ChamaID

	case entities.WalletTypeChamaViewOnly, entities.WalletTypeMGR:
		if input.ChamaID == nil {
			return nil, domainerrors.BadRequest("chamaId is required")
		}
		member, err := u.policy.activeMember(ctx, *input.ChamaID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, domainerrors.ErrForbidden
		}
		wallet.ChamaID = input.ChamaID

	case entities.WalletTypeSubAccount:
		if input.ParentWalletID == nil {
			return nil, domainerrors.BadRequest("parentWalletId is required")
		}
		parent, err := u.walletRepo.GetByID(ctx, *input.ParentWalletID)
		if err != nil {
			return nil, err
		}
		if parent.OwnerType != entities.OwnerTypeUser || parent.OwnerID != actor.UserID {
			return nil, domainerrors.ErrForbidden
		}
		if parent.Currency != currency {
			return nil, domainerrors.ErrCurrencyMismatch
		}
		wallet.ParentWalletID = input.ParentWalletID
		wallet.Permissions = entities.WalletPermissions{CanView: true, CanReceive: true}
		if input.Permissions != nil {
			wallet.Permissions = *input.Permissions
		}

	case entities.WalletTypePlatform:
		if !actor.IsAdmin() {
			return nil, domainerrors.ErrForbidden
		}
		wallet.OwnerID = uuid.Nil
		wallet.OwnerType = entities.OwnerTypePlatform
	}

	if err := u.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Wallet created",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("wallet_type", string(wallet.Type)),
		zap.String("owner_id", wallet.OwnerID.String()),
	)
	return wallet, nil
}

// ListWallets lists the actor's wallets
func (u *WalletUsecase) ListWallets(ctx context.Context, actor entities.Actor) ([]*entities.Wallet, error) {
	return u.walletRepo.GetByOwner(ctx, actor.UserID)
}

// GetWallet returns a wallet the actor can view
func (u *WalletUsecase) GetWallet(ctx context.Context, walletID uuid.UUID, actor entities.Actor) (*entities.Wallet, error) {
	wallet, err := u.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if err := u.policy.canView(ctx, actor, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// UpdatePermissions changes a sub-account's flags. Only the owner may do this.
func (u *WalletUsecase) UpdatePermissions(ctx context.Context, walletID uuid.UUID, perms entities.WalletPermissions, actor entities.Actor) (*entities.Wallet, error) {
	wallet, err := u.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if wallet.Type != entities.WalletTypeSubAccount {
		return nil, domainerrors.BadRequest("permissions apply to sub-accounts only")
	}
	if wallet.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, domainerrors.ErrForbidden
	}
	if err := u.walletRepo.UpdatePermissions(ctx, walletID, perms); err != nil {
		return nil, err
	}
	wallet.Permissions = perms
	return wallet, nil
}

// SetPin sets or rotates the transaction PIN. Rotation requires the current PIN.
func (u *WalletUsecase) SetPin(ctx context.Context, walletID uuid.UUID, input *entities.SetPinInput, actor entities.Actor) error {
	wallet, err := u.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if wallet.OwnerType != entities.OwnerTypeUser || wallet.OwnerID != actor.UserID {
		return domainerrors.ErrForbidden
	}
	if wallet.HasPin() && !crypto.CheckPin(input.CurrentPin, wallet.PinHash) {
		return domainerrors.ErrInvalidPin
	}

	hash, err := crypto.HashPin(input.Pin)
	if err != nil {
		return err
	}
	return u.walletRepo.UpdatePin(ctx, walletID, hash)
}

// Deactivate retires an empty wallet. Wallets are never deleted.
func (u *WalletUsecase) Deactivate(ctx context.Context, walletID uuid.UUID, actor entities.Actor) error {
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		wallet, err := u.walletRepo.GetByID(u.uow.WithLock(txCtx), walletID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && (wallet.OwnerType != entities.OwnerTypeUser || wallet.OwnerID != actor.UserID) {
			return domainerrors.ErrForbidden
		}
		if wallet.Balance != 0 {
			return domainerrors.ErrWalletNotEmpty
		}
		if !wallet.IsActive {
			return nil
		}
		return u.walletRepo.Deactivate(txCtx, walletID)
	})
}

// ListTransactions pages through the movements touching walletID
func (u *WalletUsecase) ListTransactions(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams, actor entities.Actor) ([]*entities.TransactionView, int64, error) {
	if _, err := u.GetWallet(ctx, walletID, actor); err != nil {
		return nil, 0, err
	}
	txs, total, err := u.txRepo.ListByWallet(ctx, walletID, pagination)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*entities.TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, newTransactionView(tx, u.pendingWindow))
	}
	return views, total, nil
}

// GetTransaction returns a movement the actor took part in
func (u *WalletUsecase) GetTransaction(ctx context.Context, id uuid.UUID, actor entities.Actor) (*entities.TransactionView, error) {
	tx, err := u.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (tx.InitiatedBy == nil || *tx.InitiatedBy != actor.UserID) {
		if !u.canViewAny(ctx, actor, tx.FromWalletID, tx.ToWalletID) {
			return nil, domainerrors.ErrTransactionNotFound
		}
	}
	return newTransactionView(tx, u.pendingWindow), nil
}

func (u *WalletUsecase) canViewAny(ctx context.Context, actor entities.Actor, ids ...*uuid.UUID) bool {
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, err := u.GetWallet(ctx, *id, actor); err == nil {
			return true
		}
	}
	return false
}
