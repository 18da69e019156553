package usecases

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/utils"
)

// WalletStore owns balance mutation. Credit and Debit only run inside a
// UnitOfWork and expect the wallet to have been read with a row lock.
type WalletStore struct {
	uow        repositories.UnitOfWork
	walletRepo repositories.WalletRepository
	entryRepo  repositories.LedgerEntryRepository
	policy     accessPolicy
	locker     *walletLocker
}

// NewWalletStore creates a new wallet store
func NewWalletStore(
	uow repositories.UnitOfWork,
	walletRepo repositories.WalletRepository,
	entryRepo repositories.LedgerEntryRepository,
	memberRepo repositories.ChamaMemberRepository,
) *WalletStore {
	return &WalletStore{
		uow:        uow,
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		policy:     accessPolicy{members: memberRepo},
		locker:     newWalletLocker(),
	}
}

// lockWallets serializes in-process movements on the given wallets
func (s *WalletStore) lockWallets(ids ...uuid.UUID) func() {
	return s.locker.Lock(ids...)
}

// GetBalance returns the current balance of walletID
func (s *WalletStore) GetBalance(ctx context.Context, walletID uuid.UUID) (entities.Money, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// GetBalanceFor is GetBalance behind the view check
func (s *WalletStore) GetBalanceFor(ctx context.Context, walletID uuid.UUID, actor entities.Actor) (*entities.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.canView(ctx, actor, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Credit adds amount to wallet and appends a ledger entry
func (s *WalletStore) Credit(ctx context.Context, wallet *entities.Wallet, amount entities.Money, transactionID uuid.UUID) (*entities.LedgerEntry, error) {
	if !s.uow.InTx(ctx) {
		return nil, fmt.Errorf("%w: credit outside a unit of work", domainerrors.ErrTransferFailed)
	}
	if !amount.IsPositive() || wallet.Balance > entities.Money(math.MaxInt64)-amount {
		return nil, domainerrors.ErrInvalidAmount
	}
	return s.post(ctx, wallet, entities.EntryCredit, amount, wallet.Balance+amount, transactionID)
}

// Debit removes amount from wallet and appends a ledger entry. allowLocked
// is only set for a platform admin override.
func (s *WalletStore) Debit(ctx context.Context, wallet *entities.Wallet, amount entities.Money, transactionID uuid.UUID, allowLocked bool) (*entities.LedgerEntry, error) {
	if !s.uow.InTx(ctx) {
		return nil, fmt.Errorf("%w: debit outside a unit of work", domainerrors.ErrTransferFailed)
	}
	if !amount.IsPositive() {
		return nil, domainerrors.ErrInvalidAmount
	}
	if wallet.IsLocked && !allowLocked {
		return nil, domainerrors.ErrWalletLocked
	}
	if amount > wallet.Balance {
		return nil, domainerrors.ErrInsufficientFunds
	}
	return s.post(ctx, wallet, entities.EntryDebit, amount, wallet.Balance-amount, transactionID)
}

func (s *WalletStore) post(ctx context.Context, wallet *entities.Wallet, direction entities.EntryDirection, amount, balanceAfter entities.Money, transactionID uuid.UUID) (*entities.LedgerEntry, error) {
	if err := s.walletRepo.UpdateBalance(ctx, wallet.ID, balanceAfter); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		ID:            utils.GenerateUUIDv7(),
		TransactionID: transactionID,
		WalletID:      wallet.ID,
		Direction:     direction,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		CreatedAt:     time.Now(),
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	wallet.Balance = balanceAfter
	return entry, nil
}

// SetLock toggles the fund lock. Platform admins may lock any wallet, chama
// admins may lock wallets scoped to their chama.
func (s *WalletStore) SetLock(ctx context.Context, walletID uuid.UUID, locked bool, actor entities.Actor) (*entities.Wallet, error) {
	var updated *entities.Wallet
	err := s.uow.Do(ctx, func(txCtx context.Context) error {
		wallet, err := s.walletRepo.GetByID(s.uow.WithLock(txCtx), walletID)
		if err != nil {
			return err
		}
		if err := s.canLock(txCtx, actor, wallet); err != nil {
			return err
		}

		var lockedBy *uuid.UUID
		if locked {
			lockedBy = &actor.UserID
		}
		if err := s.walletRepo.SetLock(txCtx, walletID, locked, lockedBy); err != nil {
			return err
		}

		wallet.IsLocked = locked
		wallet.LockedBy = lockedBy
		updated = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Wallet lock updated",
		zap.String("wallet_id", walletID.String()),
		zap.Bool("locked", locked),
		zap.String("actor_id", actor.UserID.String()),
	)
	return updated, nil
}

func (s *WalletStore) canLock(ctx context.Context, actor entities.Actor, wallet *entities.Wallet) error {
	if actor.IsAdmin() {
		return nil
	}
	chamaID := wallet.ChamaID
	if chamaID == nil && wallet.OwnerType == entities.OwnerTypeChama {
		chamaID = &wallet.OwnerID
	}
	if chamaID == nil {
		return domainerrors.ErrForbidden
	}
	ok, err := s.policy.isChamaAdmin(ctx, actor, *chamaID)
	if err != nil {
		return err
	}
	if !ok {
		return domainerrors.ErrForbidden
	}
	return nil
}
