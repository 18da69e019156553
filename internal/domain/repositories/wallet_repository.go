package repositories

import (
	"context"

	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/pkg/utils"
)

// WalletRepository defines wallet data operations.
// Balance writes must happen inside a UnitOfWork after a locked read.
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Wallet, error)
	ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.Wallet, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance entities.Money) error
	SetLock(ctx context.Context, id uuid.UUID, locked bool, lockedBy *uuid.UUID) error
	UpdatePermissions(ctx context.Context, id uuid.UUID, perms entities.WalletPermissions) error
	UpdatePin(ctx context.Context, id uuid.UUID, pinHash string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// LedgerEntryRepository is append-only
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *entities.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error)
}
