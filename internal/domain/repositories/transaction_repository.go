package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/pkg/utils"
)

// TransactionTransition carries the fields set when a pending row resolves
type TransactionTransition struct {
	Fee           entities.Money
	NetAmount     entities.Money
	FailureReason string
	At            time.Time
}

// TransactionRepository defines ledger transaction data operations.
// Create returns domainerrors.ErrAlreadyExists when the idempotency key or
// external reference is taken.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error)
	GetByExternalReference(ctx context.Context, reference string) (*entities.Transaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.Transaction, int64, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Transaction, error)
	// Transition moves a row from one status to another only if it is still in
	// from. It reports false when another writer got there first.
	Transition(ctx context.Context, id uuid.UUID, from, to entities.TransactionStatus, t TransactionTransition) (bool, error)
}
