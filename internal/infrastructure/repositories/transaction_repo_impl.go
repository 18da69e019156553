package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	domainRepos "chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/internal/infrastructure/models"
	"chama-ledger.backend/pkg/utils"
)

// TransactionRepository implements ledger transaction data operations
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction row. Duplicate idempotency keys or external
// references surface as ErrAlreadyExists.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	m, err := toTransactionModel(tx)
	if err != nil {
		return err
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIdempotencyKey gets the transaction created for an idempotency key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

// GetByExternalReference gets the transaction for a gateway reference.
// Inside a locked UnitOfWork context the row is locked.
func (r *TransactionRepository) GetByExternalReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	return r.first(ctx, "external_reference = ?", reference)
}

func (r *TransactionRepository) first(ctx context.Context, query string, arg interface{}) (*entities.Transaction, error) {
	var m models.Transaction
	if err := lockingDB(ctx, r.db).WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionEntity(&m), nil
}

// ListByWallet lists transactions touching a wallet, newest first
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.Transaction, int64, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	var total int64
	if err := db.Model(&models.Transaction{}).
		Where("from_wallet_id = ? OR to_wallet_id = ?", walletID, walletID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Where("from_wallet_id = ? OR to_wallet_id = ?", walletID, walletID).
		Order("created_at DESC")
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var ms []models.Transaction
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*entities.Transaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, toTransactionEntity(&ms[i]))
	}
	return txs, total, nil
}

// ListStalePending returns gateway-backed pending rows created before a cutoff
func (r *TransactionRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Transaction, error) {
	var ms []models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("status = ? AND external_reference IS NOT NULL AND created_at < ?", entities.TransactionStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	txs := make([]*entities.Transaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, toTransactionEntity(&ms[i]))
	}
	return txs, nil
}

// Transition is a check-and-set status update: it only applies while the row is still in from
func (r *TransactionRepository) Transition(ctx context.Context, id uuid.UUID, from, to entities.TransactionStatus, t domainRepos.TransactionTransition) (bool, error) {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	updates := map[string]interface{}{
		"status": string(to),
	}
	if to.IsTerminal() {
		updates["completed_at"] = at
	}
	if to == entities.TransactionStatusCompleted {
		updates["fee"] = int64(t.Fee)
		updates["net_amount"] = int64(t.NetAmount)
	}
	if t.FailureReason != "" {
		updates["failure_reason"] = t.FailureReason
	}

	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func toTransactionModel(tx *entities.Transaction) (*models.Transaction, error) {
	metadata := "{}"
	if len(tx.Metadata) > 0 {
		raw, err := json.Marshal(tx.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(raw)
	}

	return &models.Transaction{
		ID:                tx.ID,
		IdempotencyKey:    tx.IdempotencyKey,
		FromWalletID:      tx.FromWalletID,
		ToWalletID:        tx.ToWalletID,
		Amount:            int64(tx.Amount),
		Fee:               int64(tx.Fee),
		NetAmount:         int64(tx.NetAmount),
		Currency:          tx.Currency,
		TransactionType:   string(tx.Type),
		Status:            string(tx.Status),
		ExternalReference: tx.ExternalReference.Ptr(),
		Method:            tx.Method.Ptr(),
		InitiatedBy:       tx.InitiatedBy,
		FailureReason:     tx.FailureReason.Ptr(),
		Metadata:          metadata,
		CreatedAt:         tx.CreatedAt,
		CompletedAt:       tx.CompletedAt,
	}, nil
}

func toTransactionEntity(m *models.Transaction) *entities.Transaction {
	tx := &entities.Transaction{
		ID:                m.ID,
		IdempotencyKey:    m.IdempotencyKey,
		FromWalletID:      m.FromWalletID,
		ToWalletID:        m.ToWalletID,
		Amount:            entities.Money(m.Amount),
		Fee:               entities.Money(m.Fee),
		NetAmount:         entities.Money(m.NetAmount),
		Currency:          m.Currency,
		Type:              entities.TransactionType(m.TransactionType),
		Status:            entities.TransactionStatus(m.Status),
		ExternalReference: null.StringFromPtr(m.ExternalReference),
		Method:            null.StringFromPtr(m.Method),
		InitiatedBy:       m.InitiatedBy,
		FailureReason:     null.StringFromPtr(m.FailureReason),
		CreatedAt:         m.CreatedAt,
		CompletedAt:       m.CompletedAt,
	}
	if m.Metadata != "" && m.Metadata != "{}" {
		var md map[string]string
		if err := json.Unmarshal([]byte(m.Metadata), &md); err == nil {
			tx.Metadata = md
		}
	}
	return tx
}
