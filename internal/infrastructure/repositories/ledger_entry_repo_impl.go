package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/internal/infrastructure/models"
	"chama-ledger.backend/pkg/utils"
)

// LedgerEntryRepository appends and reads wallet postings
type LedgerEntryRepository struct {
	db *gorm.DB
}

// NewLedgerEntryRepository creates a new ledger entry repository
func NewLedgerEntryRepository(db *gorm.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

// Create appends a posting
func (r *LedgerEntryRepository) Create(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(&models.LedgerEntry{
		ID:            entry.ID,
		TransactionID: entry.TransactionID,
		WalletID:      entry.WalletID,
		Direction:     string(entry.Direction),
		Amount:        int64(entry.Amount),
		BalanceAfter:  int64(entry.BalanceAfter),
		CreatedAt:     entry.CreatedAt,
	}).Error
}

// ListByWallet lists postings for a wallet, newest first
func (r *LedgerEntryRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	var total int64
	if err := db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Where("wallet_id = ?", walletID).Order("created_at DESC")
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var ms []models.LedgerEntry
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toLedgerEntries(ms), total, nil
}

// ListByTransaction lists the postings of one transaction
func (r *LedgerEntryRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	var ms []models.LedgerEntry
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toLedgerEntries(ms), nil
}

func toLedgerEntries(ms []models.LedgerEntry) []*entities.LedgerEntry {
	entries := make([]*entities.LedgerEntry, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, &entities.LedgerEntry{
			ID:            m.ID,
			TransactionID: m.TransactionID,
			WalletID:      m.WalletID,
			Direction:     entities.EntryDirection(m.Direction),
			Amount:        entities.Money(m.Amount),
			BalanceAfter:  entities.Money(m.BalanceAfter),
			CreatedAt:     m.CreatedAt,
		})
	}
	return entries
}
