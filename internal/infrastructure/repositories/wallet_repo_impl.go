package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/infrastructure/models"
)

// WalletRepository implements wallet data operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	now := time.Now()
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = now
	}
	wallet.UpdatedAt = now

	m := toWalletModel(wallet)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a wallet by ID. Inside a locked UnitOfWork context the row is locked.
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var m models.Wallet
	if err := lockingDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrWalletNotFound
		}
		return nil, err
	}
	return toWalletEntity(&m), nil
}

// GetByOwner lists wallets owned by a user or chama
func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Wallet, error) {
	var ms []models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toWalletEntities(ms), nil
}

// ListByChama lists every active wallet scoped to a chama
func (r *WalletRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.Wallet, error) {
	var ms []models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chama_id = ? AND is_active = ?", chamaID, true).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toWalletEntities(ms), nil
}

// UpdateBalance overwrites the stored balance
func (r *WalletRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance entities.Money) error {
	if balance < 0 {
		return domainerrors.ErrInsufficientFunds
	}
	return r.update(ctx, id, map[string]interface{}{"balance": int64(balance)})
}

// SetLock sets the fund lock flag
func (r *WalletRepository) SetLock(ctx context.Context, id uuid.UUID, locked bool, lockedBy *uuid.UUID) error {
	var lockedByValue interface{}
	if locked && lockedBy != nil {
		lockedByValue = *lockedBy
	}
	return r.update(ctx, id, map[string]interface{}{
		"is_locked": locked,
		"locked_by": lockedByValue,
	})
}

// UpdatePermissions replaces the sub-account permission flags
func (r *WalletRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, perms entities.WalletPermissions) error {
	return r.update(ctx, id, map[string]interface{}{
		"can_view":    perms.CanView,
		"can_send":    perms.CanSend,
		"can_receive": perms.CanReceive,
		"can_convert": perms.CanConvert,
	})
}

// UpdatePin stores a new PIN hash
func (r *WalletRepository) UpdatePin(ctx context.Context, id uuid.UUID, pinHash string) error {
	return r.update(ctx, id, map[string]interface{}{"pin_hash": pinHash})
}

// Deactivate marks a wallet inactive; wallets are never hard-deleted
func (r *WalletRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": false})
}

func (r *WalletRepository) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrWalletNotFound
	}
	return nil
}

func toWalletModel(w *entities.Wallet) *models.Wallet {
	return &models.Wallet{
		ID:             w.ID,
		OwnerID:        w.OwnerID,
		OwnerType:      string(w.OwnerType),
		ChamaID:        w.ChamaID,
		ParentWalletID: w.ParentWalletID,
		Name:           w.Name,
		WalletType:     string(w.Type),
		Balance:        int64(w.Balance),
		Currency:       w.Currency,
		IsLocked:       w.IsLocked,
		LockedBy:       w.LockedBy,
		IsActive:       w.IsActive,
		CanView:        w.Permissions.CanView,
		CanSend:        w.Permissions.CanSend,
		CanReceive:     w.Permissions.CanReceive,
		CanConvert:     w.Permissions.CanConvert,
		PinHash:        w.PinHash,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func toWalletEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		OwnerType:      entities.OwnerType(m.OwnerType),
		ChamaID:        m.ChamaID,
		ParentWalletID: m.ParentWalletID,
		Name:           m.Name,
		Type:           entities.WalletType(m.WalletType),
		Balance:        entities.Money(m.Balance),
		Currency:       m.Currency,
		IsLocked:       m.IsLocked,
		LockedBy:       m.LockedBy,
		IsActive:       m.IsActive,
		Permissions: entities.WalletPermissions{
			CanView:    m.CanView,
			CanSend:    m.CanSend,
			CanReceive: m.CanReceive,
			CanConvert: m.CanConvert,
		},
		PinHash:   m.PinHash,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toWalletEntities(ms []models.Wallet) []*entities.Wallet {
	wallets := make([]*entities.Wallet, 0, len(ms))
	for i := range ms {
		wallets = append(wallets, toWalletEntity(&ms[i]))
	}
	return wallets
}
