package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/infrastructure/models"
)

// ChamaMemberRepository implements chama membership data operations
type ChamaMemberRepository struct {
	db *gorm.DB
}

// NewChamaMemberRepository creates a new chama member repository
func NewChamaMemberRepository(db *gorm.DB) *ChamaMemberRepository {
	return &ChamaMemberRepository{db: db}
}

// Create adds a member
func (r *ChamaMemberRepository) Create(ctx context.Context, member *entities.ChamaMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	err := GetDB(ctx, r.db).WithContext(ctx).Create(&models.ChamaMember{
		ID:                   member.ID,
		ChamaID:              member.ChamaID,
		UserID:               member.UserID,
		Role:                 string(member.Role),
		TotalContributions:   int64(member.TotalContributions),
		LastContributionDate: member.LastContributionDate.Ptr(),
		IsActive:             member.IsActive,
		JoinedAt:             member.JoinedAt,
	}).Error
	if isUniqueViolation(err) {
		return domainerrors.ErrAlreadyExists
	}
	return err
}

// Get gets one membership
func (r *ChamaMemberRepository) Get(ctx context.Context, chamaID, userID uuid.UUID) (*entities.ChamaMember, error) {
	var m models.ChamaMember
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chama_id = ? AND user_id = ?", chamaID, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toChamaMemberEntity(&m), nil
}

// ListByChama lists members ordered by join date
func (r *ChamaMemberRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.ChamaMember, error) {
	var ms []models.ChamaMember
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chama_id = ?", chamaID).
		Order("joined_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	members := make([]*entities.ChamaMember, 0, len(ms))
	for i := range ms {
		members = append(members, toChamaMemberEntity(&ms[i]))
	}
	return members, nil
}

// CountByChama counts members of a chama
func (r *ChamaMemberRepository) CountByChama(ctx context.Context, chamaID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.ChamaMember{}).
		Where("chama_id = ?", chamaID).
		Count(&total).Error
	return total, err
}

// RecordContribution bumps the cumulative counter and last contribution date
func (r *ChamaMemberRepository) RecordContribution(ctx context.Context, chamaID, userID uuid.UUID, amount entities.Money, at time.Time) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.ChamaMember{}).
		Where("chama_id = ? AND user_id = ?", chamaID, userID).
		Updates(map[string]interface{}{
			"total_contributions":    gorm.Expr("total_contributions + ?", int64(amount)),
			"last_contribution_date": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toChamaMemberEntity(m *models.ChamaMember) *entities.ChamaMember {
	return &entities.ChamaMember{
		ID:                   m.ID,
		ChamaID:              m.ChamaID,
		UserID:               m.UserID,
		Role:                 entities.ChamaRole(m.Role),
		TotalContributions:   entities.Money(m.TotalContributions),
		LastContributionDate: null.TimeFromPtr(m.LastContributionDate),
		IsActive:             m.IsActive,
		JoinedAt:             m.JoinedAt,
	}
}
