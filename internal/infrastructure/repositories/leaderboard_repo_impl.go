package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/internal/infrastructure/models"
)

// LeaderboardRepository stores derived leaderboard rows
type LeaderboardRepository struct {
	db *gorm.DB
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Replace swaps the chama's rows for entries. Callers wrap it in a UnitOfWork.
func (r *LeaderboardRepository) Replace(ctx context.Context, chamaID uuid.UUID, entries []*entities.LeaderboardEntry) error {
	db := GetDB(ctx, r.db).WithContext(ctx)
	if err := db.Where("chama_id = ?", chamaID).Delete(&models.LeaderboardEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	ms := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		ms = append(ms, models.LeaderboardEntry{
			ChamaID:              e.ChamaID,
			UserID:               e.UserID,
			NetWorth:             int64(e.NetWorth),
			RankPosition:         e.RankPosition,
			LastContributionDate: e.LastContributionDate.Ptr(),
			CalculatedAt:         e.CalculatedAt,
		})
	}
	return db.Create(&ms).Error
}

// ListByChama returns stored rows in rank order
func (r *LeaderboardRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.LeaderboardEntry, error) {
	var ms []models.LeaderboardEntry
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chama_id = ?", chamaID).
		Order("rank_position ASC, user_id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	entries := make([]*entities.LeaderboardEntry, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, &entities.LeaderboardEntry{
			ChamaID:              m.ChamaID,
			UserID:               m.UserID,
			NetWorth:             entities.Money(m.NetWorth),
			RankPosition:         m.RankPosition,
			LastContributionDate: null.TimeFromPtr(m.LastContributionDate),
			CalculatedAt:         m.CalculatedAt,
		})
	}
	return entries, nil
}
