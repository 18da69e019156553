package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
)

// ChamaMemberRepository defines chama membership data operations
type ChamaMemberRepository interface {
	Create(ctx context.Context, member *entities.ChamaMember) error
	Get(ctx context.Context, chamaID, userID uuid.UUID) (*entities.ChamaMember, error)
	ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.ChamaMember, error)
	CountByChama(ctx context.Context, chamaID uuid.UUID) (int64, error)
	RecordContribution(ctx context.Context, chamaID, userID uuid.UUID, amount entities.Money, at time.Time) error
}

// LeaderboardRepository stores derived ranking rows
type LeaderboardRepository interface {
	Replace(ctx context.Context, chamaID uuid.UUID, entries []*entities.LeaderboardEntry) error
	ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*entities.LeaderboardEntry, error)
}
