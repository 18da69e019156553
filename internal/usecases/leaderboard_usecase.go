package usecases

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/redis"
)

var (
	cacheGetJSON = redis.GetJSON
	cacheSetJSON = redis.SetJSON
	cacheIsMiss  = redis.IsNil
)

// LeaderboardUsecase ranks chama members by their wallet balances within the chama
type LeaderboardUsecase struct {
	uow        repositories.UnitOfWork
	memberRepo repositories.ChamaMemberRepository
	walletRepo repositories.WalletRepository
	boardRepo  repositories.LeaderboardRepository
	policy     accessPolicy
	cacheTTL   time.Duration
	observer   LedgerObserver
}

// NewLeaderboardUsecase creates a new leaderboard usecase
func NewLeaderboardUsecase(
	uow repositories.UnitOfWork,
	memberRepo repositories.ChamaMemberRepository,
	walletRepo repositories.WalletRepository,
	boardRepo repositories.LeaderboardRepository,
	cacheTTL time.Duration,
	observer LedgerObserver,
) *LeaderboardUsecase {
	return &LeaderboardUsecase{
		uow:        uow,
		memberRepo: memberRepo,
		walletRepo: walletRepo,
		boardRepo:  boardRepo,
		policy:     accessPolicy{members: memberRepo},
		cacheTTL:   cacheTTL,
		observer:   observerOrNoop(observer),
	}
}

func leaderboardCacheKey(chamaID uuid.UUID) string {
	return fmt.Sprintf("leaderboard:%s", chamaID)
}

// Recompute rebuilds the ranking for chamaID and replaces the stored rows
func (u *LeaderboardUsecase) Recompute(ctx context.Context, chamaID uuid.UUID) ([]*entities.LeaderboardEntry, error) {
	entries, err := u.recompute(ctx, chamaID)
	u.observer.ObserveLeaderboardRecompute(err)
	if err != nil {
		return nil, err
	}

	if err := cacheSetJSON(ctx, leaderboardCacheKey(chamaID), entries, u.cacheTTL); err != nil {
		logger.Warn(ctx, "Leaderboard cache write failed", zap.String("chama_id", chamaID.String()), zap.Error(err))
	}
	return entries, nil
}

// RecomputeFor is Recompute restricted to chama admins
func (u *LeaderboardUsecase) RecomputeFor(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.LeaderboardEntry, error) {
	ok, err := u.policy.isChamaAdmin(ctx, actor, chamaID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.ErrForbidden
	}
	return u.Recompute(ctx, chamaID)
}

func (u *LeaderboardUsecase) recompute(ctx context.Context, chamaID uuid.UUID) ([]*entities.LeaderboardEntry, error) {
	members, err := u.memberRepo.ListByChama(ctx, chamaID)
	if err != nil {
		return nil, err
	}
	wallets, err := u.walletRepo.ListByChama(ctx, chamaID)
	if err != nil {
		return nil, err
	}

	holdings := make(map[uuid.UUID]entities.Money)
	for _, w := range wallets {
		if w.OwnerType == entities.OwnerTypeUser && w.IsActive {
			holdings[w.OwnerID] += w.Balance
		}
	}

	now := time.Now()
	entries := make([]*entities.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		if !m.IsActive {
			continue
		}
		entries = append(entries, &entities.LeaderboardEntry{
			ChamaID:              chamaID,
			UserID:               m.UserID,
			NetWorth:             holdings[m.UserID],
			LastContributionDate: m.LastContributionDate,
			CalculatedAt:         now,
		})
	}
	rank(entries)

	if err := u.uow.Do(ctx, func(txCtx context.Context) error {
		return u.boardRepo.Replace(txCtx, chamaID, entries)
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Leaderboard recomputed", zap.String("chama_id", chamaID.String()), zap.Int("members", len(entries)))
	return entries, nil
}

// rank orders by net worth, then earliest contribution (none last), then user id.
// Rows equal on net worth and contribution date share a dense rank.
func rank(entries []*entities.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.NetWorth != b.NetWorth {
			return a.NetWorth > b.NetWorth
		}
		if c := compareContributionDates(a, b); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.UserID[:], b.UserID[:]) < 0
	})

	position := 0
	for i, e := range entries {
		if i == 0 || e.NetWorth != entries[i-1].NetWorth || compareContributionDates(e, entries[i-1]) != 0 {
			position++
		}
		e.RankPosition = position
	}
}

func compareContributionDates(a, b *entities.LeaderboardEntry) int {
	switch {
	case !a.LastContributionDate.Valid && !b.LastContributionDate.Valid:
		return 0
	case !a.LastContributionDate.Valid:
		return 1
	case !b.LastContributionDate.Valid:
		return -1
	case a.LastContributionDate.Time.Before(b.LastContributionDate.Time):
		return -1
	case b.LastContributionDate.Time.Before(a.LastContributionDate.Time):
		return 1
	}
	return 0
}

// Get serves the cached ranking, falling back to stored rows and then a recompute
func (u *LeaderboardUsecase) Get(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.LeaderboardEntry, error) {
	if !actor.IsAdmin() {
		member, err := u.policy.activeMember(ctx, chamaID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, domainerrors.ErrForbidden
		}
	}

	var cached []*entities.LeaderboardEntry
	err := cacheGetJSON(ctx, leaderboardCacheKey(chamaID), &cached)
	if err == nil {
		return cached, nil
	}
	if !cacheIsMiss(err) {
		logger.Warn(ctx, "Leaderboard cache read failed", zap.String("chama_id", chamaID.String()), zap.Error(err))
	}

	stored, err := u.boardRepo.ListByChama(ctx, chamaID)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		if err := cacheSetJSON(ctx, leaderboardCacheKey(chamaID), stored, u.cacheTTL); err != nil {
			logger.Warn(ctx, "Leaderboard cache write failed", zap.String("chama_id", chamaID.String()), zap.Error(err))
		}
		return stored, nil
	}
	return u.Recompute(ctx, chamaID)
}
