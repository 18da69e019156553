package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/utils"
)

// ChamaUsecase handles chama membership
type ChamaUsecase struct {
	uow        repositories.UnitOfWork
	memberRepo repositories.ChamaMemberRepository
	policy     accessPolicy
}

// NewChamaUsecase creates a new chama usecase
func NewChamaUsecase(uow repositories.UnitOfWork, memberRepo repositories.ChamaMemberRepository) *ChamaUsecase {
	return &ChamaUsecase{
		uow:        uow,
		memberRepo: memberRepo,
		policy:     accessPolicy{members: memberRepo},
	}
}

// AddMember adds a user to a chama. The first member founds the chama as its admin.
func (u *ChamaUsecase) AddMember(ctx context.Context, chamaID uuid.UUID, input *entities.AddMemberInput, actor entities.Actor) (*entities.ChamaMember, error) {
	if chamaID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, domainerrors.ErrInvalidInput
	}
	role := input.Role
	if role == "" {
		role = entities.ChamaRoleMember
	}
	if !role.Valid() {
		return nil, domainerrors.BadRequest("unknown chama role")
	}

	var member *entities.ChamaMember
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		count, err := u.memberRepo.CountByChama(txCtx, chamaID)
		if err != nil {
			return err
		}

		if count == 0 {
			if input.UserID != actor.UserID && !actor.IsAdmin() {
				return domainerrors.ErrForbidden
			}
			role = entities.ChamaRoleAdmin
		} else {
			ok, err := u.policy.isChamaAdmin(txCtx, actor, chamaID)
			if err != nil {
				return err
			}
			if !ok {
				return domainerrors.ErrForbidden
			}
		}

		member = &entities.ChamaMember{
			ID:       utils.GenerateUUIDv7(),
			ChamaID:  chamaID,
			UserID:   input.UserID,
			Role:     role,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		return u.memberRepo.Create(txCtx, member)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Chama member added",
		zap.String("chama_id", chamaID.String()),
		zap.String("user_id", member.UserID.String()),
		zap.String("role", string(member.Role)),
	)
	return member, nil
}

// ListMembers lists a chama's members for one of its members
func (u *ChamaUsecase) ListMembers(ctx context.Context, chamaID uuid.UUID, actor entities.Actor) ([]*entities.ChamaMember, error) {
	if !actor.IsAdmin() {
		member, err := u.policy.activeMember(ctx, chamaID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, domainerrors.ErrForbidden
		}
	}
	return u.memberRepo.ListByChama(ctx, chamaID)
}
