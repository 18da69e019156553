package usecases

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/domain/repositories"
)

// accessPolicy answers who may see or move a wallet
type accessPolicy struct {
	members repositories.ChamaMemberRepository
}

func (p accessPolicy) activeMember(ctx context.Context, chamaID, userID uuid.UUID) (*entities.ChamaMember, error) {
	member, err := p.members.Get(ctx, chamaID, userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !member.IsActive {
		return nil, nil
	}
	return member, nil
}

// isChamaAdmin reports whether actor administers chamaID
func (p accessPolicy) isChamaAdmin(ctx context.Context, actor entities.Actor, chamaID uuid.UUID) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	member, err := p.activeMember(ctx, chamaID, actor.UserID)
	if err != nil || member == nil {
		return false, err
	}
	return member.Role == entities.ChamaRoleAdmin, nil
}

// canMove checks the actor may move money out of wallet
func (p accessPolicy) canMove(ctx context.Context, actor entities.Actor, wallet *entities.Wallet) error {
	if actor.IsAdmin() {
		return nil
	}
	switch wallet.OwnerType {
	case entities.OwnerTypeUser:
		if wallet.OwnerID == actor.UserID {
			return nil
		}
	case entities.OwnerTypeChama:
		member, err := p.activeMember(ctx, wallet.OwnerID, actor.UserID)
		if err != nil {
			return err
		}
		if member != nil && member.Role.CanMoveFunds() {
			return nil
		}
	}
	return domainerrors.ErrPermissionDenied
}

// canView checks the actor may read wallet state
func (p accessPolicy) canView(ctx context.Context, actor entities.Actor, wallet *entities.Wallet) error {
	if actor.IsAdmin() {
		return nil
	}
	if wallet.OwnerType == entities.OwnerTypeUser && wallet.OwnerID == actor.UserID {
		return nil
	}

	chamaID := wallet.ChamaID
	if chamaID == nil && wallet.OwnerType == entities.OwnerTypeChama {
		chamaID = &wallet.OwnerID
	}
	if chamaID != nil {
		member, err := p.activeMember(ctx, *chamaID, actor.UserID)
		if err != nil {
			return err
		}
		if member != nil {
			return nil
		}
	}
	return domainerrors.ErrForbidden
}
