package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ChamaRole is a member's role inside a chama
type ChamaRole string

const (
	ChamaRoleMember    ChamaRole = "member"
	ChamaRoleTreasurer ChamaRole = "treasurer"
	ChamaRoleAdmin     ChamaRole = "admin"
)

// Valid reports whether r is a known role
func (r ChamaRole) Valid() bool {
	return r == ChamaRoleMember || r == ChamaRoleTreasurer || r == ChamaRoleAdmin
}

// CanMoveFunds reports whether the role may move money out of chama-owned wallets
func (r ChamaRole) CanMoveFunds() bool {
	return r == ChamaRoleAdmin || r == ChamaRoleTreasurer
}

// ChamaMember tracks membership and cumulative contributions
type ChamaMember struct {
	ID                   uuid.UUID `json:"id"`
	ChamaID              uuid.UUID `json:"chamaId"`
	UserID               uuid.UUID `json:"userId"`
	Role                 ChamaRole `json:"role"`
	TotalContributions   Money     `json:"totalContributions"`
	LastContributionDate null.Time `json:"lastContributionDate"`
	IsActive             bool      `json:"isActive"`
	JoinedAt             time.Time `json:"joinedAt"`
}

// AddMemberInput is the payload for adding a member to a chama
type AddMemberInput struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Role   ChamaRole `json:"role"`
}

// LeaderboardEntry is a derived ranking row; safe to discard and regenerate
type LeaderboardEntry struct {
	ChamaID              uuid.UUID `json:"chamaId"`
	UserID               uuid.UUID `json:"userId"`
	NetWorth             Money     `json:"netWorth"`
	RankPosition         int       `json:"rankPosition"`
	LastContributionDate null.Time `json:"lastContributionDate"`
	CalculatedAt         time.Time `json:"calculatedAt"`
}
